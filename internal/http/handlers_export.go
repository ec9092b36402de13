package http

import (
	"bytes"
	"io"
	"net/http"

	"profitcalc/internal/export"
	"profitcalc/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "csv", export.CSVFileName, export.CSVContentType, export.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, "xlsx", export.XLSXFileName, export.XLSXContentType, export.WriteXLSX)
}

// writeExport encodes the caller's table into a buffer first so a failed
// encode can still be answered with an error status.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, format, filename, contentType string, encode func(io.Writer, export.Table) error) {
	state, report := s.session(r).View()
	table := export.BuildTable(state, report)

	var buf bytes.Buffer
	if err := encode(&buf, table); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Export failed", err,
			log.ErrorTypeEncoding, log.ComponentExport, log.OpExport,
			log.LogFields{"format": format})
		InternalServerError("Export failed").Write(w)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentExport).DebugContext(r.Context(), "Export written",
		"format", format,
		log.FieldRows, len(state.Rows),
		"bytes", buf.Len())
	NewResponse().Attachment(filename, contentType, buf.Bytes()).Write(w)
}
