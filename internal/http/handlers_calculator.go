package http

import (
	"context"
	"net/http"

	"profitcalc/internal/core"
	"profitcalc/internal/services"
)

type stateSetter func(*services.Session, context.Context, string) services.Result

type rowSetter func(*services.Session, context.Context, string, string) services.Result

// Editable top-level fields, keyed by their JSON names.
var stateFields = map[string]stateSetter{
	"clientName":       (*services.Session).SetClientName,
	"contractBilling":  (*services.Session).SetContractBilling,
	"royaltyPct":       (*services.Session).SetRoyaltyPct,
	"managementPct":    (*services.Session).SetManagementPct,
	"insurancePct":     (*services.Session).SetInsurancePct,
	"suppliesPct":      (*services.Session).SetSuppliesPct,
	"laborTaxesPct":    (*services.Session).SetLaborTaxesPct,
	"specialEquipment": (*services.Session).SetSpecialEquipment,
}

// Editable payroll row fields.
var rowFields = map[string]rowSetter{
	"hoursPerNight": (*services.Session).SetHoursPerNight,
	"payPerHour":    (*services.Session).SetPayPerHour,
	"nightsPerWeek": (*services.Session).SetNightsPerWeek,
}

type stateResponse struct {
	State      core.CalculatorState `json:"state"`
	Report     core.Report          `json:"report"`
	SaveStatus string               `json:"saveStatus"`
	Applied    *bool                `json:"applied,omitempty"`
}

type rowResponse struct {
	Row core.PayrollRow `json:"row"`
	stateResponse
}

type reportResponse struct {
	Report    core.Report       `json:"report"`
	Formatted map[string]string `json:"formatted"`
}

// session returns the caller's calculator session.
func (s *Server) session(r *http.Request) *services.Session {
	id, _ := IdentityFrom(r.Context())
	return s.registry.Get(r.Context(), id.ID)
}

func newStateResponse(res services.Result) stateResponse {
	return stateResponse{
		State:      res.State,
		Report:     res.State.Report(),
		SaveStatus: res.Save.String(),
	}
}

// newEditResponse also reports whether the edit found its row.
func newEditResponse(res services.Result) stateResponse {
	resp := newStateResponse(res)
	resp.Applied = &res.Applied
	return resp
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(newStateResponse(s.session(r).Current())).Write(w)
}

// readValue returns the "value" member of the request body as raw text.
func readValue(r *http.Request) (string, *ResponseBuilder) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		return "", errResp
	}
	v, ok := p.Lookup("value")
	if !ok {
		return "", BadRequestError("Missing value")
	}
	return v, nil
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	set, ok := stateFields[field]
	if !ok {
		NotFoundError("Unknown field: " + field).Write(w)
		return
	}
	value, errResp := readValue(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if field == "clientName" {
		value = stripControl(value)
	}

	res := set(s.session(r), r.Context(), value)
	NewResponse().JSON(newStateResponse(res)).Write(w)
}

func (s *Server) handleSetRowField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	set, ok := rowFields[field]
	if !ok {
		NotFoundError("Unknown row field: " + field).Write(w)
		return
	}
	value, errResp := readValue(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	res := set(s.session(r), r.Context(), r.PathValue("id"), value)
	NewResponse().JSON(newEditResponse(res)).Write(w)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	row, res := s.session(r).AddRow(r.Context())
	NewResponse().Status(http.StatusCreated).JSON(rowResponse{
		Row:           row,
		stateResponse: newStateResponse(res),
	}).Write(w)
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	res := s.session(r).RemoveRow(r.Context(), r.PathValue("id"))
	NewResponse().JSON(newEditResponse(res)).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res := s.session(r).Reset(r.Context())
	NewResponse().JSON(newStateResponse(res)).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	state, report := s.session(r).View()
	NewResponse().JSON(reportResponse{
		Report: report,
		Formatted: map[string]string{
			"contractBilling":  core.FormatCurrency(state.ContractBilling),
			"labor":            core.FormatCurrency(report.Labor),
			"royalty":          core.FormatCurrency(report.Royalty),
			"management":       core.FormatCurrency(report.Management),
			"insurance":        core.FormatCurrency(report.Insurance),
			"supplies":         core.FormatCurrency(report.Supplies),
			"laborTaxes":       core.FormatCurrency(report.LaborTaxes),
			"specialEquipment": core.FormatCurrency(report.SpecialEquipment),
			"totalExpenses":    core.FormatCurrency(report.TotalExpenses),
			"profit":           core.FormatCurrency(report.Profit),
		},
	}).Write(w)
}
