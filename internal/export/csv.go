package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV encodes t with standard CSV quoting, one record per line.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Strings()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
