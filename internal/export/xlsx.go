package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes t to a single-sheet workbook. Numeric cells are stored
// as numbers, empty cells are left unset.
func WriteXLSX(w io.Writer, t Table) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName(wb.GetSheetName(0), XLSXSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range t {
		for j, c := range row {
			if !c.IsNumber && c.Text == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			var v any = c.Text
			if c.IsNumber {
				v = c.Number
			}
			if err := wb.SetCellValue(XLSXSheetName, ref, v); err != nil {
				return fmt.Errorf("set %s: %w", ref, err)
			}
		}
	}

	if err := wb.SetColWidth(XLSXSheetName, "A", "A", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
