// Package export renders a calculator as a table and encodes it as CSV or XLSX.
package export

import (
	"strconv"

	"profitcalc/internal/core"
)

const (
	CSVFileName     = "contract-profit-calculator.csv"
	CSVContentType  = "text/csv;charset=utf-8"
	XLSXFileName    = "contract-profit-calculator.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	XLSXSheetName   = "Calculator"
)

// FixedRows is the number of table rows that do not depend on the payroll.
const FixedRows = 17

// Cell is a text or numeric value. The zero Cell is empty.
type Cell struct {
	Text     string
	Number   float64
	IsNumber bool
}

// Text returns a text cell.
func Text(s string) Cell { return Cell{Text: s} }

// Num returns a numeric cell.
func Num(v float64) Cell { return Cell{Number: v, IsNumber: true} }

// String renders numbers in their shortest round-trip decimal form.
func (c Cell) String() string {
	if c.IsNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// Table is an ordered list of rows. A nil or empty row is a blank line.
type Table [][]Cell

// Strings returns the table as records of rendered cells.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t))
	for i, row := range t {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.String()
		}
		out[i] = rec
	}
	return out
}

// BuildTable lays out the calculator and its report in export order.
func BuildTable(s core.CalculatorState, r core.Report) Table {
	t := make(Table, 0, FixedRows+len(s.Rows))
	t = append(t,
		[]Cell{Text("Client Name"), Text(s.ClientName)},
		[]Cell{Text("Contract Billing"), Num(s.ContractBilling)},
		nil,
		[]Cell{Text("Payroll")},
		[]Cell{Text("#"), Text("Hours/Night"), Text("Pay/Hour"), Text("Nights/Week"), Text("Weeks/Month"), Text("Monthly Pay")},
	)
	for i, row := range s.Rows {
		t = append(t, []Cell{
			Num(float64(i + 1)),
			Num(row.HoursPerNight),
			Num(row.PayPerHour),
			Num(row.NightsPerWeek),
			Num(core.WeeksPerMonth),
			Num(row.MonthlyPay()),
		})
	}
	t = append(t,
		nil,
		[]Cell{Text("Expenses %"), Text("Percent"), Text("Amount")},
		[]Cell{Text("Royalty"), Num(s.RoyaltyPct), Num(r.Royalty)},
		[]Cell{Text("Management Fee"), Num(s.ManagementPct), Num(r.Management)},
		[]Cell{Text("Insurance"), Num(s.InsurancePct), Num(r.Insurance)},
		[]Cell{Text("Supplies"), Num(s.SuppliesPct), Num(r.Supplies)},
		[]Cell{Text("Labor"), {}, Num(r.Labor)},
		[]Cell{Text("Labor Taxes %"), Num(s.LaborTaxesPct), Num(r.LaborTaxes)},
		[]Cell{Text("Special Equipment"), {}, Num(r.SpecialEquipment)},
		nil,
		[]Cell{Text("Total Expenses"), {}, Num(r.TotalExpenses)},
		[]Cell{Text("Profit"), {}, Num(r.Profit)},
	)
	return t
}

// Build is BuildTable over the state's own report.
func Build(s core.CalculatorState) Table {
	return BuildTable(s, s.Report())
}
