package core

import "math"

// Ledger is the ordered payroll of a calculator. Order matters for display
// only; the labor total does not depend on it.
type Ledger []PayrollRow

// RowMonthlyPay returns hours × pay × nights × WeeksPerMonth for one row.
func RowMonthlyPay(r PayrollRow) float64 {
	return r.HoursPerNight * r.PayPerHour * r.NightsPerWeek * WeeksPerMonth
}

// MonthlyPay is RowMonthlyPay for r.
func (r PayrollRow) MonthlyPay() float64 {
	return RowMonthlyPay(r)
}

// TotalLabor sums the monthly pay of every row. An empty ledger yields 0,
// and so does a sum that is not finite.
func TotalLabor(rows []PayrollRow) float64 {
	var sum float64
	for _, r := range rows {
		sum += RowMonthlyPay(r)
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0
	}
	return sum
}

// TotalLabor is the aggregate labor cost of the ledger.
func (l Ledger) TotalLabor() float64 {
	return TotalLabor(l)
}

// Add appends a zeroed row with the given id and returns it.
func (l *Ledger) Add(id string) PayrollRow {
	row := PayrollRow{ID: id}
	*l = append(*l, row)
	return row
}

// Remove drops the row with the given id. It reports whether a row was removed.
func (l *Ledger) Remove(id string) bool {
	for i, r := range *l {
		if r.ID == id {
			*l = append((*l)[:i:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the row with the given id.
func (l Ledger) Find(id string) (PayrollRow, bool) {
	if i := l.index(id); i >= 0 {
		return l[i], true
	}
	return PayrollRow{}, false
}

// SetHoursPerNight coerces raw and stores it on the row with the given id.
// An unknown id is a no-op reported as false.
func (l Ledger) SetHoursPerNight(id, raw string) bool {
	return l.update(id, func(r *PayrollRow) { r.HoursPerNight = Coerce(raw) })
}

// SetPayPerHour coerces raw and stores it on the row with the given id.
func (l Ledger) SetPayPerHour(id, raw string) bool {
	return l.update(id, func(r *PayrollRow) { r.PayPerHour = Coerce(raw) })
}

// SetNightsPerWeek coerces raw and stores it on the row with the given id.
func (l Ledger) SetNightsPerWeek(id, raw string) bool {
	return l.update(id, func(r *PayrollRow) { r.NightsPerWeek = Coerce(raw) })
}

// Clone returns a copy that shares no backing array with l.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

func (l Ledger) update(id string, apply func(*PayrollRow)) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	apply(&l[i])
	return true
}

func (l Ledger) index(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}
