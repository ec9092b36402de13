package core

import "github.com/google/uuid"

// WeeksPerMonth converts a weekly payroll rate into a monthly one.
const WeeksPerMonth = 4.333

// Seed percentages used by the canonical default state.
const (
	DefaultRoyaltyPct    = 10
	DefaultManagementPct = 5
	DefaultInsurancePct  = 7
	DefaultSuppliesPct   = 3
	DefaultLaborTaxesPct = 0
	DefaultPayrollRows   = 5
)

type (
	// PayrollRow is one line of the payroll. ID is opaque and only used to
	// address the row for updates and removal.
	PayrollRow struct {
		ID            string  `json:"id"`
		HoursPerNight float64 `json:"hoursPerNight"`
		PayPerHour    float64 `json:"payPerHour"`
		NightsPerWeek float64 `json:"nightsPerWeek"`
	}

	// CalculatorState is the single persisted aggregate of a calculator.
	// JSON names match the records written by the browser version of the app.
	CalculatorState struct {
		ClientName       string  `json:"clientName"`
		ContractBilling  float64 `json:"contractBilling"`
		RoyaltyPct       float64 `json:"royaltyPct"`
		ManagementPct    float64 `json:"managementPct"`
		InsurancePct     float64 `json:"insurancePct"`
		SuppliesPct      float64 `json:"suppliesPct"`
		LaborTaxesPct    float64 `json:"laborTaxesPct"`
		SpecialEquipment float64 `json:"specialEquipment"`
		Rows             Ledger  `json:"rows"`
	}

	// Report holds the derived expense and profit figures. Never persisted.
	Report struct {
		Labor            float64 `json:"labor"`
		Royalty          float64 `json:"royalty"`
		Management       float64 `json:"management"`
		Insurance        float64 `json:"insurance"`
		Supplies         float64 `json:"supplies"`
		LaborTaxes       float64 `json:"laborTaxes"`
		SpecialEquipment float64 `json:"specialEquipment"`
		TotalExpenses    float64 `json:"totalExpenses"`
		Profit           float64 `json:"profit"`
	}

	// IDGenerator yields fresh payroll row identifiers.
	IDGenerator func() string
)

// NewRowID is the default IDGenerator (random UUIDv4).
func NewRowID() string {
	return uuid.NewString()
}

// DefaultState returns the canonical default: seed percentages, zero billing
// and equipment, and five zeroed payroll rows with fresh ids.
func DefaultState(newID IDGenerator) CalculatorState {
	if newID == nil {
		newID = NewRowID
	}
	rows := make(Ledger, 0, DefaultPayrollRows)
	for i := 0; i < DefaultPayrollRows; i++ {
		rows.Add(newID())
	}
	return CalculatorState{
		RoyaltyPct:    DefaultRoyaltyPct,
		ManagementPct: DefaultManagementPct,
		InsurancePct:  DefaultInsurancePct,
		SuppliesPct:   DefaultSuppliesPct,
		LaborTaxesPct: DefaultLaborTaxesPct,
		Rows:          rows,
	}
}

// Clone returns a deep copy so callers can hand the state out safely.
func (s CalculatorState) Clone() CalculatorState {
	s.Rows = s.Rows.Clone()
	return s
}
