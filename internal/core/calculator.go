package core

// SetClientName stores the label unchanged.
func (s *CalculatorState) SetClientName(name string) { s.ClientName = name }

// SetContractBilling stores the coerced monthly billing.
func (s *CalculatorState) SetContractBilling(raw string) { s.ContractBilling = Coerce(raw) }

// SetRoyaltyPct stores the coerced royalty percentage.
func (s *CalculatorState) SetRoyaltyPct(raw string) { s.RoyaltyPct = Coerce(raw) }

// SetManagementPct stores the coerced management fee percentage.
func (s *CalculatorState) SetManagementPct(raw string) { s.ManagementPct = Coerce(raw) }

// SetInsurancePct stores the coerced insurance percentage.
func (s *CalculatorState) SetInsurancePct(raw string) { s.InsurancePct = Coerce(raw) }

// SetSuppliesPct stores the coerced supplies percentage.
func (s *CalculatorState) SetSuppliesPct(raw string) { s.SuppliesPct = Coerce(raw) }

// SetLaborTaxesPct stores the coerced labor taxes percentage.
func (s *CalculatorState) SetLaborTaxesPct(raw string) { s.LaborTaxesPct = Coerce(raw) }

// SetSpecialEquipment stores the coerced flat equipment cost.
func (s *CalculatorState) SetSpecialEquipment(raw string) { s.SpecialEquipment = Coerce(raw) }

// Normalize re-applies the numeric clamp to every field. Used on records
// that did not pass through the setters, e.g. loaded from storage.
func (s *CalculatorState) Normalize() {
	s.ContractBilling = CoerceFloat(s.ContractBilling)
	s.RoyaltyPct = CoerceFloat(s.RoyaltyPct)
	s.ManagementPct = CoerceFloat(s.ManagementPct)
	s.InsurancePct = CoerceFloat(s.InsurancePct)
	s.SuppliesPct = CoerceFloat(s.SuppliesPct)
	s.LaborTaxesPct = CoerceFloat(s.LaborTaxesPct)
	s.SpecialEquipment = CoerceFloat(s.SpecialEquipment)
	for i := range s.Rows {
		r := &s.Rows[i]
		r.HoursPerNight = CoerceFloat(r.HoursPerNight)
		r.PayPerHour = CoerceFloat(r.PayPerHour)
		r.NightsPerWeek = CoerceFloat(r.NightsPerWeek)
	}
}

// PctDollar is billing × pct / 100.
func (s CalculatorState) PctDollar(pct float64) float64 {
	return s.ContractBilling * pct / 100
}

// ComputeReport derives the expense and profit figures from the state and
// the ledger's labor total. Profit is not clamped and may be negative.
func ComputeReport(s CalculatorState, labor float64) Report {
	r := Report{
		Labor:            labor,
		Royalty:          s.PctDollar(s.RoyaltyPct),
		Management:       s.PctDollar(s.ManagementPct),
		Insurance:        s.PctDollar(s.InsurancePct),
		Supplies:         s.PctDollar(s.SuppliesPct),
		LaborTaxes:       labor * s.LaborTaxesPct / 100,
		SpecialEquipment: s.SpecialEquipment,
	}
	// summation order is fixed so any rounding is reproducible
	r.TotalExpenses = r.Royalty + r.Management + r.Insurance + r.Supplies + r.Labor + r.LaborTaxes + r.SpecialEquipment
	r.Profit = s.ContractBilling - r.TotalExpenses
	return r
}

// Report computes the report using the state's own payroll.
func (s CalculatorState) Report() Report {
	return ComputeReport(s, s.Rows.TotalLabor())
}
