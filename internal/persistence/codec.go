package persistence

import (
	"encoding/json"
	"fmt"

	"profitcalc/internal/core"
)

// Encode serializes state in the stored record format.
func Encode(state core.CalculatorState) ([]byte, error) {
	if state.Rows == nil {
		state.Rows = core.Ledger{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return raw, nil
}

// Decode parses a stored record and merges it field by field over the
// default state. Fields that are missing, null, or of the wrong JSON type
// keep their default. The result is normalized and every row has an id.
// Only a record that is not a JSON object is an error.
func Decode(raw []byte, ids core.IDGenerator) (core.CalculatorState, error) {
	if ids == nil {
		ids = core.NewRowID
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return core.CalculatorState{}, fmt.Errorf("decode state: %w", err)
	}

	state := core.DefaultState(ids)
	mergeString(fields, "clientName", &state.ClientName)
	mergeNumber(fields, "contractBilling", &state.ContractBilling)
	mergeNumber(fields, "royaltyPct", &state.RoyaltyPct)
	mergeNumber(fields, "managementPct", &state.ManagementPct)
	mergeNumber(fields, "insurancePct", &state.InsurancePct)
	mergeNumber(fields, "suppliesPct", &state.SuppliesPct)
	mergeNumber(fields, "laborTaxesPct", &state.LaborTaxesPct)
	mergeNumber(fields, "specialEquipment", &state.SpecialEquipment)
	if rows, ok := decodeRows(fields["rows"], ids); ok {
		state.Rows = rows
	}

	state.Normalize()
	return state, nil
}

func mergeString(fields map[string]json.RawMessage, name string, dst *string) {
	var v *string
	if raw, ok := fields[name]; ok && json.Unmarshal(raw, &v) == nil && v != nil {
		*dst = *v
	}
}

func mergeNumber(fields map[string]json.RawMessage, name string, dst *float64) {
	var v *float64
	if raw, ok := fields[name]; ok && json.Unmarshal(raw, &v) == nil && v != nil {
		*dst = *v
	}
}

// decodeRows reports ok=false when the rows field is absent or not an array.
// Array elements that are not objects are dropped.
func decodeRows(raw json.RawMessage, ids core.IDGenerator) (core.Ledger, bool) {
	if raw == nil {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, false
	}

	rows := make(core.Ledger, 0, len(elems))
	for _, elem := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			continue
		}
		var row core.PayrollRow
		mergeString(fields, "id", &row.ID)
		if row.ID == "" {
			row.ID = ids()
		}
		mergeNumber(fields, "hoursPerNight", &row.HoursPerNight)
		mergeNumber(fields, "payPerHour", &row.PayPerHour)
		mergeNumber(fields, "nightsPerWeek", &row.NightsPerWeek)
		rows = append(rows, row)
	}
	return rows, true
}
