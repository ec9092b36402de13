package services

import (
	"context"
	"sync"

	"profitcalc/internal/core"
	"profitcalc/internal/log"
	"profitcalc/internal/persistence"
)

// Notifier is told about every successful save. Failures are logged only.
type Notifier interface {
	PublishStateSaved(ctx context.Context, owner string) error
}

// Result is the outcome of one edit.
type Result struct {
	State   core.CalculatorState
	Applied bool
	// Save is the outcome of this edit's save, or of the last save when
	// the edit changed nothing.
	Save persistence.SaveStatus
}

// Session is one owner's calculator. Every mutation is coerced, applied,
// saved synchronously and then announced to the notifier, with edits for
// the same owner serialized by the session lock.
//
// A retired session no longer owns the stored record: its edits are
// forwarded to the session returned by reopen.
type Session struct {
	mu       sync.Mutex
	state    core.CalculatorState
	lastSave persistence.SaveStatus
	retired  bool
	reopen   func(context.Context) *Session

	adapter  *persistence.Adapter
	notifier Notifier
	ids      core.IDGenerator
	logger   *log.Logger
	events   *log.StructuredLogger
}

// OpenSession loads the owner's stored state through adapter.
func OpenSession(ctx context.Context, adapter *persistence.Adapter, notifier Notifier, ids core.IDGenerator, logger *log.Logger) *Session {
	if ids == nil {
		ids = core.NewRowID
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentCalculator).WithOwner(adapter.Owner())
	return &Session{
		state:    adapter.Load(ctx),
		adapter:  adapter,
		notifier: notifier,
		ids:      ids,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
}

// Owner returns the owner the session belongs to.
func (s *Session) Owner() string { return s.adapter.Owner() }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() core.CalculatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// View returns a copy of the state together with its report.
func (s *Session) View() (core.CalculatorState, core.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.state.Report()
}

// Current returns a copy of the state with the outcome of the last save.
func (s *Session) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{State: s.state.Clone(), Save: s.lastSave}
}

// Report computes the report for the current state.
func (s *Session) Report() core.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Report()
}

// LastSave reports the outcome of the most recent save.
func (s *Session) LastSave() persistence.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSave
}

func (s *Session) SetClientName(ctx context.Context, name string) Result {
	return s.apply(ctx, log.OpUpdate, "clientName", "", func(st *core.CalculatorState) bool {
		st.SetClientName(name)
		return true
	})
}

func (s *Session) SetContractBilling(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "contractBilling", "", func(st *core.CalculatorState) bool {
		st.SetContractBilling(raw)
		return true
	})
}

func (s *Session) SetRoyaltyPct(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "royaltyPct", "", func(st *core.CalculatorState) bool {
		st.SetRoyaltyPct(raw)
		return true
	})
}

func (s *Session) SetManagementPct(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "managementPct", "", func(st *core.CalculatorState) bool {
		st.SetManagementPct(raw)
		return true
	})
}

func (s *Session) SetInsurancePct(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "insurancePct", "", func(st *core.CalculatorState) bool {
		st.SetInsurancePct(raw)
		return true
	})
}

func (s *Session) SetSuppliesPct(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "suppliesPct", "", func(st *core.CalculatorState) bool {
		st.SetSuppliesPct(raw)
		return true
	})
}

func (s *Session) SetLaborTaxesPct(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "laborTaxesPct", "", func(st *core.CalculatorState) bool {
		st.SetLaborTaxesPct(raw)
		return true
	})
}

func (s *Session) SetSpecialEquipment(ctx context.Context, raw string) Result {
	return s.apply(ctx, log.OpUpdate, "specialEquipment", "", func(st *core.CalculatorState) bool {
		st.SetSpecialEquipment(raw)
		return true
	})
}

// AddRow appends a zeroed payroll row and returns it with the new state.
func (s *Session) AddRow(ctx context.Context) (core.PayrollRow, Result) {
	var row core.PayrollRow
	res := s.apply(ctx, log.OpAddRow, "rows", "", func(st *core.CalculatorState) bool {
		row = st.Rows.Add(s.ids())
		return true
	})
	return row, res
}

// RemoveRow drops a payroll row. An unknown id changes nothing and is not saved.
func (s *Session) RemoveRow(ctx context.Context, id string) Result {
	return s.apply(ctx, log.OpRemove, "rows", id, func(st *core.CalculatorState) bool {
		return st.Rows.Remove(id)
	})
}

func (s *Session) SetHoursPerNight(ctx context.Context, id, raw string) Result {
	return s.applyRow(ctx, "hoursPerNight", id, func(l core.Ledger) bool { return l.SetHoursPerNight(id, raw) })
}

func (s *Session) SetPayPerHour(ctx context.Context, id, raw string) Result {
	return s.applyRow(ctx, "payPerHour", id, func(l core.Ledger) bool { return l.SetPayPerHour(id, raw) })
}

func (s *Session) SetNightsPerWeek(ctx context.Context, id, raw string) Result {
	return s.applyRow(ctx, "nightsPerWeek", id, func(l core.Ledger) bool { return l.SetNightsPerWeek(id, raw) })
}

// Reset replaces the state with a fresh default and saves it.
func (s *Session) Reset(ctx context.Context) Result {
	return s.apply(ctx, log.OpReset, "", "", func(st *core.CalculatorState) bool {
		*st = core.DefaultState(s.ids)
		return true
	})
}

func (s *Session) applyRow(ctx context.Context, field, id string, set func(core.Ledger) bool) Result {
	return s.apply(ctx, log.OpUpdate, field, id, func(st *core.CalculatorState) bool {
		return set(st.Rows)
	})
}

// apply runs mutate under the lock; when it reports a change the state is
// saved and, on success, announced after the lock is released.
func (s *Session) apply(ctx context.Context, op, field, rowID string, mutate func(*core.CalculatorState) bool) Result {
	s.mu.Lock()
	if s.retired && s.reopen != nil {
		s.mu.Unlock()
		return s.reopen(ctx).apply(ctx, op, field, rowID, mutate)
	}
	if !mutate(&s.state) {
		res := Result{State: s.state.Clone(), Save: s.lastSave}
		s.mu.Unlock()
		return res
	}
	status := s.adapter.Save(ctx, s.state)
	s.lastSave = status
	res := Result{State: s.state.Clone(), Applied: true, Save: status}
	s.mu.Unlock()

	s.events.LogEdit(ctx, s.Owner(), op, field, rowID)
	if status == persistence.SaveOK {
		s.notify(ctx)
	}
	return res
}

// retire waits for an in-flight edit to finish and hands the record over
// to whichever session reopen returns next.
func (s *Session) retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

func (s *Session) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishStateSaved(ctx, s.Owner()); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish state saved message",
			log.FieldOperation, log.OpSync,
			log.FieldError, err)
	}
}
