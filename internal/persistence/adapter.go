// Package persistence stores one CalculatorState per owner as JSON under a
// fixed key. Reads never fail: anything unusable becomes the default state.
// Writes report a SaveStatus that callers log and otherwise ignore.
package persistence

import (
	"context"
	"fmt"

	"profitcalc/internal/core"
	"profitcalc/internal/log"
	"profitcalc/internal/storage"
)

// StorageKey is the fixed record identifier, shared with the browser app.
const StorageKey = "contract-profit-calculator:v1"

// SaveStatus is the outcome of a Save.
type SaveStatus int

const (
	SaveOK SaveStatus = iota
	SaveEncodeFailed
	SaveWriteFailed
)

func (s SaveStatus) String() string {
	switch s {
	case SaveOK:
		return "ok"
	case SaveEncodeFailed:
		return "encode_failed"
	case SaveWriteFailed:
		return "write_failed"
	default:
		return fmt.Sprintf("SaveStatus(%d)", int(s))
	}
}

// Adapter loads and saves one owner's state.
type Adapter struct {
	store  storage.KeyValueStore
	owner  string
	ids    core.IDGenerator
	logger *log.Logger
}

// New returns an Adapter for owner. A nil ids uses core.NewRowID and a nil
// logger discards output.
func New(store storage.KeyValueStore, owner string, ids core.IDGenerator, logger *log.Logger) *Adapter {
	if ids == nil {
		ids = core.NewRowID
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Adapter{
		store:  store,
		owner:  owner,
		ids:    ids,
		logger: logger.WithComponent(log.ComponentPersistence).WithOwner(owner),
	}
}

// Owner returns the owner the adapter is scoped to.
func (a *Adapter) Owner() string { return a.owner }

// Load returns the stored state merged over the default, or the default when
// nothing usable is stored.
func (a *Adapter) Load(ctx context.Context) core.CalculatorState {
	raw, found, err := a.store.Get(ctx, a.owner, StorageKey)
	if err != nil {
		a.logger.WarnContext(ctx, "Stored state unreadable, using default",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return core.DefaultState(a.ids)
	}
	if !found {
		return core.DefaultState(a.ids)
	}

	state, err := Decode(raw, a.ids)
	if err != nil {
		a.logger.WarnContext(ctx, "Stored state corrupt, using default",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeEncoding)
		return core.DefaultState(a.ids)
	}
	return state
}

// Save overwrites the stored record with state.
func (a *Adapter) Save(ctx context.Context, state core.CalculatorState) SaveStatus {
	raw, err := Encode(state)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to encode state",
			log.FieldOperation, log.OpSave,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeEncoding)
		return SaveEncodeFailed
	}
	if err := a.store.Set(ctx, a.owner, StorageKey, raw); err != nil {
		a.logger.ErrorContext(ctx, "Failed to write state",
			log.FieldOperation, log.OpSave,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return SaveWriteFailed
	}
	a.logger.DebugContext(ctx, "State saved", log.FieldOperation, log.OpSave, log.FieldRows, len(state.Rows))
	return SaveOK
}
