package sheets

import (
	"context"

	"profitcalc/internal/export"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes an owner's export table, replacing any
	// previously written copy.
	ReportWriter interface {
		WriteTable(ctx context.Context, owner string, t export.Table) error
	}
)
