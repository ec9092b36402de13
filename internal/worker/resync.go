package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"profitcalc/internal/log"
)

// Syncer is the part of SyncWorker the periodic resync needs.
type Syncer interface {
	SyncAll(ctx context.Context) (int, error)
}

// Resync periodically rewrites every stored report, covering messages that
// were lost while the broker or the spreadsheet was unavailable.
type Resync struct {
	syncer   Syncer
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewResync(syncer Syncer, interval time.Duration, logger *log.Logger) *Resync {
	if logger == nil {
		logger = log.Discard()
	}
	return &Resync{
		syncer:   syncer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start runs one pass immediately and then one per interval. It returns
// an error if already running or if the interval is not positive.
func (r *Resync) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("resync interval must be positive, got %v", r.interval)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("resync is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Periodic resync started", "interval", r.interval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (r *Resync) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Periodic resync stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Periodic resync stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active.
func (r *Resync) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Resync) runLoop(ctx context.Context) {
	r.mu.Lock()
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pass(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Resync) pass(ctx context.Context) {
	n, err := r.syncer.SyncAll(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Periodic resync finished with errors",
			"synced", n,
			log.FieldError, err)
		return
	}
	r.logger.DebugContext(ctx, "Periodic resync finished", "synced", n)
}
