package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/facebookgo/clock"
)

// FetchFunc pulls fresh state from the backend.
type FetchFunc func(ctx context.Context) error

// RefresherConfig holds configuration for the refresher.
type RefresherConfig struct {
	// Interval between periodic fetches. Zero disables the periodic fetch;
	// Trigger still works.
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Refresher periodically pulls panel data from the backend.
type Refresher struct {
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	fetch    FetchFunc
	trigger  chan struct{}
}

// NewRefresher creates a refresher that calls fetch.
func NewRefresher(cfg RefresherConfig, fetch FetchFunc) *Refresher {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{
		interval: cfg.Interval,
		clock:    clk,
		logger:   logger,
		fetch:    fetch,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate fetch. Requests made while one is pending
// are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run fetches once, then on every tick and trigger. Blocks until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("refresher started", "interval", r.interval)
	r.refresh(ctx)

	var tick <-chan time.Time
	if r.interval > 0 {
		t := r.clock.Ticker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-tick:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("refresher panic recovered", "error", err)
		}
	}()

	if err := r.fetch(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("backend refresh failed", "error", err)
	}
}
