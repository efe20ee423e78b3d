// Package reaper runs the background maintenance loop: releasing
// claims abandoned by idle pickers and purging aged completed
// requests.
package reaper

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/storage"
)

// passTimeout bounds a single maintenance pass.
const passTimeout = 30 * time.Second

// Options configures the reaper.
type Options struct {
	// IdleTimeout releases in_progress claims untouched for this long.
	IdleTimeout time.Duration
	// Retention deletes completed requests older than this.
	Retention time.Duration
	// Interval between passes.
	Interval time.Duration
	// Enabled gates the loop; a disabled reaper wakes and sleeps again.
	Enabled bool
}

// Status is a snapshot of reaper state for the admin surface.
type Status struct {
	Enabled         bool      `json:"enabled"`
	IdleTimeout     string    `json:"idle_timeout"`
	Retention       string    `json:"retention"`
	Interval        string    `json:"interval"`
	LastRun         time.Time `json:"last_run,omitempty"`
	LastReleased    int       `json:"last_released"`
	LastPurged      int       `json:"last_purged"`
	TotalReleased   int       `json:"total_released"`
	TotalPurged     int       `json:"total_purged"`
	CompletedPasses int       `json:"completed_passes"`
}

// Reaper is the periodic maintenance worker. It owns its own store
// handle and transactions; nothing is shared with operator requests.
type Reaper struct {
	store storage.Storage
	log   *zap.Logger
	opts  Options

	mu            sync.Mutex
	lastRun       time.Time
	lastReleased  int
	lastPurged    int
	totalReleased int
	totalPurged   int
	passes        int

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New creates a reaper; call Start to launch the loop
func New(store storage.Storage, logger *zap.Logger, opts Options) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		store:    store,
		log:      logger,
		opts:     opts,
		shutdown: make(chan struct{}),
	}
}

// Start launches the background loop
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.loop()
	r.log.Info("reaper started",
		zap.Duration("interval", r.opts.Interval),
		zap.Duration("idle_timeout", r.opts.IdleTimeout),
		zap.Duration("retention", r.opts.Retention),
		zap.Bool("enabled", r.opts.Enabled))
}

// Stop signals the loop to exit and waits for it
func (r *Reaper) Stop() {
	close(r.shutdown)
	r.wg.Wait()
}

func (r *Reaper) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.opts.Enabled {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
			if _, _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("reaper pass failed", zap.Error(err))
			}
			cancel()
		case <-r.shutdown:
			return
		}
	}
}

// RunOnce performs a single maintenance pass: release stale claims,
// then purge aged completions. Transient lock contention is retried
// with exponential backoff inside the pass.
func (r *Reaper) RunOnce(ctx context.Context) (released, purged int, err error) {
	op := func() error {
		var passErr error
		released, purged, passErr = r.pass(ctx)
		if passErr != nil && !isBusy(passErr) {
			return backoff.Permanent(passErr)
		}
		return passErr
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return released, purged, err
	}

	r.mu.Lock()
	r.lastRun = time.Now().UTC()
	r.lastReleased = released
	r.lastPurged = purged
	r.totalReleased += released
	r.totalPurged += purged
	r.passes++
	r.mu.Unlock()

	if released > 0 || purged > 0 {
		r.log.Info("reaper pass complete",
			zap.Int("released", released), zap.Int("purged", purged))
	}
	return released, purged, nil
}

func (r *Reaper) pass(ctx context.Context) (released, purged int, err error) {
	cutoff := time.Now().UTC().Add(-r.opts.IdleTimeout)
	stale, err := r.store.StaleClaims(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}
	for _, req := range stale {
		// Guarded release: a request touched after the query is left
		// alone, item progress and started_at survive.
		ok, err := r.store.ReleaseIfIdle(ctx, req.Name, cutoff)
		if err != nil {
			return released, 0, err
		}
		if ok {
			released++
			r.log.Info("released stale claim",
				zap.String("name", req.Name),
				zap.String("claimant", req.ClaimantName),
				zap.Time("last_activity", req.LastActivityAt))
		}
	}

	purged, err = r.store.PurgeCompletedBefore(ctx, time.Now().UTC().Add(-r.opts.Retention))
	if err != nil {
		return released, 0, err
	}
	return released, purged, nil
}

// GetStatus returns a snapshot of the reaper's counters
func (r *Reaper) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Enabled:         r.opts.Enabled,
		IdleTimeout:     r.opts.IdleTimeout.String(),
		Retention:       r.opts.Retention.String(),
		Interval:        r.opts.Interval.String(),
		LastRun:         r.lastRun,
		LastReleased:    r.lastReleased,
		LastPurged:      r.lastPurged,
		TotalReleased:   r.totalReleased,
		TotalPurged:     r.totalPurged,
		CompletedPasses: r.passes,
	}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
