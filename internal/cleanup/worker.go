package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"link-shortener/internal/metrics"
)

// URLStore is the slice of the URL repository the cleanup worker needs:
// two bulk maintenance statements. Satisfied by repository.URLRepository.
type URLStore interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)
}

// Worker runs periodic table maintenance over the URL store:
//
//  1. Deactivation: active URLs past their expiry are bulk-flipped to
//     inactive. Resolution already rejects expired URLs lazily, so this
//     pass is about keeping the table honest, not about correctness of
//     redirects.
//  2. Purge: URLs soft-deleted longer ago than the retention period are
//     permanently removed. This is the only irreversible write in the
//     system, which is why it runs on its own, much longer schedule.
type Worker struct {
	store  URLStore
	config Config
	logger *slog.Logger

	// runMu serializes passes so a slow purge cannot overlap the next
	// scheduled deactivation
	runMu sync.Mutex
}

// Config holds cleanup worker settings
type Config struct {
	// DeactivateInterval is the period between expiry sweeps (hourly)
	DeactivateInterval time.Duration
	// PurgeInterval is the period between permanent-deletion sweeps (daily)
	PurgeInterval time.Duration
	// PurgeAfter is how long a soft-deleted URL is retained before it is
	// permanently removed
	PurgeAfter time.Duration
}

// NewWorker creates a cleanup worker
func NewWorker(store URLStore, cfg Config, logger *slog.Logger) *Worker {
	if cfg.DeactivateInterval <= 0 {
		cfg.DeactivateInterval = time.Hour
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = 24 * time.Hour
	}
	if cfg.PurgeAfter <= 0 {
		cfg.PurgeAfter = 30 * 24 * time.Hour
	}

	return &Worker{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Run executes both maintenance passes on their schedules until the
// context is canceled. Intended to be started as a goroutine from main.
func (w *Worker) Run(ctx context.Context) {
	deactivate := time.NewTicker(w.config.DeactivateInterval)
	defer deactivate.Stop()
	purge := time.NewTicker(w.config.PurgeInterval)
	defer purge.Stop()

	w.logger.Info("cleanup worker started",
		"deactivate_interval", w.config.DeactivateInterval,
		"purge_interval", w.config.PurgeInterval,
		"purge_after", w.config.PurgeAfter,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-deactivate.C:
			w.DeactivateExpired(ctx)
		case <-purge.C:
			w.PurgeDeleted(ctx)
		}
	}
}

// DeactivateExpired runs one expiry sweep.
// A store failure leaves the rows as they were; the next sweep picks
// them up, and lazy rejection at access time covers the gap.
func (w *Worker) DeactivateExpired(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.CleanupDuration.WithLabelValues("deactivate").Observe(time.Since(start).Seconds())
	}()

	deactivated, err := w.store.DeactivateExpired(ctx, time.Now())
	if err != nil {
		w.logger.Error("expiry sweep failed", "error", err)
		return
	}

	if deactivated > 0 {
		metrics.ExpiredURLsDeactivatedTotal.Add(float64(deactivated))
		w.logger.Info("deactivated expired URLs", "count", deactivated)
	}
}

// PurgeDeleted runs one permanent-deletion sweep over soft-deleted rows
// older than the retention period.
func (w *Worker) PurgeDeleted(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.CleanupDuration.WithLabelValues("purge").Observe(time.Since(start).Seconds())
	}()

	cutoff := time.Now().Add(-w.config.PurgeAfter)

	purged, err := w.store.PurgeDeleted(ctx, cutoff)
	if err != nil {
		w.logger.Error("purge sweep failed", "error", err)
		return
	}

	if purged > 0 {
		metrics.PurgedURLsTotal.Add(float64(purged))
		w.logger.Info("purged soft-deleted URLs", "count", purged, "deleted_before", cutoff)
	}
}
