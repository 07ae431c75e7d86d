package flush

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"link-shortener/internal/counter"
	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"

	"github.com/samber/lo"
)

// ClickStore is the durable side of the flush: an additive, retry-safe
// batch update of click counts. Satisfied by repository.URLRepository.
type ClickStore interface {
	ApplyClickDeltas(ctx context.Context, deltas []domain.ClickDelta) error
}

// Worker periodically reconciles pending click deltas from the shared
// counter store into durable storage.
//
// The design guarantees no increment is ever permanently lost:
//  1. The key set is walked with an incremental cursor scan, never a
//     blocking read-then-clear, so keys incremented mid-scan are not
//     excluded - they surface in this run or the next.
//  2. A batch's deltas are removed from the counter store ONLY after the
//     durable write is confirmed, and removal is a decrement by the
//     flushed amount, not a delete. An increment landing between scan
//     and removal survives as a residual delta for the next run.
//  3. On durable-store failure the deltas stay pending; the additive
//     `click_count += delta` update makes the retry safe.
type Worker struct {
	store     counter.Store
	clicks    ClickStore
	interval  time.Duration
	batchSize int
	scanCount int64
	logger    *slog.Logger

	// runMu serializes runs: a new run must not start while a previous
	// one is still in flight, or the same keys could flush twice
	runMu sync.Mutex
}

// Config holds flush worker settings
type Config struct {
	// Interval between scheduled runs (tens of seconds to minutes)
	Interval time.Duration
	// BatchSize bounds the keys per durable-store transaction
	// (hundreds, not thousands)
	BatchSize int
	// ScanCount is the page-size hint for the counter-store cursor scan
	ScanCount int64
}

// NewWorker creates a flush worker
func NewWorker(store counter.Store, clicks ClickStore, cfg Config, logger *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = int64(cfg.BatchSize)
	}

	return &Worker{
		store:     store,
		clicks:    clicks,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		scanCount: cfg.ScanCount,
		logger:    logger,
	}
}

// Run flushes on a fixed schedule until the context is canceled.
// Shutdown simply stops scheduling new runs: an in-flight batch either
// completes or fails, and failed deltas are retried on the next start.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("flush worker started", "interval", w.interval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("flush worker stopped")
			return
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush executes a single reconciliation run.
// Exclusive: if a previous run is still in flight the call is skipped
// rather than queued - the next tick picks the work up anyway.
func (w *Worker) Flush(ctx context.Context) {
	if !w.runMu.TryLock() {
		w.logger.Warn("flush run still in flight, skipping")
		metrics.FlushRunsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer w.runMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	pending, err := w.scanPending(ctx)
	if err != nil {
		w.logger.Error("failed to scan pending counters", "error", err)
		metrics.FlushRunsTotal.WithLabelValues("partial").Inc()
		return
	}

	if len(pending) == 0 {
		metrics.FlushRunsTotal.WithLabelValues("ok").Inc()
		return
	}

	failed := 0
	for _, batch := range lo.Chunk(pending, w.batchSize) {
		if !w.flushBatch(ctx, batch) {
			failed++
		}
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.FlushRunsTotal.WithLabelValues(outcome).Inc()

	w.logger.Info("flush run complete",
		"keys", len(pending),
		"failed_batches", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// scanPending walks the pending hash with an incremental cursor.
//
// The scan contract is at-least-once, not exactly-once: the same field
// may show up on more than one page of a single walk (Redis HSCAN does
// this during a rehash). Pages are therefore merged by key, keeping one
// observed delta per key, so a duplicated field cannot be flushed - and
// decremented - twice in one run.
func (w *Worker) scanPending(ctx context.Context) ([]counter.Pending, error) {
	seen := make(map[string]int64)
	var cursor uint64

	for {
		page, next, err := w.store.HScan(ctx, counter.PendingClicksKey, cursor, w.scanCount)
		if err != nil {
			return nil, err
		}

		for _, p := range page {
			// Zero or negative deltas carry nothing to flush
			if p.Delta > 0 {
				seen[p.Key] = p.Delta
			}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	pending := make([]counter.Pending, 0, len(seen))
	for key, delta := range seen {
		pending = append(pending, counter.Pending{Key: key, Delta: delta})
	}
	return pending, nil
}

// flushBatch writes one batch durably and, only on confirmed success,
// removes exactly the flushed amounts from the counter store.
// Returns false when the batch failed and its deltas were left pending.
func (w *Worker) flushBatch(ctx context.Context, batch []counter.Pending) bool {
	deltas := make([]domain.ClickDelta, len(batch))
	var total int64
	for i, p := range batch {
		deltas[i] = domain.ClickDelta{ShortKey: p.Key, Delta: p.Delta}
		total += p.Delta
	}

	if err := w.clicks.ApplyClickDeltas(ctx, deltas); err != nil {
		// Deltas stay pending; the next scheduled run retries them.
		// One bad batch must not abort the rest of the run.
		w.logger.Error("flush batch failed, deltas left pending for retry",
			"keys", len(batch),
			"error", err,
		)
		metrics.FlushBatchFailuresTotal.Inc()
		return false
	}

	for _, p := range batch {
		if err := w.store.HDecrOrRemove(ctx, counter.PendingClicksKey, p.Key, p.Delta); err != nil {
			// The durable write landed but the pending delta could not be
			// removed: the next run re-applies it, over-counting by at
			// most one flush. The additive update keeps this bounded and
			// the counter never regresses.
			w.logger.Error("failed to clear flushed delta",
				"short_key", p.Key,
				"delta", p.Delta,
				"error", err,
			)
		}
	}

	metrics.FlushedClicksTotal.Add(float64(total))
	return true
}
