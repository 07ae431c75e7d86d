package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"link-shortener/internal/counter"
	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"
)

// Limiter is the admission controller: a FIXED-WINDOW rate limiter that
// records an abuse event for every rejection.
//
// HOW IT WORKS:
//  1. Each (event class, caller identity) pair has a token counter
//  2. The counter is lazily created with full capacity and a TTL equal to
//     the window; it disappears when the window expires and is recreated
//     with full capacity on the next request
//  3. Each request consumes one token via a single atomic init-and-decrement
//  4. A negative post-decrement value means the tokens ran out
//
// The window is fixed, not sliding: a burst straddling a window boundary
// can admit up to 2x capacity in the worst case. That is accepted behavior,
// traded for a single-operation hot path.
//
// The check-and-decrement MUST stay one atomic store operation. A read
// followed by a write would let two concurrent callers both observe the
// last token and both get admitted.
type Limiter struct {
	store  counter.Store
	abuse  AbuseRecorder
	config Config
	logger *slog.Logger
}

// AbuseRecorder persists abuse records. Satisfied by repository.AbuseRepository.
type AbuseRecorder interface {
	Create(ctx context.Context, record *domain.AbuseRecord) error
}

// Config holds per-class capacities and the shared window
type Config struct {
	// Enabled turns admission control off entirely when false: every
	// request is admitted without touching the counter store and no
	// abuse records are written. Meant for development environments.
	Enabled bool
	// PostCapacity is the number of link creations allowed per window
	PostCapacity int64
	// GetCapacity is the number of redirects allowed per window
	GetCapacity int64
	// Window is the fixed-window length
	Window time.Duration
	// FailOpen controls behavior when the counter store is unavailable:
	// true admits the request (availability over enforcement), false
	// rejects it. An explicit deployment decision, never inferred.
	FailOpen bool
}

// Request describes one admission check. ShortKey is empty for endpoints
// that are not tied to an existing link (e.g., creation).
type Request struct {
	Class     domain.EventClass
	Identity  string // Caller identity, typically the client IP
	ShortKey  string
	UserAgent string
	Referer   string
}

// Decision is the outcome of an admission check
type Decision struct {
	Admitted   bool
	Remaining  int64         // Tokens left in the window (0 when rejected)
	RetryAfter time.Duration // Upper bound until the window resets
}

// NewLimiter creates a new admission controller
func NewLimiter(store counter.Store, abuse AbuseRecorder, config Config, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		abuse:  abuse,
		config: config,
		logger: logger,
	}
}

// Admit decides whether to admit or reject the request.
//
// Every rejection writes exactly one AbuseRecord; admitted requests never
// write one. A store failure is not a policy violation - depending on
// FailOpen it either admits (logged) or rejects WITHOUT an abuse record,
// and the error is returned so callers can observe store health.
func (l *Limiter) Admit(ctx context.Context, req Request) (Decision, error) {
	capacity := l.capacityFor(req.Class)

	if !l.config.Enabled {
		return Decision{Admitted: true, Remaining: capacity}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", req.Class, req.Identity)

	remaining, err := l.store.InitDecr(ctx, key, capacity, l.config.Window)
	if err != nil {
		if l.config.FailOpen {
			l.logger.Warn("counter store unavailable, admitting (fail-open)",
				"event_class", string(req.Class),
				"identity", req.Identity,
				"error", err,
			)
			return Decision{Admitted: true, Remaining: capacity}, err
		}
		l.logger.Error("counter store unavailable, rejecting (fail-closed)",
			"event_class", string(req.Class),
			"identity", req.Identity,
			"error", err,
		)
		return Decision{Admitted: false, RetryAfter: l.config.Window}, err
	}

	if remaining >= 0 {
		metrics.RecordAdmissionAllowed(string(req.Class))
		return Decision{Admitted: true, Remaining: remaining}, nil
	}

	// Tokens exhausted: one durable abuse record per rejection
	l.recordAbuse(ctx, req)
	metrics.RecordAdmissionRejected(string(req.Class))

	return Decision{Admitted: false, RetryAfter: l.config.Window}, nil
}

func (l *Limiter) capacityFor(class domain.EventClass) int64 {
	if class == domain.EventExcessivePost {
		return l.config.PostCapacity
	}
	return l.config.GetCapacity
}

func (l *Limiter) recordAbuse(ctx context.Context, req Request) {
	record := domain.NewAbuseRecord(req.Class, req.ShortKey, req.Identity, req.UserAgent, req.Referer)

	if err := l.abuse.Create(ctx, record); err != nil {
		// The rejection stands even if the audit write fails
		l.logger.Error("failed to record abuse event",
			"event_class", string(req.Class),
			"identity", req.Identity,
			"error", err,
		)
		return
	}

	metrics.RecordAbuseRecord(string(req.Class))
	l.logger.Warn("abuse event recorded",
		"event_class", string(req.Class),
		"identity", req.Identity,
		"short_key", req.ShortKey,
	)
}
