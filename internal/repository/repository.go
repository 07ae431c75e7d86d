package repository

import (
	"context"
	"time"

	"link-shortener/internal/domain"
)

// URLRepository defines the interface for URL data access
// This is the "Repository Pattern" - it abstracts data storage
//
// WHY USE AN INTERFACE?
// 1. Testability: We can create mock implementations for testing
// 2. Flexibility: We can swap PostgreSQL for another store without changing business logic
// 3. Dependency Inversion: High-level code doesn't depend on low-level database details
type URLRepository interface {
	// Create inserts a new URL into the database
	Create(ctx context.Context, url *domain.URL) error

	// GetByShortKey retrieves a URL by its short key (e.g., "xYz1")
	GetByShortKey(ctx context.Context, shortKey string) (*domain.URL, error)

	// GetByID retrieves a URL by its UUID
	GetByID(ctx context.Context, id string) (*domain.URL, error)

	// Delete performs a soft delete (sets deleted_at)
	Delete(ctx context.Context, id string) error

	// ExistsShortKey checks if a short key already exists
	// Used to prevent collisions when generating short keys
	ExistsShortKey(ctx context.Context, shortKey string) (bool, error)

	// ApplyClickDeltas applies a batch of additive click-count updates,
	// one `click_count = click_count + delta` per key. The update is
	// commutative and safe to retry: a repeated or concurrent flush can
	// only add, never overwrite, so the counter cannot regress.
	ApplyClickDeltas(ctx context.Context, deltas []domain.ClickDelta) error

	// DeactivateExpired bulk-deactivates every active URL whose expiry
	// has passed, returning the number of rows updated. Expired URLs are
	// also rejected lazily at access time; the bulk pass keeps the table
	// honest for stats and listings.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// PurgeDeleted permanently removes URLs soft-deleted before the
	// cutoff, returning the number of rows deleted. Irreversible.
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)
}

// AbuseRepository defines the interface for the append-only abuse log
type AbuseRepository interface {
	// Create appends one abuse record. Idempotency is not required:
	// a duplicate on retry of the same rejection is acceptable.
	Create(ctx context.Context, record *domain.AbuseRecord) error

	// List retrieves recent abuse records, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.AbuseRecord, error)
}

// BlacklistRepository defines the interface for blacklist pattern storage
type BlacklistRepository interface {
	Create(ctx context.Context, entry *domain.BlacklistEntry) error
	List(ctx context.Context) ([]*domain.BlacklistEntry, error)
	Delete(ctx context.Context, id string) error
}
