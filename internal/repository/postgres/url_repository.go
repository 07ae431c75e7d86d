package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// urlRepository is the PostgreSQL implementation of repository.URLRepository
// The lowercase name means it's private to this package
// We return it as the interface type (repository.URLRepository) for abstraction
type urlRepository struct {
	db *pgxpool.Pool // Connection pool for database connections
}

// NewURLRepository creates a new PostgreSQL URL repository
func NewURLRepository(db *pgxpool.Pool) repository.URLRepository {
	return &urlRepository{db: db}
}

// Create inserts a new URL into the database
func (r *urlRepository) Create(ctx context.Context, url *domain.URL) error {
	// SQL query with placeholders ($1, $2, etc.) to prevent SQL injection
	// RETURNING id returns the generated UUID after insertion
	query := `
		INSERT INTO urls (
			short_key, original_url, custom_alias, created_at,
			expires_at, is_active, click_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id
	`

	err := r.db.QueryRow(
		ctx,
		query,
		url.ShortKey,
		url.OriginalURL,
		url.CustomAlias,
		url.CreatedAt,
		url.ExpiresAt, // Can be nil (NULL in database)
		url.IsActive,
		url.ClickCount,
	).Scan(&url.ID)

	if err != nil {
		return fmt.Errorf("failed to create URL: %w", err)
	}

	return nil
}

// GetByShortKey retrieves a URL by its short key
func (r *urlRepository) GetByShortKey(ctx context.Context, shortKey string) (*domain.URL, error) {
	query := `
		SELECT id, short_key, original_url, custom_alias, created_at,
		       expires_at, click_count, is_active, deleted_at
		FROM urls
		WHERE short_key = $1 AND deleted_at IS NULL
	`

	url := &domain.URL{}

	err := r.db.QueryRow(ctx, query, shortKey).Scan(
		&url.ID,
		&url.ShortKey,
		&url.OriginalURL,
		&url.CustomAlias,
		&url.CreatedAt,
		&url.ExpiresAt, // pgx handles NULL -> nil conversion automatically
		&url.ClickCount,
		&url.IsActive,
		&url.DeletedAt,
	)

	if err != nil {
		// pgx.ErrNoRows is returned when no rows match the query
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}

	return url, nil
}

// GetByID retrieves a URL by its UUID
func (r *urlRepository) GetByID(ctx context.Context, id string) (*domain.URL, error) {
	query := `
		SELECT id, short_key, original_url, custom_alias, created_at,
		       expires_at, click_count, is_active, deleted_at
		FROM urls
		WHERE id = $1
	`

	url := &domain.URL{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&url.ID,
		&url.ShortKey,
		&url.OriginalURL,
		&url.CustomAlias,
		&url.CreatedAt,
		&url.ExpiresAt,
		&url.ClickCount,
		&url.IsActive,
		&url.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get URL: %w", err)
	}

	return url, nil
}

// Delete performs a soft delete (sets deleted_at and clears is_active)
func (r *urlRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE urls SET is_active = false, deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrURLNotFound
	}

	return nil
}

// ExistsShortKey checks if a short key already exists
func (r *urlRepository) ExistsShortKey(ctx context.Context, shortKey string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_key = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, shortKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check short key existence: %w", err)
	}

	return exists, nil
}

// ApplyClickDeltas applies one batch of additive click-count updates.
//
// ATOMIC, ADDITIVE, COMMUTATIVE: each row update is
// `click_count = click_count + delta`, never an absolute overwrite.
// Concurrent flush attempts or a retry after a partial failure can only
// add the same delta once more at worst, never regress the counter.
// All updates in the batch ride one pgx.Batch (a single round trip) and
// one transaction, so a batch either lands completely or not at all -
// which is what lets the flush worker keep the pending deltas on failure
// and retry the whole batch safely.
func (r *urlRepository) ApplyClickDeltas(ctx context.Context, deltas []domain.ClickDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range deltas {
		batch.Queue(
			`UPDATE urls SET click_count = click_count + $1 WHERE short_key = $2`,
			d.Delta, d.ShortKey,
		)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin click delta transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op after a successful commit

	results := tx.SendBatch(ctx, batch)
	for range deltas {
		// A key with no matching row (deleted link) is not an error:
		// the exec succeeds with zero rows affected and the delta is
		// dropped with the row it belonged to
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to apply click delta batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close click delta batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click delta batch: %w", err)
	}

	return nil
}

// DeactivateExpired flips is_active off for every URL whose expiry has
// passed, in one bulk statement
func (r *urlRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE urls
		SET is_active = FALSE
		WHERE expires_at IS NOT NULL
		  AND expires_at <= $1
		  AND is_active = TRUE
		  AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired URLs: %w", err)
	}

	return result.RowsAffected(), nil
}

// PurgeDeleted permanently removes rows soft-deleted before the cutoff
func (r *urlRepository) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM urls
		WHERE deleted_at IS NOT NULL
		  AND deleted_at <= $1
	`

	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted URLs: %w", err)
	}

	return result.RowsAffected(), nil
}

// InitDB initializes the database connection pool
// This is called once at application startup
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool settings
	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnLifetime = maxLifetime
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
