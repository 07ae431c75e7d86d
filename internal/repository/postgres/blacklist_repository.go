package postgres

import (
	"context"
	"fmt"

	"link-shortener/internal/domain"
	"link-shortener/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// blacklistRepository is the PostgreSQL implementation for blacklist patterns
type blacklistRepository struct {
	db *pgxpool.Pool
}

// NewBlacklistRepository creates a new PostgreSQL blacklist repository
func NewBlacklistRepository(db *pgxpool.Pool) repository.BlacklistRepository {
	return &blacklistRepository{db: db}
}

// Create inserts a new blacklist pattern
func (r *blacklistRepository) Create(ctx context.Context, entry *domain.BlacklistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `INSERT INTO blacklist_urls (id, url_pattern, created_at) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, entry.ID, entry.URLPattern, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to create blacklist entry: %w", err)
	}

	return nil
}

// List retrieves all blacklist patterns
func (r *blacklistRepository) List(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	query := `SELECT id, url_pattern, created_at FROM blacklist_urls ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklist entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.BlacklistEntry
	for rows.Next() {
		entry := &domain.BlacklistEntry{}
		if err := rows.Scan(&entry.ID, &entry.URLPattern, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist entries: %w", err)
	}

	return entries, nil
}

// Delete removes a blacklist pattern
func (r *blacklistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM blacklist_urls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blacklist entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("blacklist entry not found: %s", id)
	}

	return nil
}
