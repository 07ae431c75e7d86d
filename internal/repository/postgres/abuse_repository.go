package postgres

import (
	"context"
	"fmt"

	"link-shortener/internal/domain"
	"link-shortener/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// abuseRepository is the PostgreSQL implementation of the append-only
// abuse log. Records are inserted once and never updated or deleted.
type abuseRepository struct {
	db *pgxpool.Pool
}

// NewAbuseRepository creates a new PostgreSQL abuse repository
func NewAbuseRepository(db *pgxpool.Pool) repository.AbuseRepository {
	return &abuseRepository{db: db}
}

// Create appends a new abuse record
func (r *abuseRepository) Create(ctx context.Context, record *domain.AbuseRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO abuse_records (
			id, short_key, event_class, caller_ip, user_agent, referer, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		record.ID,
		record.ShortKey, // Can be nil (NULL in database)
		string(record.EventClass),
		record.CallerIP,
		record.UserAgent,
		record.Referer,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create abuse record: %w", err)
	}

	return nil
}

// List retrieves recent abuse records with pagination, newest first
func (r *abuseRepository) List(ctx context.Context, limit, offset int) ([]*domain.AbuseRecord, error) {
	query := `
		SELECT id, short_key, event_class, caller_ip, user_agent, referer, created_at
		FROM abuse_records
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list abuse records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AbuseRecord
	for rows.Next() {
		record := &domain.AbuseRecord{}
		var class string
		err := rows.Scan(
			&record.ID,
			&record.ShortKey,
			&class,
			&record.CallerIP,
			&record.UserAgent,
			&record.Referer,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan abuse record: %w", err)
		}
		record.EventClass = domain.EventClass(class)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating abuse records: %w", err)
	}

	return records, nil
}
