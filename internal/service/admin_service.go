package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/repository"
	"link-shortener/pkg/validator"

	"github.com/google/uuid"
)

// AdminService handles the moderation surface: blacklist patterns and
// the abuse log
type AdminService struct {
	blacklistRepo repository.BlacklistRepository
	abuseRepo     repository.AbuseRepository
	logger        *slog.Logger
}

// NewAdminService creates an admin service
func NewAdminService(blacklistRepo repository.BlacklistRepository, abuseRepo repository.AbuseRepository, logger *slog.Logger) *AdminService {
	return &AdminService{
		blacklistRepo: blacklistRepo,
		abuseRepo:     abuseRepo,
		logger:        logger,
	}
}

// AddBlacklistPattern registers a new blocked URL pattern.
// Matching downstream is case-insensitive substring containment.
func (s *AdminService) AddBlacklistPattern(ctx context.Context, pattern string) (*domain.BlacklistEntry, error) {
	if err := validator.ValidateBlacklistPattern(pattern); err != nil {
		return nil, err
	}

	entry := &domain.BlacklistEntry{
		ID:         uuid.New().String(),
		URLPattern: pattern,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.blacklistRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store blacklist pattern: %w", err)
	}

	s.logger.Info("blacklist pattern added", "pattern", pattern)
	return entry, nil
}

// ListBlacklist returns all registered patterns
func (s *AdminService) ListBlacklist(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	return s.blacklistRepo.List(ctx)
}

// RemoveBlacklistPattern deletes a pattern by ID
func (s *AdminService) RemoveBlacklistPattern(ctx context.Context, id string) error {
	if err := s.blacklistRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete blacklist pattern: %w", err)
	}

	s.logger.Info("blacklist pattern removed", "id", id)
	return nil
}

// ListAbuseRecords returns recent abuse log entries, newest first
func (s *AdminService) ListAbuseRecords(ctx context.Context, limit, offset int) ([]*domain.AbuseRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.abuseRepo.List(ctx, limit, offset)
}
