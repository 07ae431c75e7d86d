package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"
	"link-shortener/internal/repository"
	"link-shortener/pkg/base62"
)

// Cache interface for URL caching
// Using an interface allows for easy testing and swapping implementations
type Cache interface {
	GetURL(ctx context.Context, shortKey string) (*domain.URL, error)
	SetURL(ctx context.Context, shortKey string, url *domain.URL) error
	DeleteURL(ctx context.Context, shortKey string) error
}

// ClickPublisher appends click events to the event channel.
// The concrete implementation never returns an error: click tracking is
// best-effort and must not affect the redirect.
type ClickPublisher interface {
	PublishClick(shortKey, ip, userAgent, referer string)
}

// URLService handles business logic for URL operations
// This is the SERVICE LAYER - it sits between HTTP handlers and repositories
//
// WHY HAVE A SERVICE LAYER?
// 1. Business Logic: Complex operations that involve multiple repositories
// 2. Coordination: Creation touches the blacklist, the abuse log and the cache
// 3. Validation: Business rule validation beyond simple field validation
// 4. Reusability: Same logic can be used by HTTP API, gRPC, CLI, etc.
type URLService struct {
	urlRepo       repository.URLRepository
	blacklistRepo repository.BlacklistRepository
	abuseRepo     repository.AbuseRepository
	cache         Cache
	publisher     ClickPublisher
	keyLength     int
	minKeyLen     int
	logger        *slog.Logger
}

// NewURLService creates a new URL service
func NewURLService(
	urlRepo repository.URLRepository,
	blacklistRepo repository.BlacklistRepository,
	abuseRepo repository.AbuseRepository,
	cache Cache,
	publisher ClickPublisher,
	keyLength, minKeyLen int,
	logger *slog.Logger,
) *URLService {
	if keyLength <= 0 {
		keyLength = 7
	}
	if minKeyLen <= 0 {
		minKeyLen = 3
	}

	return &URLService{
		urlRepo:       urlRepo,
		blacklistRepo: blacklistRepo,
		abuseRepo:     abuseRepo,
		cache:         cache,
		publisher:     publisher,
		keyLength:     keyLength,
		minKeyLen:     minKeyLen,
		logger:        logger,
	}
}

// CreateShortURL creates a new shortened URL
// This method orchestrates multiple operations:
// 1. Screen the target against the blacklist
// 2. Determine the short key (custom alias or generated)
// 3. Validate the URL
// 4. Save to database and warm the cache
func (s *URLService) CreateShortURL(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time, callerIP, userAgent, referer string) (*domain.URL, error) {
	// Screen against the blacklist before anything is stored.
	// A match is a policy violation, so it also lands in the abuse log.
	if err := s.checkBlacklist(ctx, originalURL, callerIP, userAgent, referer); err != nil {
		return nil, err
	}

	var shortKey string
	isCustom := customAlias != ""
	if isCustom {
		exists, err := s.urlRepo.ExistsShortKey(ctx, customAlias)
		if err != nil {
			return nil, fmt.Errorf("failed to check alias: %w", err)
		}
		if exists {
			return nil, domain.ErrAliasTaken
		}
		shortKey = customAlias
	} else {
		var err error
		shortKey, err = s.generateUniqueShortKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short key: %w", err)
		}
	}

	url := domain.NewURL(originalURL, shortKey, isCustom)
	if expiresAt != nil {
		url.WithExpiration(*expiresAt)
	}

	// Validate the URL (business rules)
	if err := url.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.urlRepo.Create(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	// Warm the cache for fast first access.
	// We don't fail if caching fails - it's not critical.
	if err := s.cache.SetURL(ctx, shortKey, url); err != nil {
		s.logger.Warn("failed to cache URL", "short_key", shortKey, "error", err)
	}

	metrics.URLsCreatedTotal.Inc()
	s.logger.Info("short URL created", "short_key", shortKey, "custom_alias", isCustom)

	return url, nil
}

// ResolveURL retrieves a URL by its short key for redirection
// Implements CACHE-ASIDE PATTERN for performance
func (s *URLService) ResolveURL(ctx context.Context, shortKey string) (*domain.URL, error) {
	// STEP 0: A malformed key cannot exist, so crawler noise and typos
	// are rejected without touching the cache or the database
	if !s.wellFormedShortKey(shortKey) {
		return nil, domain.ErrURLNotFound
	}

	// STEP 1: Check cache first (cache-aside pattern)
	cachedURL, err := s.cache.GetURL(ctx, shortKey)
	if err != nil {
		// A broken cache must not take resolution down with it
		s.logger.Warn("cache lookup failed", "short_key", shortKey, "error", err)
	}
	if cachedURL != nil {
		if err := cachedURL.CanBeAccessed(); err != nil {
			return nil, err
		}
		return cachedURL, nil
	}

	// STEP 2: Cache miss - get from database
	url, err := s.urlRepo.GetByShortKey(ctx, shortKey)
	if err != nil {
		return nil, err
	}

	// Check if URL can be accessed (not expired, active)
	if err := url.CanBeAccessed(); err != nil {
		return nil, err
	}

	// STEP 3: Store in cache for next time
	if err := s.cache.SetURL(ctx, shortKey, url); err != nil {
		s.logger.Warn("failed to cache URL", "short_key", shortKey, "error", err)
	}

	return url, nil
}

// TrackClick records a click for an admitted redirect.
// Fire-and-forget: the event is appended off the request path and every
// failure is absorbed by the publisher, so the redirect latency never
// includes the event channel. Durable click counts converge once the
// aggregator and flush worker have processed the event.
func (s *URLService) TrackClick(shortKey, callerIP, userAgent, referer string) {
	go s.publisher.PublishClick(shortKey, callerIP, userAgent, referer)
}

// GetURLStats retrieves a URL with its durable click count.
// Clicks still in flight through the event channel land within one
// flush interval.
func (s *URLService) GetURLStats(ctx context.Context, shortKey string) (*domain.URL, error) {
	url, err := s.urlRepo.GetByShortKey(ctx, shortKey)
	if err != nil {
		return nil, err
	}
	return url, nil
}

// DeleteURL soft-deletes a URL and evicts it from cache
func (s *URLService) DeleteURL(ctx context.Context, id string) error {
	url, err := s.urlRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.urlRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete URL: %w", err)
	}

	// Evict so the next resolution sees the deletion immediately
	if err := s.cache.DeleteURL(ctx, url.ShortKey); err != nil {
		s.logger.Warn("failed to evict deleted URL from cache", "short_key", url.ShortKey, "error", err)
	}

	return nil
}

// checkBlacklist rejects targets matching any blacklisted pattern.
// Matching is case-insensitive substring containment, so a pattern like
// "malware-site.example" blocks every path and subdomain under it.
func (s *URLService) checkBlacklist(ctx context.Context, originalURL, callerIP, userAgent, referer string) error {
	entries, err := s.blacklistRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load blacklist: %w", err)
	}

	target := strings.ToLower(originalURL)
	for _, entry := range entries {
		if strings.Contains(target, strings.ToLower(entry.URLPattern)) {
			record := domain.NewAbuseRecord(domain.EventBlacklistViolation, "", callerIP, userAgent, referer)
			if err := s.abuseRepo.Create(ctx, record); err != nil {
				s.logger.Error("failed to record blacklist violation", "error", err)
			}
			metrics.AbuseRecordsTotal.WithLabelValues(string(domain.EventBlacklistViolation)).Inc()

			s.logger.Warn("blacklisted URL rejected",
				"pattern", entry.URLPattern,
				"caller_ip", callerIP,
			)
			return domain.ErrURLBlacklisted
		}
	}

	return nil
}

// wellFormedShortKey reports whether a path segment can possibly be a
// short key: long enough, and drawn from the key alphabet. Generated
// keys are pure base62; custom aliases may add '-' and '_'.
func (s *URLService) wellFormedShortKey(key string) bool {
	if len(key) < s.minKeyLen {
		return false
	}

	stripped := strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return -1
		}
		return r
	}, key)
	return base62.Valid(stripped)
}

// generateUniqueShortKey generates a cryptographically random short key
// and ensures it doesn't collide with existing keys
func (s *URLService) generateUniqueShortKey(ctx context.Context) (string, error) {
	// Collisions are rare with 7 characters (62^7 = ~3.5 trillion
	// possibilities), but they happen, so always check
	for i := 0; i < 10; i++ {
		key, err := base62.Random(s.keyLength)
		if err != nil {
			return "", err
		}

		exists, err := s.urlRepo.ExistsShortKey(ctx, key)
		if err != nil {
			return "", err
		}

		if !exists {
			return key, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique short key after 10 attempts")
}
