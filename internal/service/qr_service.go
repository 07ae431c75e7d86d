package service

import (
	"context"
	"fmt"
	"log/slog"

	"link-shortener/internal/repository"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCache caches rendered QR images keyed by short key
type QRCache interface {
	GetQR(ctx context.Context, shortKey string) ([]byte, error)
	SetQR(ctx context.Context, shortKey string, png []byte) error
}

// QRService renders QR code PNGs for short links.
// Rendering is deterministic for a given link, so images are cached the
// same cache-aside way as resolved URLs.
type QRService struct {
	urlRepo repository.URLRepository
	cache   QRCache
	baseURL string
	size    int
	logger  *slog.Logger
}

// NewQRService creates a QR code service
func NewQRService(urlRepo repository.URLRepository, cache QRCache, baseURL string, size int, logger *slog.Logger) *QRService {
	if size <= 0 {
		size = 256
	}

	return &QRService{
		urlRepo: urlRepo,
		cache:   cache,
		baseURL: baseURL,
		size:    size,
		logger:  logger,
	}
}

// Generate returns the QR code PNG for a short link.
// The image encodes the SHORT URL, not the target: scanning must go
// through the redirect so the click is tracked.
func (s *QRService) Generate(ctx context.Context, shortKey string) ([]byte, error) {
	// Only render codes for links that actually exist
	url, err := s.urlRepo.GetByShortKey(ctx, shortKey)
	if err != nil {
		return nil, err
	}
	if err := url.CanBeAccessed(); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetQR(ctx, shortKey)
	if err != nil {
		s.logger.Warn("QR cache lookup failed", "short_key", shortKey, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	shortURL := fmt.Sprintf("%s/%s", s.baseURL, shortKey)
	png, err := qrcode.Encode(shortURL, qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	if err := s.cache.SetQR(ctx, shortKey, png); err != nil {
		s.logger.Warn("failed to cache QR code", "short_key", shortKey, "error", err)
	}

	return png, nil
}
