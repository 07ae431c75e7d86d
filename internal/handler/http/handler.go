package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"
	"link-shortener/pkg/validator"
)

// URLService interface defines the service methods needed by the handler
// Using an interface instead of concrete type allows for easy mocking in tests
type URLService interface {
	CreateShortURL(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time, callerIP, userAgent, referer string) (*domain.URL, error)
	ResolveURL(ctx context.Context, shortKey string) (*domain.URL, error)
	TrackClick(shortKey, callerIP, userAgent, referer string)
	GetURLStats(ctx context.Context, shortKey string) (*domain.URL, error)
	DeleteURL(ctx context.Context, id string) error
}

// AdminService covers the moderation surface
type AdminService interface {
	AddBlacklistPattern(ctx context.Context, pattern string) (*domain.BlacklistEntry, error)
	ListBlacklist(ctx context.Context) ([]*domain.BlacklistEntry, error)
	RemoveBlacklistPattern(ctx context.Context, id string) error
	ListAbuseRecords(ctx context.Context, limit, offset int) ([]*domain.AbuseRecord, error)
}

// QRService renders QR images for short links
type QRService interface {
	Generate(ctx context.Context, shortKey string) ([]byte, error)
}

// Handler holds dependencies for HTTP handlers
// This is DEPENDENCY INJECTION - we pass dependencies through the constructor
// instead of using global variables or creating them inside handlers
type Handler struct {
	urlService   URLService
	adminService AdminService
	qrService    QRService
	logger       *slog.Logger
	baseURL      string // Base URL for generating short URLs (e.g., "http://localhost:8080")
}

// NewHandler creates a new HTTP handler
func NewHandler(urlService URLService, adminService AdminService, qrService QRService, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		urlService:   urlService,
		adminService: adminService,
		qrService:    qrService,
		logger:       logger,
		baseURL:      baseURL,
	}
}

// Request/Response DTOs (Data Transfer Objects)
// These are separate from domain models because:
// 1. API contracts should be stable even if domain models change
// 2. We might want to expose/hide certain fields
// 3. We can add API-specific validation

type CreateURLRequest struct {
	URL            string `json:"url"`
	CustomAlias    string `json:"custom_alias,omitempty"`
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
}

type CreateURLResponse struct {
	ID          string     `json:"id"`
	ShortKey    string     `json:"short_key"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type URLStatsResponse struct {
	ID          string     `json:"id"`
	ShortKey    string     `json:"short_key"`
	OriginalURL string     `json:"original_url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type BlacklistRequest struct {
	Pattern string `json:"pattern"`
}

type BlacklistEntryResponse struct {
	ID        string    `json:"id"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"created_at"`
}

type AbuseRecordResponse struct {
	ID         string    `json:"id"`
	ShortKey   string    `json:"short_key,omitempty"`
	EventClass string    `json:"event_class"`
	CallerIP   string    `json:"caller_ip"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateURL handles POST /api/v1/urls
func (h *Handler) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	url, err := h.urlService.CreateShortURL(
		r.Context(),
		req.URL,
		req.CustomAlias,
		expiresAt,
		extractIP(r),
		r.UserAgent(),
		r.Referer(),
	)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to create URL")
		return
	}

	response := CreateURLResponse{
		ID:          url.ID,
		ShortKey:    url.ShortKey,
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, url.ShortKey),
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	}

	respondSuccess(w, http.StatusCreated, response, "URL created successfully")
}

// RedirectURL handles GET /{shortKey}
func (h *Handler) RedirectURL(w http.ResponseWriter, r *http.Request) {
	shortKey := r.PathValue("shortKey")
	if shortKey == "" {
		respondError(w, http.StatusBadRequest, "Short key is required")
		return
	}

	url, err := h.urlService.ResolveURL(r.Context(), shortKey)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to resolve URL")
		return
	}

	// Track the click off the request path: the visitor must never wait
	// for the event channel
	h.urlService.TrackClick(shortKey, extractIP(r), r.UserAgent(), r.Referer())
	metrics.RecordRedirect()

	// 302, not 301: URLs can expire or be deleted, so clients must not
	// cache the redirect forever
	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

// GetURLStats handles GET /api/v1/urls/{shortKey}/stats
func (h *Handler) GetURLStats(w http.ResponseWriter, r *http.Request) {
	shortKey := r.PathValue("shortKey")

	url, err := h.urlService.GetURLStats(r.Context(), shortKey)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to get stats")
		return
	}

	response := URLStatsResponse{
		ID:          url.ID,
		ShortKey:    url.ShortKey,
		OriginalURL: url.OriginalURL,
		Clicks:      url.ClickCount,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	}

	respondSuccess(w, http.StatusOK, response, "")
}

// DeleteURL handles DELETE /api/v1/urls/{id}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.urlService.DeleteURL(r.Context(), id); err != nil {
		h.respondDomainError(w, r, err, "failed to delete URL")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"id": id}, "URL deleted")
}

// QRCode handles GET /{shortKey}/qr
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	shortKey := r.PathValue("shortKey")

	png, err := h.qrService.Generate(r.Context(), shortKey)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to render QR code")
		return
	}

	if err := respondPNG(w, png); err != nil {
		h.logger.Warn("failed to write QR response", "short_key", shortKey, "error", err)
	}
}

// AddBlacklistPattern handles POST /api/v1/blacklist
func (h *Handler) AddBlacklistPattern(w http.ResponseWriter, r *http.Request) {
	var req BlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	defer r.Body.Close()

	if req.Pattern == "" {
		respondError(w, http.StatusBadRequest, "Pattern is required")
		return
	}

	entry, err := h.adminService.AddBlacklistPattern(r.Context(), req.Pattern)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to add blacklist pattern")
		return
	}

	respondSuccess(w, http.StatusCreated, BlacklistEntryResponse{
		ID:        entry.ID,
		Pattern:   entry.URLPattern,
		CreatedAt: entry.CreatedAt,
	}, "Pattern added")
}

// ListBlacklist handles GET /api/v1/blacklist
func (h *Handler) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.adminService.ListBlacklist(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err, "failed to list blacklist")
		return
	}

	response := make([]BlacklistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, BlacklistEntryResponse{
			ID:        entry.ID,
			Pattern:   entry.URLPattern,
			CreatedAt: entry.CreatedAt,
		})
	}

	respondSuccess(w, http.StatusOK, response, "")
}

// RemoveBlacklistPattern handles DELETE /api/v1/blacklist/{id}
func (h *Handler) RemoveBlacklistPattern(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.adminService.RemoveBlacklistPattern(r.Context(), id); err != nil {
		h.respondDomainError(w, r, err, "failed to remove blacklist pattern")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"id": id}, "Pattern removed")
}

// ListAbuseRecords handles GET /api/v1/abuse
func (h *Handler) ListAbuseRecords(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 100)
	offset := parseQueryInt(r, "offset", 0)

	records, err := h.adminService.ListAbuseRecords(r.Context(), limit, offset)
	if err != nil {
		h.respondDomainError(w, r, err, "failed to list abuse records")
		return
	}

	response := make([]AbuseRecordResponse, 0, len(records))
	for _, rec := range records {
		item := AbuseRecordResponse{
			ID:         rec.ID,
			EventClass: string(rec.EventClass),
			CallerIP:   rec.CallerIP,
			UserAgent:  rec.UserAgent,
			Referer:    rec.Referer,
			CreatedAt:  rec.CreatedAt,
		}
		if rec.ShortKey != nil {
			item.ShortKey = *rec.ShortKey
		}
		response = append(response, item)
	}

	respondSuccess(w, http.StatusOK, response, "")
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// respondDomainError maps domain errors to HTTP status codes so the
// handlers stay free of error-classification switch statements
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrURLNotFound):
		respondError(w, http.StatusNotFound, "URL not found")
	case errors.Is(err, domain.ErrURLExpired), errors.Is(err, domain.ErrURLNotActive):
		respondError(w, http.StatusGone, "URL is no longer available")
	case errors.Is(err, domain.ErrAliasTaken):
		respondError(w, http.StatusConflict, "Alias already in use")
	case errors.Is(err, domain.ErrURLBlacklisted):
		respondError(w, http.StatusForbidden, "URL is not allowed")
	case errors.Is(err, validator.ErrInvalidURL),
		errors.Is(err, validator.ErrEmptyURL),
		errors.Is(err, validator.ErrInvalidScheme),
		errors.Is(err, validator.ErrInvalidHost),
		errors.Is(err, validator.ErrInvalidAliasLength),
		errors.Is(err, validator.ErrInvalidAliasFormat),
		errors.Is(err, validator.ErrPatternTooShort),
		errors.Is(err, domain.ErrShortKeyTooShort):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(logMsg, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseQueryInt(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}
	n := 0
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return defaultValue
	}
	return n
}
