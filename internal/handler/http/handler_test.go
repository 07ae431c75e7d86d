package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockURLService is a mock implementation of URLService
type MockURLService struct {
	mock.Mock
}

func (m *MockURLService) CreateShortURL(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time, callerIP, userAgent, referer string) (*domain.URL, error) {
	args := m.Called(ctx, originalURL, customAlias, expiresAt, callerIP, userAgent, referer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockURLService) ResolveURL(ctx context.Context, shortKey string) (*domain.URL, error) {
	args := m.Called(ctx, shortKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockURLService) TrackClick(shortKey, callerIP, userAgent, referer string) {
	m.Called(shortKey, callerIP, userAgent, referer)
}

func (m *MockURLService) GetURLStats(ctx context.Context, shortKey string) (*domain.URL, error) {
	args := m.Called(ctx, shortKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URL), args.Error(1)
}

func (m *MockURLService) DeleteURL(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAdminService is a mock implementation of AdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) AddBlacklistPattern(ctx context.Context, pattern string) (*domain.BlacklistEntry, error) {
	args := m.Called(ctx, pattern)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BlacklistEntry), args.Error(1)
}

func (m *MockAdminService) ListBlacklist(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BlacklistEntry), args.Error(1)
}

func (m *MockAdminService) RemoveBlacklistPattern(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAdminService) ListAbuseRecords(ctx context.Context, limit, offset int) ([]*domain.AbuseRecord, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AbuseRecord), args.Error(1)
}

// MockQRService is a mock implementation of QRService
type MockQRService struct {
	mock.Mock
}

func (m *MockQRService) Generate(ctx context.Context, shortKey string) ([]byte, error) {
	args := m.Called(ctx, shortKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// stubAdmission is a fixed admission decision for router tests
type stubAdmission struct {
	admit bool
}

func (s *stubAdmission) Admit(_ context.Context, _ ratelimit.Request) (ratelimit.Decision, error) {
	if s.admit {
		return ratelimit.Decision{Admitted: true, Remaining: 19}, nil
	}
	return ratelimit.Decision{Admitted: false, RetryAfter: 60 * time.Second}, nil
}

// ==================== HELPER FUNCTIONS ====================

type handlerMocks struct {
	urlService   *MockURLService
	adminService *MockAdminService
	qrService    *MockQRService
}

func setupTestRouter(admit bool) (http.Handler, *handlerMocks) {
	m := &handlerMocks{
		urlService:   new(MockURLService),
		adminService: new(MockAdminService),
		qrService:    new(MockQRService),
	}

	logger := slog.New(slog.DiscardHandler)
	handler := NewHandler(m.urlService, m.adminService, m.qrService, logger, "http://localhost:8080")
	return NewRouter(handler, &stubAdmission{admit: admit}, true), m
}

// ==================== CREATE URL TESTS ====================

func TestCreateURL_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	expectedURL := &domain.URL{
		ID:          "123",
		ShortKey:    "abc123",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now(),
		IsActive:    true,
	}

	m.urlService.On("CreateShortURL", mock.Anything, "https://example.com", "", (*time.Time)(nil), mock.Anything, mock.Anything, mock.Anything).
		Return(expectedURL, nil)

	body := `{"url": "https://example.com"}`
	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "abc123", data["short_key"])
	assert.Equal(t, "https://example.com", data["original_url"])
	assert.Contains(t, data["short_url"], "abc123")

	m.urlService.AssertExpectations(t)
}

func TestCreateURL_InvalidJSON(t *testing.T) {
	// Arrange
	router, _ := setupTestRouter(true)

	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(`{invalid json}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Invalid JSON")
}

func TestCreateURL_MissingURL(t *testing.T) {
	// Arrange
	router, _ := setupTestRouter(true)

	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(`{"custom_alias": "test"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "URL is required")
}

func TestCreateURL_BlacklistedTarget(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	m.urlService.On("CreateShortURL", mock.Anything, "https://malware-site.example", "", (*time.Time)(nil), mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrURLBlacklisted)

	body := `{"url": "https://malware-site.example"}`
	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateURL_AliasTaken(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	m.urlService.On("CreateShortURL", mock.Anything, "https://example.com", "taken", (*time.Time)(nil), mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrAliasTaken)

	body := `{"url": "https://example.com", "custom_alias": "taken"}`
	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusConflict, w.Code)
}

// ==================== ADMISSION TESTS ====================

func TestCreateURL_RateLimited(t *testing.T) {
	// Arrange: admission controller rejects everything
	router, m := setupTestRouter(false)

	body := `{"url": "https://example.com"}`
	req := httptest.NewRequest("POST", "/api/v1/urls", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	// The handler chain is short-circuited before the service
	m.urlService.AssertNotCalled(t, "CreateShortURL")
}

func TestRedirectURL_RateLimited(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(false)

	req := httptest.NewRequest("GET", "/abc123", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	m.urlService.AssertNotCalled(t, "ResolveURL")
}

func TestHealthCheck_NotRateLimited(t *testing.T) {
	// Arrange: probes must keep working even when everything is rejected
	router, _ := setupTestRouter(false)

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==================== REDIRECT URL TESTS ====================

func TestRedirectURL_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	url := &domain.URL{
		ID:          "123",
		ShortKey:    "abc123",
		OriginalURL: "https://example.com",
		IsActive:    true,
	}

	m.urlService.On("ResolveURL", mock.Anything, "abc123").Return(url, nil)
	m.urlService.On("TrackClick", "abc123", mock.Anything, mock.Anything, mock.Anything).Return()

	req := httptest.NewRequest("GET", "/abc123", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	m.urlService.AssertExpectations(t)
}

func TestRedirectURL_NotFound(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	m.urlService.On("ResolveURL", mock.Anything, "notfound").Return(nil, domain.ErrURLNotFound)

	req := httptest.NewRequest("GET", "/notfound", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
	// A failed resolution is not a click
	m.urlService.AssertNotCalled(t, "TrackClick")
}

func TestRedirectURL_Expired(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	m.urlService.On("ResolveURL", mock.Anything, "oldlink").Return(nil, domain.ErrURLExpired)

	req := httptest.NewRequest("GET", "/oldlink", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusGone, w.Code)
}

// ==================== GET URL STATS TESTS ====================

func TestGetURLStats_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	url := &domain.URL{
		ID:          "123",
		ShortKey:    "abc123",
		OriginalURL: "https://example.com",
		ClickCount:  42,
		IsActive:    true,
	}

	m.urlService.On("GetURLStats", mock.Anything, "abc123").Return(url, nil)

	req := httptest.NewRequest("GET", "/api/v1/urls/abc123/stats", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "abc123", data["short_key"])
	assert.Equal(t, float64(42), data["clicks"]) // JSON numbers are float64

	m.urlService.AssertExpectations(t)
}

// ==================== QR CODE TESTS ====================

func TestQRCode_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	png := []byte{0x89, 'P', 'N', 'G'}
	m.qrService.On("Generate", mock.Anything, "abc123").Return(png, nil)

	req := httptest.NewRequest("GET", "/abc123/qr", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
}

func TestQRCode_UnknownKey(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	m.qrService.On("Generate", mock.Anything, "missing").Return(nil, domain.ErrURLNotFound)

	req := httptest.NewRequest("GET", "/missing/qr", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ==================== MODERATION TESTS ====================

func TestAddBlacklistPattern_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	entry := &domain.BlacklistEntry{
		ID:         "bl-1",
		URLPattern: "malware-site.example",
		CreatedAt:  time.Now(),
	}
	m.adminService.On("AddBlacklistPattern", mock.Anything, "malware-site.example").Return(entry, nil)

	body := `{"pattern": "malware-site.example"}`
	req := httptest.NewRequest("POST", "/api/v1/blacklist", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "malware-site.example", data["pattern"])
}

func TestListAbuseRecords_Success(t *testing.T) {
	// Arrange
	router, m := setupTestRouter(true)

	key := "abc123"
	records := []*domain.AbuseRecord{
		{
			ID:         "ab-1",
			ShortKey:   &key,
			EventClass: domain.EventExcessiveGet,
			CallerIP:   "203.0.113.7",
			CreatedAt:  time.Now(),
		},
	}
	m.adminService.On("ListAbuseRecords", mock.Anything, 100, 0).Return(records, nil)

	req := httptest.NewRequest("GET", "/api/v1/abuse", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "excessive-get", first["event_class"])
	assert.Equal(t, "abc123", first["short_key"])
}

// ==================== HEALTH CHECK TESTS ====================

func TestHealthCheck(t *testing.T) {
	// Arrange
	router, _ := setupTestRouter(true)

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()

	// Act
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestMetricsEndpoint_Toggle(t *testing.T) {
	m := &handlerMocks{
		urlService:   new(MockURLService),
		adminService: new(MockAdminService),
		qrService:    new(MockQRService),
	}
	handler := NewHandler(m.urlService, m.adminService, m.qrService, slog.New(slog.DiscardHandler), "http://localhost:8080")

	// Enabled: the scrape endpoint answers
	enabled := NewRouter(handler, &stubAdmission{admit: true}, true)
	w := httptest.NewRecorder()
	enabled.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Disabled: the endpoint is not mounted, so the path falls through
	// to the short-key catch-all and resolves to nothing
	m.urlService.On("ResolveURL", mock.Anything, "metrics").Return(nil, domain.ErrURLNotFound)
	disabled := NewRouter(handler, &stubAdmission{admit: true}, false)
	w = httptest.NewRecorder()
	disabled.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
