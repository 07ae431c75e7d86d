package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"
	"link-shortener/internal/ratelimit"
	"link-shortener/pkg/logger"

	"github.com/google/uuid"
)

// Middleware is a function that wraps an http.Handler
// This is the MIDDLEWARE PATTERN in Go
// Middleware can:
// 1. Execute code before the handler
// 2. Execute code after the handler
// 3. Modify the request or response
// 4. Short-circuit the request (e.g., admission rejection)

// LoggingMiddleware logs HTTP requests with structured logging
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware adds a unique request ID to each request
// This is crucial for DISTRIBUTED TRACING and debugging
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		// Add to response headers for client-side tracking
		w.Header().Set("X-Request-ID", requestID)

		// Add to context so handlers can access it
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error
// This prevents the entire server from crashing due to a panic in a handler
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
					)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers
// CORS (Cross-Origin Resource Sharing) allows web apps from different domains to access your API
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow all origins in development (restrict in production!)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Chain combines multiple middleware functions
// This is a helper to make middleware composition cleaner
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		// Apply middleware in reverse order so they execute in the order specified
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Admission is the admission-control decision point.
// Satisfied by ratelimit.Limiter.
type Admission interface {
	Admit(ctx context.Context, req ratelimit.Request) (ratelimit.Decision, error)
}

// AdmissionMiddleware gates an endpoint behind the admission controller.
// Each protected endpoint carries its own event class, so creation and
// redirect traffic consume separate token windows.
//
// Rejections answer 429 with a Retry-After header; the abuse record is
// written inside the limiter, not here.
func AdmissionMiddleware(admission Admission, class domain.EventClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := admission.Admit(r.Context(), ratelimit.Request{
				Class:     class,
				Identity:  extractIP(r),
				ShortKey:  r.PathValue("shortKey"),
				UserAgent: r.UserAgent(),
				Referer:   r.Referer(),
			})
			// err reports counter-store health; the decision already
			// encodes the configured fail-open/fail-closed policy
			_ = err

			if !decision.Admitted {
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP extracts the client IP address from the request
// Handles X-Forwarded-For header for proxies/load balancers
func extractIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by proxies)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header (set by some proxies)
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	// Remove port if present (e.g., "127.0.0.1:12345" -> "127.0.0.1")
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}

	return ip
}

// MetricsMiddleware records Prometheus metrics for HTTP requests
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Track in-flight requests
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)

		// Simplify endpoint for better cardinality
		endpoint := simplifyEndpoint(r.URL.Path)

		metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}

// simplifyEndpoint reduces cardinality by grouping similar endpoints
func simplifyEndpoint(path string) string {
	if path == "/" {
		return "/"
	}

	if strings.HasPrefix(path, "/api/v1/urls/") {
		if strings.HasSuffix(path, "/stats") {
			return "/api/v1/urls/:key/stats"
		}
		return "/api/v1/urls/:id"
	}
	if path == "/api/v1/urls" {
		return "/api/v1/urls"
	}

	if strings.HasPrefix(path, "/api/v1/blacklist") {
		if path == "/api/v1/blacklist" {
			return "/api/v1/blacklist"
		}
		return "/api/v1/blacklist/:id"
	}
	if path == "/api/v1/abuse" {
		return "/api/v1/abuse"
	}

	if path == "/health/live" {
		return "/health/live"
	}
	if path == "/metrics" {
		return "/metrics"
	}

	if strings.HasSuffix(path, "/qr") {
		return "/:shortkey/qr"
	}

	// Short key redirect (catch-all)
	return "/:shortkey"
}
