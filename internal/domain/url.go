package domain

import (
	"errors"
	"strings"
	"time"

	"link-shortener/pkg/validator"
)

// URL represents a shortened link in our system
// This is our "domain model" - it contains both data AND behavior (methods)
type URL struct {
	ID          string     // UUID for internal identification
	ShortKey    string     // The short identifier (e.g., "xYz1")
	OriginalURL string     // The full URL to redirect to
	CustomAlias bool       // Whether the key was chosen by the caller
	CreatedAt   time.Time  // When the URL was created
	ExpiresAt   *time.Time // Optional expiration time (pointer = nullable)
	ClickCount  int64      // Cumulative clicks, maintained by the flush worker
	IsActive    bool       // Soft delete flag
	DeletedAt   *time.Time // When the URL was soft-deleted
}

// Domain errors - defining errors as package variables makes them testable
// and allows callers to check for specific error types with errors.Is
var (
	ErrURLNotFound      = errors.New("URL not found")
	ErrURLExpired       = errors.New("URL has expired")
	ErrURLNotActive     = errors.New("URL is not active")
	ErrAliasTaken       = errors.New("alias already in use")
	ErrURLBlacklisted   = errors.New("URL is blacklisted and cannot be shortened")
	ErrShortKeyTooShort = errors.New("short key must be at least 3 characters")
)

// IsExpired checks if the URL has passed its expiration time
func (u *URL) IsExpired() bool {
	// If ExpiresAt is nil (not set), the URL never expires
	if u.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*u.ExpiresAt)
}

// CanBeAccessed checks if the URL can be used for redirection
// This encapsulates business logic in the domain model
func (u *URL) CanBeAccessed() error {
	if !u.IsActive || u.DeletedAt != nil {
		return ErrURLNotActive
	}
	if u.IsExpired() {
		return ErrURLExpired
	}
	return nil
}

// Validate checks if the URL fields are valid
// This is called before saving to the database
func (u *URL) Validate() error {
	if strings.TrimSpace(u.OriginalURL) == "" {
		return validator.ErrEmptyURL
	}

	if err := validator.ValidateURL(u.OriginalURL); err != nil {
		return err
	}

	if len(u.ShortKey) < 3 {
		return ErrShortKeyTooShort
	}

	if u.CustomAlias {
		if err := validator.ValidateCustomAlias(u.ShortKey); err != nil {
			return err
		}
	}

	return nil
}

// NewURL is a constructor function that creates a new URL with sensible defaults
func NewURL(originalURL, shortKey string, customAlias bool) *URL {
	return &URL{
		OriginalURL: originalURL,
		ShortKey:    shortKey,
		CustomAlias: customAlias,
		CreatedAt:   time.Now(),
		IsActive:    true,
	}
}

// WithExpiration sets an expiration time for the URL
func (u *URL) WithExpiration(expiresAt time.Time) *URL {
	u.ExpiresAt = &expiresAt
	return u
}
