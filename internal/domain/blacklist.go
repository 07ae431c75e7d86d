package domain

import "time"

// BlacklistEntry is a URL pattern that may never be shortened.
// Matching is plain substring containment against the submitted URL.
type BlacklistEntry struct {
	ID         string // UUID
	URLPattern string
	CreatedAt  time.Time
}
