package domain

import "time"

// EventClass categorizes a detected policy violation
type EventClass string

const (
	EventExcessivePost      EventClass = "excessive-post"
	EventExcessiveGet       EventClass = "excessive-get"
	EventBlacklistViolation EventClass = "blacklist-violation"
	EventSpam               EventClass = "spam"
	EventMalware            EventClass = "malware"
	EventPhishing           EventClass = "phishing"
)

// AbuseRecord is a durable audit entry for a detected policy violation.
// Records are append-only: nothing in this system mutates or deletes them.
// Exactly one record is written per rejected request or detected violation.
type AbuseRecord struct {
	ID         string  // UUID
	ShortKey   *string // Nullable: the creation endpoint has no key yet
	EventClass EventClass
	CallerIP   string
	UserAgent  string
	Referer    string
	CreatedAt  time.Time
}

// NewAbuseRecord creates an abuse record stamped with the current time.
// shortKey may be empty for endpoints that are not tied to an existing link.
func NewAbuseRecord(class EventClass, shortKey, callerIP, userAgent, referer string) *AbuseRecord {
	rec := &AbuseRecord{
		EventClass: class,
		CallerIP:   callerIP,
		UserAgent:  userAgent,
		Referer:    referer,
		CreatedAt:  time.Now().UTC(),
	}
	if shortKey != "" {
		rec.ShortKey = &shortKey
	}
	return rec
}
