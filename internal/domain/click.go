package domain

import "time"

// ClickEvent is the transient payload carried on the click event channel.
// It is produced once per admitted redirect and never persisted directly -
// the aggregator folds it into a pending counter, and the flush worker
// reconciles pending counters into the durable click count.
//
// Wire format (JSON) is kept stable because the channel may hold events
// produced by an older build during a rolling deploy.
type ClickEvent struct {
	ShortKey   string    `json:"key"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"ua"`
	Referer    string    `json:"referer"`
	OccurredAt time.Time `json:"ts"`
}

// ClickDelta is one additive click-count update produced by the flush
// worker when it reconciles pending counters into durable storage.
type ClickDelta struct {
	ShortKey string
	Delta    int64
}

// NewClickEvent creates a click event stamped with the current time
func NewClickEvent(shortKey, ip, userAgent, referer string) *ClickEvent {
	return &ClickEvent{
		ShortKey:   shortKey,
		IP:         ip,
		UserAgent:  userAgent,
		Referer:    referer,
		OccurredAt: time.Now().UTC(),
	}
}
