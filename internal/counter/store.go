package counter

import (
	"context"
	"time"
)

// PendingClicksKey is the hash holding per-short-key pending click
// deltas. Exactly two components touch it: the aggregator increments
// its fields, the flush worker decrements them. Defined here so both
// sides share one spelling of the namespace.
const PendingClicksKey = "clicks"

// Pending is one field of a pending-counter hash: a short key and the
// delta accumulated for it since its last successful flush.
type Pending struct {
	Key   string
	Delta int64
}

// Store is the shared atomic counter store used by both the admission
// controller (rate-limit tokens) and the click pipeline (pending deltas).
//
// The interface deliberately exposes ONLY single-operation atomic
// primitives. A separate read followed by a write would let two concurrent
// callers observe the same value and both act on it - the classic
// lost-update race. Every mutation here completes in one round trip
// against the backing store.
//
// The store is an injected handle, never package-level state, so every
// component using it can be tested against the in-memory implementation.
type Store interface {
	// InitDecr atomically initializes key to capacity with the given TTL
	// if it does not exist, then decrements it by one, returning the
	// post-decrement value. A negative return means the caller lost the
	// race for the last token.
	InitDecr(ctx context.Context, key string, capacity int64, ttl time.Duration) (int64, error)

	// HIncrBy atomically increments a hash field, returning the new value
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// Expire sets (or refreshes) the TTL of a key. Used to bound the
	// lifetime of the pending-counter namespace if the flush worker is
	// down for an extended period.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// HScan walks a hash incrementally. It returns a page of fields, the
	// cursor for the next page, and cursor 0 when the walk is complete.
	// An incremental scan never blocks concurrent writers, so fields
	// incremented mid-scan surface in this walk or the next one.
	HScan(ctx context.Context, key string, cursor uint64, count int64) ([]Pending, uint64, error)

	// HDecrOrRemove decrements a hash field by the amount that was
	// flushed and removes the field only when it drops to zero or below.
	// An increment landing between the flush scan and this call survives
	// as a residual delta for the next run - this is the reason removal
	// is a decrement, never an unconditional delete.
	HDecrOrRemove(ctx context.Context, key, field string, delta int64) error
}
