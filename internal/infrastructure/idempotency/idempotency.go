package idempotency

import (
	"context"
	"time"
)

type State int

const (
	// StateNew means the caller now owns the key and must Complete or Release it.
	StateNew State = iota
	// StateInFlight means another request holds the key and has not finished.
	StateInFlight
	// StateDone means a previous request finished; its payload is returned.
	StateDone
)

type Store interface {
	Begin(ctx context.Context, key string) (State, []byte, error)
	Complete(ctx context.Context, key string, payload []byte) error
	Release(ctx context.Context, key string) error
}

const pendingMarker = "\x00pending"

// DefaultInFlightTTL bounds how long an unfinished request holds its key, so
// a holder that never completes or releases blocks retries only briefly.
const DefaultInFlightTTL = time.Minute

func inFlightTTL(inflight, ttl time.Duration) time.Duration {
	if inflight <= 0 {
		inflight = DefaultInFlightTTL
	}
	if inflight > ttl {
		return ttl
	}
	return inflight
}
