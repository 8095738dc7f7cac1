// Package resilience guards calls to the cloud provider with a circuit
// breaker so a dead endpoint fails fast instead of stalling every flow.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling out while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker opens after maxFailures consecutive failures. After cooldown it
// lets exactly one trial call through; the trial's outcome closes or
// reopens it. Calls arriving while the trial runs are rejected.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current position, moving an expired open breaker to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Do runs fn unless the breaker is open. A failure caused by the caller
// cancelling ctx leaves the breaker untouched.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}
	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	switch {
	case err == nil:
		if b.state != Closed {
			slog.InfoContext(ctx, "circuit breaker closed")
		}
		b.state, b.failures = Closed, 0
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		if b.state == HalfOpen {
			b.state = Open
		}
	default:
		b.failures++
		if b.state == HalfOpen || b.failures >= b.maxFailures {
			if b.state != Open {
				slog.WarnContext(ctx, "circuit breaker opened",
					"failures", b.failures, "cooldown", b.cooldown, "error", err)
			}
			b.state = Open
			b.openedAt = b.now()
		}
	}
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = HalfOpen
	}
	if b.trial {
		return false
	}
	b.trial = true
	return true
}
