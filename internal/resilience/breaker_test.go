package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("service unavailable")

func fail(context.Context) error { return errUpstream }
func succeed(context.Context) error { return nil }

// fakeClock returns a breaker whose clock the test advances by hand.
func fakeClock(maxFailures int, cooldown time.Duration) (*Breaker, *time.Time) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := NewBreaker(maxFailures, cooldown)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestClosedBreakerPassesCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
	if b.State() != Closed {
		t.Fatalf("state = %v", b.State())
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	ctx := context.Background()

	for range 2 {
		_ = b.Do(ctx, fail)
	}
	if b.State() != Closed {
		t.Fatal("opened before reaching the threshold")
	}
	_ = b.Do(ctx, fail)

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("err = %v, called = %v; want fast rejection", err, called)
	}
	if b.State() != Open {
		t.Fatalf("state = %v", b.State())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, succeed)
	_ = b.Do(ctx, fail)
	if b.State() != Closed {
		t.Fatal("non-consecutive failures must not open the breaker")
	}
}

func TestHalfOpenTrial(t *testing.T) {
	tests := []struct {
		name  string
		trial func(context.Context) error
		want  State
	}{
		{"success closes", succeed, Closed},
		{"failure reopens", fail, Open},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, now := fakeClock(1, time.Minute)
			ctx := context.Background()
			_ = b.Do(ctx, fail)

			*now = now.Add(59 * time.Second)
			if err := b.Do(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
				t.Fatalf("call during cooldown: %v", err)
			}

			*now = now.Add(2 * time.Second)
			if b.State() != HalfOpen {
				t.Fatalf("state after cooldown = %v", b.State())
			}
			_ = b.Do(ctx, tt.trial)
			if got := b.State(); got != tt.want {
				t.Fatalf("state after trial = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHalfOpenAdmitsOneTrialAtATime(t *testing.T) {
	b, now := fakeClock(1, time.Minute)
	ctx := context.Background()
	_ = b.Do(ctx, fail)
	*now = now.Add(time.Minute)

	var inner error
	_ = b.Do(ctx, func(context.Context) error {
		inner = b.Do(ctx, succeed)
		return nil
	})
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Fatalf("concurrent trial = %v, want ErrCircuitOpen", inner)
	}
	if b.State() != Closed {
		t.Fatalf("state = %v", b.State())
	}
}

func TestCancellationDoesNotCount(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if b.State() != Closed {
		t.Fatal("cancellation must not open the breaker")
	}

	_ = b.Do(context.Background(), fail)
	if b.State() != Open {
		t.Fatal("expected open after a real failure")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
