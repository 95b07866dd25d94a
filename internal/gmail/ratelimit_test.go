package gmail

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockClock provides deterministic time control for tests.
type mockClock struct {
	mu          sync.Mutex
	current     time.Time
	timers      []mockTimer
	timerNotify chan struct{}
}

type mockTimer struct {
	deadline time.Time
	ch       chan time.Time
}

func newMockClock() *mockClock {
	return &mockClock{
		current:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		timerNotify: make(chan struct{}, 1),
	}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *mockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	deadline := c.current.Add(d)
	if !c.current.Before(deadline) {
		ch <- c.current
		return ch
	}
	c.timers = append(c.timers, mockTimer{deadline: deadline, ch: ch})
	select {
	case c.timerNotify <- struct{}{}:
	default:
	}
	return ch
}

// Advance moves the clock forward and fires any pending timers.
func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current
	var remaining []mockTimer
	for _, t := range c.timers {
		if !now.Before(t.deadline) {
			t.ch <- now
		} else {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()
}

func (c *mockClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type rlFixture struct {
	clk *mockClock
	rl  *RateLimiter
}

func newRLFixture() *rlFixture {
	clk := newMockClock()
	return &rlFixture{clk: clk, rl: newRateLimiter(clk, defaultQPS)}
}

func (f *rlFixture) drain() {
	f.rl.mu.Lock()
	defer f.rl.mu.Unlock()
	f.rl.tokens = 0
}

// acquireAsync runs Acquire in a goroutine and waits until it either
// registers a timer on the mock clock or completes.
func (f *rlFixture) acquireAsync(t *testing.T, ctx context.Context, op Operation) <-chan error {
	t.Helper()
	timersBefore := f.clk.timerCount()
	ch := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		ch <- f.rl.Acquire(ctx, op)
		close(done)
	}()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-f.clk.timerNotify:
			if f.clk.timerCount() > timersBefore {
				return ch
			}
		case <-done:
			return ch
		case <-timeout:
			t.Fatal("acquireAsync: timed out waiting for timer or completion")
			return ch
		}
	}
}

func TestOperationCost(t *testing.T) {
	tests := []struct {
		op   Operation
		cost int
	}{
		{OpProfile, 1},
		{OpLabelsList, 1},
		{OpLabelsCreate, 5},
		{OpMessagesList, 5},
		{OpMessagesGet, 5},
		{OpMessagesModify, 5},
		{OpMessagesBatchModify, 50},
		{OpMessagesTrash, 5},
		{OpMessagesDelete, 10},
		{OpMessagesSend, 100},
		{OpDraftsCreate, 10},
		{OpDraftsUpdate, 15},
		{OpDraftsSend, 100},
		{OpDraftsList, 5},
		{Operation(999), 1}, // Unknown operation defaults to 1
	}

	for _, tc := range tests {
		if got := tc.op.Cost(); got != tc.cost {
			t.Errorf("Operation(%d).Cost() = %d, want %d", tc.op, got, tc.cost)
		}
	}
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5.0)

	if rl.capacity != DefaultCapacity {
		t.Errorf("capacity = %v, want %v", rl.capacity, DefaultCapacity)
	}
	if rl.tokens != DefaultCapacity {
		t.Errorf("initial tokens = %v, want %v", rl.tokens, DefaultCapacity)
	}
	if rl.refillRate != DefaultRefillRate {
		t.Errorf("refillRate = %v, want %v", rl.refillRate, DefaultRefillRate)
	}
}

func TestNewRateLimiter_ScaledQPS(t *testing.T) {
	rl := NewRateLimiter(2.5)
	if want := DefaultRefillRate * 0.5; rl.refillRate != want {
		t.Errorf("refillRate at 2.5 QPS = %v, want %v", rl.refillRate, want)
	}

	rl = NewRateLimiter(10.0)
	if rl.refillRate != DefaultRefillRate {
		t.Errorf("refillRate at 10 QPS = %v, want %v (capped)", rl.refillRate, DefaultRefillRate)
	}
}

func TestRateLimiter_TryAcquire(t *testing.T) {
	f := newRLFixture()

	if !f.rl.TryAcquire(OpProfile) {
		t.Error("TryAcquire(OpProfile) should succeed when bucket is full")
	}

	f.drain()

	if f.rl.TryAcquire(OpMessagesSend) {
		t.Error("TryAcquire(OpMessagesSend) should fail when bucket is empty")
	}
}

func TestRateLimiter_Acquire_ContextCancelled(t *testing.T) {
	f := newRLFixture()
	f.drain()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.rl.Acquire(ctx, OpMessagesGet); err != context.Canceled {
		t.Errorf("Acquire() with cancelled context = %v, want context.Canceled", err)
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	f := newRLFixture()
	f.drain()

	if got := f.rl.Available(); got != 0 {
		t.Fatalf("Available() = %v, want 0", got)
	}

	// 1 second refills the full bucket at the default rate
	f.clk.Advance(1 * time.Second)

	if got := f.rl.Available(); got != DefaultCapacity {
		t.Errorf("Available() = %v, want %v", got, float64(DefaultCapacity))
	}
}

func TestRateLimiter_CapacityLimit(t *testing.T) {
	f := newRLFixture()

	f.clk.Advance(10 * time.Second)

	if avail := f.rl.Available(); avail > float64(DefaultCapacity) {
		t.Errorf("Available() = %v, should not exceed capacity %v", avail, DefaultCapacity)
	}
}

func TestRateLimiter_Throttle(t *testing.T) {
	t.Run("DrainsTokensAndBlocksRefill", func(t *testing.T) {
		f := newRLFixture()

		f.rl.Throttle(100 * time.Millisecond)

		if got := f.rl.Available(); got != 0 {
			t.Fatalf("Available() after Throttle = %v, want 0", got)
		}

		// Still within the throttle window
		f.clk.Advance(50 * time.Millisecond)
		if got := f.rl.Available(); got != 0 {
			t.Errorf("Available() inside throttle window = %v, want 0", got)
		}

		f.clk.Advance(60 * time.Millisecond)
		if got := f.rl.Available(); got <= 0 {
			t.Errorf("Available() after throttle expiry = %v, expected > 0", got)
		}
	})

	t.Run("DoesNotShortenBackoff", func(t *testing.T) {
		f := newRLFixture()

		f.rl.Throttle(200 * time.Millisecond)
		f.rl.mu.Lock()
		first := f.rl.throttledUntil
		f.rl.mu.Unlock()

		f.rl.Throttle(50 * time.Millisecond)
		f.rl.mu.Lock()
		second := f.rl.throttledUntil
		f.rl.mu.Unlock()

		if second.Before(first) {
			t.Errorf("Throttle shortened existing backoff: first=%v, second=%v", first, second)
		}
	})

	t.Run("AutoRecoverRate", func(t *testing.T) {
		f := newRLFixture()

		f.rl.Throttle(50 * time.Millisecond)

		f.rl.mu.Lock()
		rate := f.rl.refillRate
		f.rl.mu.Unlock()
		if rate != DefaultRefillRate*throttleRecoveryFactor {
			t.Errorf("refillRate after Throttle = %v, want %v", rate, DefaultRefillRate*throttleRecoveryFactor)
		}

		f.clk.Advance(100 * time.Millisecond)
		f.rl.Available() // triggers refill and auto-recovery

		f.rl.mu.Lock()
		rate = f.rl.refillRate
		f.rl.mu.Unlock()
		if rate != DefaultRefillRate {
			t.Errorf("refillRate after throttle expiry = %v, want %v", rate, DefaultRefillRate)
		}
	})
}

func TestRateLimiter_Acquire_WaitsForThrottle(t *testing.T) {
	f := newRLFixture()

	f.rl.Throttle(100 * time.Millisecond)

	done := f.acquireAsync(t, context.Background(), OpProfile)

	f.clk.Advance(150 * time.Millisecond)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Acquire() error = %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Acquire() did not complete after advancing clock past throttle")
	}
}
