package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	limiter := New(time.Second)
	if limiter == nil {
		t.Fatal("New() returned nil")
	}
	if limiter.keys == nil {
		t.Fatal("New() returned limiter with nil keys map")
	}
	if limiter.minInterval != time.Second {
		t.Errorf("New() minInterval = %v, want %v", limiter.minInterval, time.Second)
	}
}

func TestAllow_FirstRequest(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	if !limiter.Allow("user-1") {
		t.Error("Allow() should return true for first request to a key")
	}
}

func TestAllow_SecondRequestTooSoon(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if limiter.Allow("user-1") {
		t.Error("Allow() should return false for second request before minInterval")
	}
}

func TestAllow_SecondRequestAfterInterval(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	limiter.Allow("user-1")
	time.Sleep(60 * time.Millisecond)

	if !limiter.Allow("user-1") {
		t.Error("Allow() should return true after minInterval has passed")
	}
}

func TestAllow_DifferentKeys(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if !limiter.Allow("user-2") {
		t.Error("Allow() should return true for different key")
	}
}

func TestWait_FirstRequest(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	start := time.Now()
	_ = limiter.Wait(context.Background(), "user-1")
	elapsed := time.Since(start)

	if elapsed >= 50*time.Millisecond {
		t.Error("Wait() should not wait for first request")
	}
}

func TestWait_SecondRequestWaits(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	_ = limiter.Wait(context.Background(), "user-1")
	start := time.Now()
	_ = limiter.Wait(context.Background(), "user-1")
	elapsed := time.Since(start)

	// Should wait close to 50ms (allow some tolerance)
	if elapsed < 40*time.Millisecond {
		t.Errorf("Wait() should wait for minInterval, elapsed: %v", elapsed)
	}
}

func TestWait_DifferentKeysNoWait(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	_ = limiter.Wait(context.Background(), "user-1")
	start := time.Now()
	_ = limiter.Wait(context.Background(), "user-2")
	elapsed := time.Since(start)

	if elapsed >= 50*time.Millisecond {
		t.Error("Wait() should not wait for different key")
	}
}

func TestReset(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if limiter.Allow("user-1") {
		t.Fatal("Second Allow() should return false before reset")
	}

	limiter.Reset("user-1")

	if !limiter.Allow("user-1") {
		t.Error("Allow() should return true after Reset()")
	}
}

func TestResetAll(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	limiter.Allow("user-2")

	limiter.ResetAll()

	if !limiter.Allow("user-1") {
		t.Error("Allow() should return true after ResetAll()")
	}
	if !limiter.Allow("user-2") {
		t.Error("Allow() should return true after ResetAll()")
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := New(10 * time.Millisecond)
	var wg sync.WaitGroup

	// Spawn multiple goroutines accessing the same key
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				limiter.Allow("user-1")
				limiter.Reset("user-1")
			}
		}()
	}

	// Spawn multiple goroutines accessing different keys
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			key := "user-" + string(rune('a'+idx))
			_ = limiter.Wait(context.Background(), key)
		}(i)
	}

	wg.Wait()
	// If we get here without race conditions, test passes
}

func TestWait_PartialIntervalElapsed(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	_ = limiter.Wait(context.Background(), "user-1")
	time.Sleep(30 * time.Millisecond) // Wait part of the interval

	start := time.Now()
	_ = limiter.Wait(context.Background(), "user-1")
	elapsed := time.Since(start)

	// Should wait approximately 70ms (100ms - 30ms already elapsed)
	if elapsed < 60*time.Millisecond || elapsed > 90*time.Millisecond {
		t.Errorf("Wait() should wait for remaining interval, elapsed: %v", elapsed)
	}
}

func TestAllow_UpdatesTimestamp(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	limiter.Allow("user-1")
	time.Sleep(30 * time.Millisecond)
	limiter.Allow("user-1") // Should fail but not update timestamp

	time.Sleep(30 * time.Millisecond) // 60ms total from first Allow

	if !limiter.Allow("user-1") {
		t.Error("Allow() should return true after original minInterval has passed")
	}
}

func TestReset_NonExistentKey(t *testing.T) {
	limiter := New(time.Second)

	// Should not panic
	limiter.Reset("user-404")

	// And Allow should work normally
	if !limiter.Allow("user-404") {
		t.Error("Allow() should return true for key after Reset()")
	}
}

func TestLimiter_ZeroInterval(t *testing.T) {
	limiter := New(0)

	// All requests should be allowed immediately
	for i := 0; i < 10; i++ {
		if !limiter.Allow("user-1") {
			t.Errorf("Allow() should always return true with zero interval, iteration %d", i)
		}
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	limiter := New(time.Second)
	_ = limiter.Wait(context.Background(), "user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "user-1"); err == nil {
		t.Error("Wait() should return the context error when cancelled")
	}
}
