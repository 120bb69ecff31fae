package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLimiter(t *testing.T, cfg LockoutConfig) (*LockoutLimiter, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLockoutLimiter(client, cfg), mini
}

func TestLockAtThreshold(t *testing.T) {
	limiter, _ := testLimiter(t, LockoutConfig{
		Enabled:   true,
		Threshold: 3,
		Duration:  time.Minute,
	})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		count, locked, err := limiter.RecordFailure(ctx, "a@example.com")
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked at %d failures, threshold is 3", i)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
	}

	_, locked, err := limiter.RecordFailure(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !locked {
		t.Fatal("third failure must lock")
	}

	isLocked, err := limiter.IsLocked(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !isLocked {
		t.Error("lock not visible")
	}

	// Another email is unaffected.
	isLocked, err = limiter.IsLocked(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Error("unrelated email locked")
	}
}

func TestLockExpires(t *testing.T) {
	limiter, mini := testLimiter(t, LockoutConfig{
		Enabled:   true,
		Threshold: 1,
		Duration:  time.Minute,
	})
	ctx := context.Background()

	if _, _, err := limiter.RecordFailure(ctx, "a@example.com"); err != nil {
		t.Fatalf("record: %v", err)
	}

	mini.FastForward(2 * time.Minute)

	isLocked, err := limiter.IsLocked(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Error("lock must expire with its window")
	}

	count, err := limiter.FailureCount(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after window", count)
	}
}

func TestFurtherFailuresDoNotExtendLock(t *testing.T) {
	limiter, mini := testLimiter(t, LockoutConfig{
		Enabled:   true,
		Threshold: 1,
		Duration:  time.Minute,
	})
	ctx := context.Background()

	if _, _, err := limiter.RecordFailure(ctx, "a@example.com"); err != nil {
		t.Fatalf("record: %v", err)
	}

	mini.FastForward(50 * time.Second)

	// A failure while locked must not restart the window.
	if _, _, err := limiter.RecordFailure(ctx, "a@example.com"); err != nil {
		t.Fatalf("record while locked: %v", err)
	}

	mini.FastForward(11 * time.Second)

	isLocked, err := limiter.IsLocked(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Error("lock window was extended by a failure during the lock")
	}
}

func TestResetClearsCounterAndLock(t *testing.T) {
	limiter, _ := testLimiter(t, LockoutConfig{
		Enabled:   true,
		Threshold: 1,
		Duration:  time.Minute,
	})
	ctx := context.Background()

	if _, _, err := limiter.RecordFailure(ctx, "a@example.com"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := limiter.Reset(ctx, "a@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	isLocked, err := limiter.IsLocked(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if isLocked {
		t.Error("reset must clear the lock")
	}

	count, err := limiter.FailureCount(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestDisabledLimiterIsNoOp(t *testing.T) {
	limiter, _ := testLimiter(t, LockoutConfig{Enabled: false, Threshold: 1, Duration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, locked, err := limiter.RecordFailure(ctx, "a@example.com"); err != nil || locked {
			t.Fatalf("disabled limiter acted: locked=%v err=%v", locked, err)
		}
	}
	isLocked, err := limiter.IsLocked(ctx, "a@example.com")
	if err != nil || isLocked {
		t.Errorf("disabled limiter locked: %v %v", isLocked, err)
	}
}
