package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryServiceEnforcesLimit(t *testing.T) {
	svc := NewService(Plan{Name: "Daily", Limit: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
			t.Fatalf("Consume #%d: %v", i, err)
		}
	}

	if _, err := svc.Consume(ctx, "user-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	u, err := svc.Get(ctx, "user-1")
	if err != nil || u.Used != 2 || u.Limit != 2 || u.Remaining() != 0 {
		t.Fatalf("unexpected usage %+v %v", u, err)
	}

	other, err := svc.Get(ctx, "user-2")
	if err != nil || other.Used != 0 {
		t.Fatalf("expected independent usage per user, got %+v %v", other, err)
	}
}

func TestMemoryStoreResetsAtUTCMidnight(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	store := newMemoryStore(Plan{Name: "Daily", Limit: 1}, func() time.Time { return now })
	ctx := context.Background()

	u, err := store.Consume(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if !u.ResetsAt.Equal(want) {
		t.Fatalf("ResetsAt = %s, want %s", u.ResetsAt, want)
	}
	if _, err := store.Consume(ctx, "user-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}

	now = want
	u, err = store.Consume(ctx, "user-1", 1)
	if err != nil || u.Used != 1 {
		t.Fatalf("expected fresh period after midnight, got %+v %v", u, err)
	}
}

func TestZeroLimitDisablesEnforcement(t *testing.T) {
	svc := NewService(Plan{Name: "Unlimited", Limit: 0})
	ctx := context.Background()
	if svc.Enabled() {
		t.Fatalf("expected disabled service")
	}
	for i := 0; i < 50; i++ {
		if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
			t.Fatalf("Consume: %v", err)
		}
	}
}

func TestMemoryResetClearsUsage(t *testing.T) {
	svc := NewService(Plan{Name: "Daily", Limit: 1})
	ctx := context.Background()
	if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	u, err := svc.Reset(ctx, "user-1")
	if err != nil || u.Used != 0 {
		t.Fatalf("Reset = %+v, %v", u, err)
	}
	if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
		t.Fatalf("Consume after reset: %v", err)
	}
}

func TestMemoryRefundReturnsUnit(t *testing.T) {
	svc := NewService(Plan{Name: "Daily", Limit: 1})
	ctx := context.Background()
	if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	u, err := svc.Refund(ctx, "user-1", 1)
	if err != nil || u.Used != 0 {
		t.Fatalf("Refund = %+v, %v", u, err)
	}
	if u, err := svc.Refund(ctx, "user-1", 1); err != nil || u.Used != 0 {
		t.Fatalf("refund below zero should clamp, got %+v, %v", u, err)
	}
	if _, err := svc.Consume(ctx, "user-1", 1); err != nil {
		t.Fatalf("Consume after refund: %v", err)
	}
}
