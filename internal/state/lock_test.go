package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAcquireLock_Exclusive(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	ctx := context.Background()

	if err := s.AcquireLock(ctx, "run-1", 15*time.Minute); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	err := s.AcquireLock(ctx, "run-2", 15*time.Minute)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second acquire should contend, got %v", err)
	}
}

func TestAcquireLock_ExpiredLockIsReacquirable(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }
	if err := s.AcquireLock(ctx, "run-1", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// holder crashed; TTL elapsed
	s.nowFunc = func() time.Time { return base.Add(2 * time.Minute) }
	if err := s.AcquireLock(ctx, "run-2", time.Minute); err != nil {
		t.Fatalf("expired lock must be reacquirable: %v", err)
	}
}

func TestReleaseLock_AllowsNextAcquire(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	ctx := context.Background()

	if err := s.AcquireLock(ctx, "run-1", 15*time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := s.ReleaseLock(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := s.AcquireLock(ctx, "run-2", 15*time.Minute); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}
