package state

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
)

func TestStatusRecord_AbsentThenRoundTrip(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	ctx := context.Background()

	rec, err := s.GetStatus(ctx, 42)
	if err != nil {
		t.Fatalf("GetStatus on empty table: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for absent key, got %+v", rec)
	}

	want := StatusRecord{Previous: "understocked", Current: "ok"}
	if err := s.PutStatus(ctx, 42, want); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	rec, err = s.GetStatus(ctx, 42)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec == nil || *rec != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", rec, want)
	}
}

func TestInventoryTotal_AbsentThenRoundTrip(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	ctx := context.Background()

	_, found, err := s.GetInventoryTotal(ctx, 7)
	if err != nil {
		t.Fatalf("GetInventoryTotal: %v", err)
	}
	if found {
		t.Fatalf("expected found=false on empty table")
	}

	if err := s.PutInventoryTotal(ctx, 7, -3); err != nil {
		t.Fatalf("PutInventoryTotal: %v", err)
	}
	total, found, err := s.GetInventoryTotal(ctx, 7)
	if err != nil || !found || total != -3 {
		t.Fatalf("got total=%d found=%v err=%v", total, found, err)
	}
}

func TestSubscribers_DualKeyWriteAndTTL(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "sweep-state")
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	list := []subscribers.Record{{Email: "a@example.com", ProductID: 7, ProductHandle: "widget", SubscribedAt: now}}
	if err := s.PutSubscribersBoth(ctx, 7, "widget", list); err != nil {
		t.Fatalf("PutSubscribersBoth: %v", err)
	}

	for _, key := range []string{SubscriberIDKey(7), SubscriberHandleKey("widget")} {
		got, err := s.GetSubscribers(ctx, key)
		if err != nil {
			t.Fatalf("GetSubscribers(%s): %v", key, err)
		}
		if len(got) != 1 || got[0].Email != "a@example.com" {
			t.Fatalf("GetSubscribers(%s) = %+v", key, got)
		}

		// retention TTL is stamped on every write
		item := mock.table[key]
		exp, ok := item["expires_at"].(*types.AttributeValueMemberN)
		if !ok {
			t.Fatalf("expires_at missing on %s", key)
		}
		wantExp := now.Add(defaultSubscriberTTL).Unix()
		if exp.Value != strconv.FormatInt(wantExp, 10) {
			t.Fatalf("expires_at = %s, want %d", exp.Value, wantExp)
		}
	}
}

func TestGetSubscribers_AbsentIsEmpty(t *testing.T) {
	s := NewStore(newSimpleMock(), "sweep-state")
	got, err := s.GetSubscribers(context.Background(), SubscriberIDKey(1))
	if err != nil {
		t.Fatalf("absent key must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}
