package infra

import (
	"context"
	"testing"

	"mini-httpd/ratelimit/domain"
)

func TestMemoryStatsStore_CountsByRouteAndStatus(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Method: "GET", Path: "/x", Status: 200})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Method: "GET", Path: "/x", Status: 200})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: false, Status: 429})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got := s.ByStatus(200); got != 2 {
		t.Fatalf("expected 2 responses with 200, got %d", got)
	}

	snap := s.Snapshot()
	if snap.ByRoute["GET /x"].Allowed != 2 {
		t.Fatalf("unexpected route counters: %+v", snap.ByRoute)
	}
	if snap.ByRoute["-"].Denied != 1 {
		t.Fatalf("expected rejection without route under \"-\": %+v", snap.ByRoute)
	}
	if snap.ByStatus["429"] != 1 {
		t.Fatalf("unexpected status counters: %+v", snap.ByStatus)
	}
	if snap.ByKey["b"].Denied != 1 {
		t.Fatalf("unexpected key counters: %+v", snap.ByKey)
	}
}

func TestMemoryStatsStore_SnapshotOmitsKeysWhenNotTracked(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "a", Allowed: true, Status: 200})

	if snap := s.Snapshot(); snap.ByKey != nil {
		t.Fatalf("expected no per-key counters, got %+v", snap.ByKey)
	}
}
