package infra

import (
	"context"
	"testing"
	"time"
)

func TestChanPool_ZeroMaxIsUnbounded(t *testing.T) {
	if p := NewChanPool(0); p != nil {
		t.Fatalf("expected nil pool for max=0")
	}
}

func TestChanPool_BlocksWhenFull(t *testing.T) {
	p := NewChanPool(1)

	release, ok := p.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.InUse() != 1 || p.Capacity() != 1 {
		t.Fatalf("unexpected usage %d/%d", p.InUse(), p.Capacity())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail while full")
	}

	release()
	release() // idempotente
	if p.InUse() != 0 {
		t.Fatalf("expected slot released, got %d in use", p.InUse())
	}
	if _, ok := p.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestChanPool_FreeSlotWinsOverCancelledContext(t *testing.T) {
	p := NewChanPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := p.Acquire(ctx); !ok {
		t.Fatalf("expected free slot to be taken even with cancelled ctx")
	}
}
