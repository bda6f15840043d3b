package middleware

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiterPool_SweepsIdleEntries(t *testing.T) {
	p := newLimiterPool(rate.Every(time.Second), 1)
	now := time.Now()

	for fid := int64(1); fid <= 100; fid++ {
		p.get(fid, now)
	}
	if got := len(p.users); got != 100 {
		t.Fatalf("len(users) = %d, want 100", got)
	}

	// Everyone goes quiet; the next access past the idle TTL sweeps them.
	later := now.Add(limiterIdleTTL + sweepInterval)
	p.get(999, later)
	if got := len(p.users); got != 1 {
		t.Errorf("len(users) after sweep = %d, want 1", got)
	}
	if _, ok := p.users[999]; !ok {
		t.Error("active fid evicted by sweep")
	}
}

func TestLimiterPool_KeepsActiveEntries(t *testing.T) {
	p := newLimiterPool(rate.Every(time.Second), 1)
	now := time.Now()

	p.get(1, now)
	p.get(2, now)

	// fid 1 stays active, fid 2 goes idle past the TTL.
	t1 := now.Add(sweepInterval)
	p.get(1, t1)

	t2 := now.Add(limiterIdleTTL)
	p.get(3, t2)

	if _, ok := p.users[1]; !ok {
		t.Error("recently active fid was evicted")
	}
	if _, ok := p.users[2]; ok {
		t.Error("idle fid survived the sweep")
	}
	if got := len(p.users); got != 2 {
		t.Errorf("len(users) = %d, want 2", got)
	}
}

func TestLimiterPool_SameLimiterPerFid(t *testing.T) {
	p := newLimiterPool(rate.Every(time.Minute), 1)
	now := time.Now()

	lim := p.get(42, now)
	if !lim.Allow() {
		t.Fatal("first request should pass")
	}
	if p.get(42, now).Allow() {
		t.Error("burst of 1 should reject the second request")
	}
	if !p.get(7, now).Allow() {
		t.Error("a different fid must get its own limiter")
	}
}
