package ledger

import (
	"testing"
)

// gated catalog mirrors the default but with tier-gating switched on,
// since the shipped catalog disables requires_previous_tier.
func gatedCatalog() Catalog {
	defs := DefaultCatalog().Tiers()
	for i := range defs {
		if defs[i].Tier != TierEarlyBird {
			defs[i].RequiresPreviousTier = true
		}
	}
	return NewCatalog(defs)
}

func TestCanMint_RejectionOrder(t *testing.T) {
	l := testLedger()

	// Terminal "already claimed" must win over temporary "insufficient XP"
	// even when both hold.
	s := NewUserRewardState(1)
	s.XPTotal = 0
	s.EarlyBirdClaimed = true
	s.MintCounts[TierEarlyBird] = 1

	status, err := l.CanMint(s, TierEarlyBird)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if status.Allowed || status.Reason != ReasonAlreadyClaimed {
		t.Errorf("Reason = %s, want %s", status.Reason, ReasonAlreadyClaimed)
	}
}

func TestCanMint_LimitBeforeXP(t *testing.T) {
	l := testLedger()

	// Silver cap reached and XP gate unmet: cap is terminal and wins.
	s := NewUserRewardState(1)
	s.XPTotal = 0
	s.MintCounts[TierSilver] = 2

	status, err := l.CanMint(s, TierSilver)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if status.Reason != ReasonMintLimitReached {
		t.Errorf("Reason = %s, want %s", status.Reason, ReasonMintLimitReached)
	}
}

func TestCanMint_CapWithXPSatisfied(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(1)
	s.XPTotal = 1200
	s.MintCounts[TierSilver] = 2

	status, err := l.CanMint(s, TierSilver)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if status.Allowed || status.Reason != ReasonMintLimitReached {
		t.Errorf("got %+v, want MintLimitReached", status)
	}
}

func TestCanMint_PreviousTierGate(t *testing.T) {
	l := NewLedger(gatedCatalog())

	s := NewUserRewardState(1)
	s.XPTotal = 10000

	status, err := l.CanMint(s, TierGold)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if status.Reason != ReasonPreviousTierRequired {
		t.Errorf("Reason = %s, want %s", status.Reason, ReasonPreviousTierRequired)
	}

	s.MintCounts[TierSilver] = 1
	status, err = l.CanMint(s, TierGold)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if !status.Allowed {
		t.Errorf("gold blocked after silver owned: %+v", status)
	}
}

func TestCanMint_XPBeforePreviousTier(t *testing.T) {
	l := NewLedger(gatedCatalog())

	// Both XP and prerequisite missing: XP check comes first in the order.
	s := NewUserRewardState(1)
	status, err := l.CanMint(s, TierGold)
	if err != nil {
		t.Fatalf("CanMint() error = %v", err)
	}
	if status.Reason != ReasonInsufficientXP {
		t.Errorf("Reason = %s, want %s", status.Reason, ReasonInsufficientXP)
	}
}

func TestXPProgress(t *testing.T) {
	l := testLedger()

	tests := []struct {
		name string
		xp   int64
		tier Tier
		want int
	}{
		{"free tier always full", 0, TierEarlyBird, 100},
		{"zero toward silver", 0, TierSilver, 0},
		{"halfway to silver", 500, TierSilver, 50},
		{"exactly at gate", 1000, TierSilver, 100},
		{"clamped above gate", 4000, TierSilver, 100},
		{"rounding down", 999, TierSilver, 99},
		{"gold fraction", 1000, TierGold, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewUserRewardState(1)
			s.XPTotal = tt.xp
			got, err := l.XPProgress(s, tt.tier)
			if err != nil {
				t.Fatalf("XPProgress() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("XPProgress(%d, %s) = %d, want %d", tt.xp, tt.tier, got, tt.want)
			}
		})
	}
}

func TestCatalogOrdering(t *testing.T) {
	c := DefaultCatalog()

	if c.Entry() != TierEarlyBird {
		t.Errorf("Entry() = %s, want %s", c.Entry(), TierEarlyBird)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}

	order := []Tier{TierEarlyBird, TierSilver, TierGold, TierPlatinum}
	for i, d := range c.Tiers() {
		if d.Tier != order[i] {
			t.Errorf("tier %d = %s, want %s", i, d.Tier, order[i])
		}
	}

	if prev, ok := c.Previous(TierSilver); !ok || prev != TierEarlyBird {
		t.Errorf("Previous(silver) = %s,%v", prev, ok)
	}
	if _, ok := c.Previous(TierEarlyBird); ok {
		t.Error("entry tier has a previous tier")
	}
	if _, ok := c.Get(Tier("diamond")); ok {
		t.Error("Get() found a tier outside the catalog")
	}
}

func TestCatalogSnapshotImmutable(t *testing.T) {
	c := DefaultCatalog()
	tiers := c.Tiers()
	tiers[0].GlobalMintLimit = 1

	again, _ := c.Get(TierEarlyBird)
	if again.GlobalMintLimit != 3000 {
		t.Error("mutating Tiers() result leaked into the catalog")
	}
}
