package ledger

import (
	"fmt"
	"time"
)

// Ledger evaluates eligibility and applies reward transitions against one
// tier catalog snapshot. It is pure: no clocks, no I/O, no hidden state.
type Ledger struct {
	catalog Catalog
}

func NewLedger(catalog Catalog) *Ledger {
	return &Ledger{catalog: catalog}
}

// Catalog returns the snapshot this ledger evaluates against.
func (l *Ledger) Catalog() Catalog { return l.catalog }

// ClaimStatus is the claimability verdict for the daily claim.
type ClaimStatus struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// MintStatus is the mintability verdict for one tier.
type MintStatus struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

// CanClaim reports whether the daily claim is available at now. A claim is
// available when the user has never claimed, or the last claim is at least
// the full cooldown in the past.
func (l *Ledger) CanClaim(s UserRewardState, now time.Time) ClaimStatus {
	if s.LastClaimAt == nil {
		return ClaimStatus{Allowed: true}
	}
	elapsed := now.Sub(*s.LastClaimAt)
	if elapsed >= ClaimCooldown {
		return ClaimStatus{Allowed: true}
	}
	return ClaimStatus{Allowed: false, RetryAfter: ClaimCooldown - elapsed}
}

// CanMint reports whether the user may mint tier right now. Checks run in a
// fixed order and the first failing check wins: terminal conditions
// (already claimed, limit reached) surface before the merely temporary
// insufficient-XP, so the UI never asks a user to earn XP toward a mint that
// is permanently unavailable to them.
func (l *Ledger) CanMint(s UserRewardState, tier Tier) (MintStatus, error) {
	def, ok := l.catalog.Get(tier)
	if !ok {
		return MintStatus{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	if tier == l.catalog.Entry() && s.EarlyBirdClaimed {
		return MintStatus{Reason: ReasonAlreadyClaimed}, nil
	}
	if def.MaxMintsPerUser > 0 && s.MintCount(tier) >= def.MaxMintsPerUser {
		return MintStatus{Reason: ReasonMintLimitReached}, nil
	}
	if s.XPTotal < def.XPRequirement {
		return MintStatus{Reason: ReasonInsufficientXP}, nil
	}
	if def.RequiresPreviousTier {
		if prev, ok := l.catalog.Previous(tier); ok && s.MintCount(prev) == 0 {
			return MintStatus{Reason: ReasonPreviousTierRequired}, nil
		}
	}
	return MintStatus{Allowed: true}, nil
}

// XPProgress returns how far the user is toward a tier's XP gate, as a
// percentage clamped to [0,100]. A tier with no gate is always 100.
func (l *Ledger) XPProgress(s UserRewardState, tier Tier) (int, error) {
	def, ok := l.catalog.Get(tier)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	if def.XPRequirement <= 0 {
		return 100, nil
	}
	pct := s.XPTotal * 100 / def.XPRequirement
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return int(pct), nil
}
