package models

import (
	"time"

	"gorm.io/gorm"

	"farcaster-rewards-system/ledger"
)

// RewardState is the persisted ledger state for one Farcaster identity
// (denormalized for leaderboard performance).
type RewardState struct {
	ID  string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Fid int64  `gorm:"uniqueIndex;not null" json:"fid"` // Farcaster numeric ID

	// Core ledger fields
	XPTotal          int64          `json:"xp_total" gorm:"default:0"`
	TotalSpendUsd    float64        `json:"total_spend_usd" gorm:"default:0"`
	LastClaimAt      *time.Time     `json:"last_claim_at,omitempty"`
	ReferralCount    int            `json:"referral_count" gorm:"default:0"`
	MintCounts       map[string]int `json:"mint_counts" gorm:"type:jsonb;serializer:json"`
	EarlyBirdClaimed bool           `json:"early_bird_claimed" gorm:"default:false"`

	// Optimistic-concurrency token: every committed transition bumps it, and
	// a commit against a stale version is rejected instead of overwriting.
	Version int64 `json:"version" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// LedgerState converts the row into the pure ledger value.
func (r *RewardState) LedgerState() ledger.UserRewardState {
	counts := make(map[ledger.Tier]int, len(r.MintCounts))
	for k, v := range r.MintCounts {
		counts[ledger.Tier(k)] = v
	}
	return ledger.UserRewardState{
		Fid:              r.Fid,
		XPTotal:          r.XPTotal,
		TotalSpendUsd:    r.TotalSpendUsd,
		LastClaimAt:      r.LastClaimAt,
		ReferralCount:    r.ReferralCount,
		MintCounts:       counts,
		EarlyBirdClaimed: r.EarlyBirdClaimed,
	}
}

// SetLedgerState writes a ledger value back onto the row (version untouched —
// the storage layer owns that).
func (r *RewardState) SetLedgerState(s ledger.UserRewardState) {
	counts := make(map[string]int, len(s.MintCounts))
	for k, v := range s.MintCounts {
		counts[string(k)] = v
	}
	r.Fid = s.Fid
	r.XPTotal = s.XPTotal
	r.TotalSpendUsd = s.TotalSpendUsd
	r.LastClaimAt = s.LastClaimAt
	r.ReferralCount = s.ReferralCount
	r.MintCounts = counts
	r.EarlyBirdClaimed = s.EarlyBirdClaimed
}
