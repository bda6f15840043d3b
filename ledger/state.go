package ledger

import "time"

// Reward rates (observed production configuration).
const (
	DailyClaimXP     int64 = 10
	DailyClaimFeeUsd       = 0.14
	XPPerUsd         int64 = 50
	MinDonationUsd         = 1.0
	// MaxDonationUsd bounds a single donation. Amounts are client-supplied
	// floats; without a ceiling the XP conversion could overflow int64 and
	// push XPTotal negative.
	MaxDonationUsd = 1_000_000.0
	ReferralXP       int64 = 20
	MaxReferrals           = 15
	ClaimCooldown          = 24 * time.Hour
)

// UserRewardState is the complete reward state for one Farcaster identity.
// It is a value: every ledger operation returns a fresh copy and leaves its
// input untouched, so a rejected transition can never half-apply.
type UserRewardState struct {
	Fid              int64        `json:"fid"`
	XPTotal          int64        `json:"xp_total"`
	TotalSpendUsd    float64      `json:"total_spend_usd"`
	LastClaimAt      *time.Time   `json:"last_claim_at,omitempty"` // nil = never claimed
	ReferralCount    int          `json:"referral_count"`
	MintCounts       map[Tier]int `json:"mint_counts"`
	EarlyBirdClaimed bool         `json:"early_bird_claimed"`
}

// NewUserRewardState returns the zero state created on first sign-in.
func NewUserRewardState(fid int64) UserRewardState {
	return UserRewardState{Fid: fid, MintCounts: map[Tier]int{}}
}

// MintCount returns how many units of a tier this user has minted.
func (s UserRewardState) MintCount(t Tier) int { return s.MintCounts[t] }

// clone deep-copies the state so transitions never alias the caller's map
// or timestamp pointer.
func (s UserRewardState) clone() UserRewardState {
	next := s
	next.MintCounts = make(map[Tier]int, len(s.MintCounts)+1)
	for k, v := range s.MintCounts {
		next.MintCounts[k] = v
	}
	if s.LastClaimAt != nil {
		t := *s.LastClaimAt
		next.LastClaimAt = &t
	}
	return next
}
