package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Reason classifies why a transition was rejected. Rejections are expected,
// user-facing outcomes — not system failures.
type Reason string

const (
	ReasonClaimOnCooldown      Reason = "claim_on_cooldown"      // temporary, retry later
	ReasonBelowMinimum         Reason = "below_minimum"          // user-correctable amount
	ReasonReferralLimitReached Reason = "referral_limit_reached" // permanent for this user
	ReasonInsufficientXP       Reason = "insufficient_xp"        // resolves as XP accrues
	ReasonMintLimitReached     Reason = "mint_limit_reached"     // permanent for this tier/user
	ReasonAlreadyClaimed       Reason = "already_claimed"        // permanent, free tier only
	ReasonPreviousTierRequired Reason = "previous_tier_required" // resolves after lower-tier mint
)

// Rejection is a refused ledger transition, returned as an ordinary error
// value. Infra failures (DB, network, chain) are never Rejections.
type Rejection struct {
	Reason     Reason
	RetryAfter time.Duration // set only for ReasonClaimOnCooldown
}

func (r *Rejection) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rejected: %s (retry after %s)", r.Reason, r.RetryAfter)
	}
	return fmt.Sprintf("rejected: %s", r.Reason)
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// ErrUnknownTier marks a tier identifier outside the catalog. This is a
// caller defect, not a domain rejection.
var ErrUnknownTier = errors.New("unknown tier")

// Store persistence errors, shared with the storage layer.
var (
	ErrNotFound = errors.New("reward state not found")
	ErrConflict = errors.New("reward state version conflict")
)
