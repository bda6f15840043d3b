package ledger

import (
	"fmt"
	"math"
	"time"
)

// Transitions. Every operation is (state, input) -> (newState, error): on
// rejection the input state is returned unchanged, on success a fresh copy
// carries the full effect. XPTotal only ever grows through the normal earn
// operations (admin grants are the one correction path that may shrink it)
// and there is deliberately no way to set it to a caller value.

// ApplyDailyClaim performs the once-per-24h claim at now.
func (l *Ledger) ApplyDailyClaim(s UserRewardState, now time.Time) (UserRewardState, error) {
	status := l.CanClaim(s, now)
	if !status.Allowed {
		return s, &Rejection{Reason: ReasonClaimOnCooldown, RetryAfter: status.RetryAfter}
	}
	next := s.clone()
	next.XPTotal += DailyClaimXP
	next.TotalSpendUsd += DailyClaimFeeUsd
	claimedAt := now
	next.LastClaimAt = &claimedAt
	return next, nil
}

// ApplyDonation credits floor(amountUsd * XPPerUsd) XP for a donation at or
// above the minimum. Amounts above MaxDonationUsd, and NaN (which slips past
// the < comparison), are caller defects rather than rejections: the bound
// keeps the conversion well inside int64 range.
func (l *Ledger) ApplyDonation(s UserRewardState, amountUsd float64) (UserRewardState, error) {
	if math.IsNaN(amountUsd) || amountUsd > MaxDonationUsd {
		return s, fmt.Errorf("donation amount %v out of range", amountUsd)
	}
	if amountUsd < MinDonationUsd {
		return s, &Rejection{Reason: ReasonBelowMinimum}
	}
	next := s.clone()
	next.XPTotal += int64(math.Floor(amountUsd * float64(XPPerUsd)))
	next.TotalSpendUsd += amountUsd
	return next, nil
}

// ApplyReferralCredit credits one successful referral. The numeric cap is
// enforced here; distinctness of the referred user is the caller's job
// (a unique index on the referral record in this service).
func (l *Ledger) ApplyReferralCredit(s UserRewardState) (UserRewardState, error) {
	if s.ReferralCount >= MaxReferrals {
		return s, &Rejection{Reason: ReasonReferralLimitReached}
	}
	next := s.clone()
	next.XPTotal += ReferralXP
	next.ReferralCount++
	return next, nil
}

// ApplyTaskCompletion credits a social task's XP reward. Per-task
// distinctness is the caller's job; there is no task cap.
func (l *Ledger) ApplyTaskCompletion(s UserRewardState, taskXP int64) (UserRewardState, error) {
	if taskXP < 0 {
		return s, fmt.Errorf("negative task reward %d", taskXP)
	}
	next := s.clone()
	next.XPTotal += taskXP
	return next, nil
}

// ApplyAdminGrant is the administrative correction path: a named XP
// adjustment outside the normal earn operations, and the only one permitted
// to decrease XPTotal. The balance still never goes negative.
func (l *Ledger) ApplyAdminGrant(s UserRewardState, xp int64) (UserRewardState, error) {
	if s.XPTotal+xp < 0 {
		return s, fmt.Errorf("grant of %d would leave fid %d with negative XP (have %d)", xp, s.Fid, s.XPTotal)
	}
	next := s.clone()
	next.XPTotal += xp
	return next, nil
}

// ApplyMint records one confirmed mint of tier and credits its XP bonus.
// Callers must only invoke this after on-chain confirmation — never
// speculatively — so a reverted transaction can never leave credited XP
// behind. The free tier additionally latches EarlyBirdClaimed, making a
// second free mint rejected rather than double-credited.
func (l *Ledger) ApplyMint(s UserRewardState, tier Tier) (UserRewardState, error) {
	status, err := l.CanMint(s, tier)
	if err != nil {
		return s, err
	}
	if !status.Allowed {
		return s, &Rejection{Reason: status.Reason}
	}
	def, _ := l.catalog.Get(tier)

	next := s.clone()
	next.MintCounts[tier]++
	next.XPTotal += def.XPBonus
	if tier == l.catalog.Entry() {
		next.EarlyBirdClaimed = true
	}
	return next, nil
}
