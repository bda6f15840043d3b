package ledger

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testLedger() *Ledger {
	return NewLedger(DefaultCatalog())
}

func TestApplyDailyClaim_FirstClaim(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(42)
	s.XPTotal = 100
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next, err := l.ApplyDailyClaim(s, now)
	if err != nil {
		t.Fatalf("ApplyDailyClaim() error = %v", err)
	}
	if next.XPTotal != 110 {
		t.Errorf("XPTotal = %d, want 110", next.XPTotal)
	}
	if next.LastClaimAt == nil || !next.LastClaimAt.Equal(now) {
		t.Errorf("LastClaimAt = %v, want %v", next.LastClaimAt, now)
	}
	if math.Abs(next.TotalSpendUsd-DailyClaimFeeUsd) > 1e-9 {
		t.Errorf("TotalSpendUsd = %v, want %v", next.TotalSpendUsd, DailyClaimFeeUsd)
	}
	// input untouched
	if s.LastClaimAt != nil || s.XPTotal != 100 {
		t.Errorf("input state mutated: %+v", s)
	}
}

func TestApplyDailyClaim_OnCooldown(t *testing.T) {
	l := testLedger()
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewUserRewardState(42)
	s.XPTotal = 100
	s.LastClaimAt = &last

	now := last.Add(6 * time.Hour)
	next, err := l.ApplyDailyClaim(s, now)
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("ApplyDailyClaim() error = %v, want Rejection", err)
	}
	if rej.Reason != ReasonClaimOnCooldown {
		t.Errorf("Reason = %s, want %s", rej.Reason, ReasonClaimOnCooldown)
	}
	if rej.RetryAfter != 18*time.Hour {
		t.Errorf("RetryAfter = %s, want 18h", rej.RetryAfter)
	}
	if next.XPTotal != s.XPTotal || next.LastClaimAt != s.LastClaimAt {
		t.Errorf("rejected claim changed state: %+v", next)
	}
}

func TestCanClaim_CooldownBoundary(t *testing.T) {
	l := testLedger()
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewUserRewardState(1)
	s.LastClaimAt = &last

	tests := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"one second early", last.Add(ClaimCooldown - time.Second), false},
		{"exactly 24h", last.Add(ClaimCooldown), true},
		{"past 24h", last.Add(ClaimCooldown + time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.CanClaim(s, tt.now)
			if got.Allowed != tt.allowed {
				t.Errorf("CanClaim().Allowed = %v, want %v", got.Allowed, tt.allowed)
			}
			if !tt.allowed && got.RetryAfter <= 0 {
				t.Errorf("RetryAfter = %s, want > 0", got.RetryAfter)
			}
		})
	}
}

func TestApplyDonation(t *testing.T) {
	l := testLedger()

	tests := []struct {
		name      string
		amount    float64
		wantXP    int64
		wantRej   Reason
	}{
		{"five dollars", 5, 350, ""},
		{"minimum exactly", 1, 150, ""},
		{"fractional floor", 1.99, 100 + 99, ""},
		{"below minimum", 0.5, 0, ReasonBelowMinimum},
		{"zero", 0, 0, ReasonBelowMinimum},
		{"negative", -3, 0, ReasonBelowMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewUserRewardState(7)
			s.XPTotal = 100
			next, err := l.ApplyDonation(s, tt.amount)
			if tt.wantRej != "" {
				rej, ok := AsRejection(err)
				if !ok || rej.Reason != tt.wantRej {
					t.Fatalf("error = %v, want rejection %s", err, tt.wantRej)
				}
				if next.XPTotal != 100 || next.TotalSpendUsd != 0 {
					t.Errorf("rejected donation changed state: %+v", next)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyDonation(%v) error = %v", tt.amount, err)
			}
			if next.XPTotal != tt.wantXP {
				t.Errorf("XPTotal = %d, want %d", next.XPTotal, tt.wantXP)
			}
			if math.Abs(next.TotalSpendUsd-tt.amount) > 1e-9 {
				t.Errorf("TotalSpendUsd = %v, want %v", next.TotalSpendUsd, tt.amount)
			}
		})
	}
}

func TestApplyReferralCredit_Cap(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(9)

	var err error
	for i := 0; i < MaxReferrals; i++ {
		s, err = l.ApplyReferralCredit(s)
		if err != nil {
			t.Fatalf("referral %d: unexpected error %v", i+1, err)
		}
	}
	if s.ReferralCount != MaxReferrals {
		t.Fatalf("ReferralCount = %d, want %d", s.ReferralCount, MaxReferrals)
	}
	if s.XPTotal != int64(MaxReferrals)*ReferralXP {
		t.Errorf("XPTotal = %d, want %d", s.XPTotal, int64(MaxReferrals)*ReferralXP)
	}

	_, err = l.ApplyReferralCredit(s)
	rej, ok := AsRejection(err)
	if !ok || rej.Reason != ReasonReferralLimitReached {
		t.Fatalf("error = %v, want rejection %s", err, ReasonReferralLimitReached)
	}
}

func TestApplyTaskCompletion(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(3)
	s.XPTotal = 40

	next, err := l.ApplyTaskCompletion(s, 25)
	if err != nil {
		t.Fatalf("ApplyTaskCompletion() error = %v", err)
	}
	if next.XPTotal != 65 {
		t.Errorf("XPTotal = %d, want 65", next.XPTotal)
	}

	if _, err := l.ApplyTaskCompletion(s, -5); err == nil {
		t.Error("negative task reward accepted")
	} else if _, ok := AsRejection(err); ok {
		t.Error("negative task reward classified as domain rejection")
	}
}

func TestApplyAdminGrant(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(2)
	s.XPTotal = 100

	up, err := l.ApplyAdminGrant(s, 500)
	if err != nil {
		t.Fatalf("positive grant error = %v", err)
	}
	if up.XPTotal != 600 {
		t.Errorf("XPTotal = %d, want 600", up.XPTotal)
	}

	down, err := l.ApplyAdminGrant(up, -550)
	if err != nil {
		t.Fatalf("negative grant error = %v", err)
	}
	if down.XPTotal != 50 {
		t.Errorf("XPTotal = %d, want 50", down.XPTotal)
	}

	if _, err := l.ApplyAdminGrant(down, -51); err == nil {
		t.Error("grant below zero accepted")
	} else if _, ok := AsRejection(err); ok {
		t.Error("below-zero grant classified as domain rejection")
	}
}

func TestApplyMint_FreeTierIdempotence(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(5)

	first, err := l.ApplyMint(s, TierEarlyBird)
	if err != nil {
		t.Fatalf("first mint error = %v", err)
	}
	if !first.EarlyBirdClaimed {
		t.Error("EarlyBirdClaimed not set after first free mint")
	}
	if first.MintCount(TierEarlyBird) != 1 {
		t.Errorf("MintCount = %d, want 1", first.MintCount(TierEarlyBird))
	}
	if first.XPTotal != 50 {
		t.Errorf("XPTotal = %d, want 50 (one bonus credit)", first.XPTotal)
	}

	second, err := l.ApplyMint(first, TierEarlyBird)
	rej, ok := AsRejection(err)
	if !ok || rej.Reason != ReasonAlreadyClaimed {
		t.Fatalf("second mint error = %v, want %s", err, ReasonAlreadyClaimed)
	}
	if second.XPTotal != first.XPTotal || second.MintCount(TierEarlyBird) != 1 {
		t.Errorf("second free mint changed state: %+v", second)
	}
}

func TestApplyMint_PerUserCap(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(5)
	s.XPTotal = 5000

	var err error
	for i := 0; i < 2; i++ {
		s, err = l.ApplyMint(s, TierSilver)
		if err != nil {
			t.Fatalf("silver mint %d error = %v", i+1, err)
		}
	}
	if s.MintCount(TierSilver) != 2 {
		t.Fatalf("MintCount = %d, want 2", s.MintCount(TierSilver))
	}

	_, err = l.ApplyMint(s, TierSilver)
	rej, ok := AsRejection(err)
	if !ok || rej.Reason != ReasonMintLimitReached {
		t.Fatalf("third silver mint error = %v, want %s", err, ReasonMintLimitReached)
	}
}

func TestApplyMint_InsufficientXP(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(5)
	s.XPTotal = 999

	_, err := l.ApplyMint(s, TierSilver)
	rej, ok := AsRejection(err)
	if !ok || rej.Reason != ReasonInsufficientXP {
		t.Fatalf("error = %v, want %s", err, ReasonInsufficientXP)
	}
}

func TestApplyMint_UnknownTier(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(5)

	_, err := l.ApplyMint(s, Tier("diamond"))
	if !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("error = %v, want ErrUnknownTier", err)
	}
	if _, ok := AsRejection(err); ok {
		t.Error("unknown tier classified as domain rejection")
	}
}

// XPTotal never decreases over any sequence of operations, accepted or
// rejected.
func TestXPMonotonicity(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(11)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ops := []func(UserRewardState) (UserRewardState, error){
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyDailyClaim(s, now) },
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyDailyClaim(s, now.Add(time.Hour)) }, // rejected
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyDonation(s, 0.2) },                  // rejected
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyDonation(s, 25) },
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyReferralCredit(s) },
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyMint(s, TierEarlyBird) },
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyMint(s, TierEarlyBird) }, // rejected
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyTaskCompletion(s, 70) },
		func(s UserRewardState) (UserRewardState, error) { return l.ApplyMint(s, TierSilver) },
	}
	for i, op := range ops {
		before := s.XPTotal
		next, err := op(s)
		if err != nil {
			if _, ok := AsRejection(err); !ok {
				t.Fatalf("op %d: non-rejection error %v", i, err)
			}
		}
		if next.XPTotal < before {
			t.Fatalf("op %d: XPTotal decreased %d -> %d", i, before, next.XPTotal)
		}
		s = next
	}
}

// Donation amounts large enough to overflow the XP conversion (or NaN, which
// slips past the minimum check) must be refused with the state untouched,
// never converted into a negative delta.
func TestApplyDonation_AmountBounds(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(7)
	s.XPTotal = 100

	for _, amount := range []float64{1e300, math.Inf(1), math.NaN(), MaxDonationUsd * 2} {
		next, err := l.ApplyDonation(s, amount)
		if err == nil {
			t.Fatalf("ApplyDonation(%v) accepted", amount)
		}
		if _, ok := AsRejection(err); ok {
			t.Errorf("ApplyDonation(%v) classified as rejection, want plain error", amount)
		}
		if next.XPTotal != 100 {
			t.Errorf("ApplyDonation(%v) XPTotal = %d, want 100", amount, next.XPTotal)
		}
	}

	// The largest accepted amount still credits a sane positive delta.
	next, err := l.ApplyDonation(s, MaxDonationUsd)
	if err != nil {
		t.Fatalf("ApplyDonation(MaxDonationUsd) error = %v", err)
	}
	want := int64(100 + MaxDonationUsd*float64(XPPerUsd))
	if next.XPTotal != want {
		t.Errorf("XPTotal = %d, want %d", next.XPTotal, want)
	}
}

func TestClone_NoAliasing(t *testing.T) {
	l := testLedger()
	s := NewUserRewardState(8)
	s.XPTotal = 2000

	next, err := l.ApplyMint(s, TierSilver)
	if err != nil {
		t.Fatalf("ApplyMint() error = %v", err)
	}
	next.MintCounts[TierSilver] = 99
	if s.MintCounts[TierSilver] != 0 {
		t.Error("transition result aliases input mint-count map")
	}
}
