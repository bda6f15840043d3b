package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/metrics"
	"farcaster-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrSelfReferral         = errors.New("cannot redeem your own referral code")
	ErrAlreadyReferred      = errors.New("user already redeemed a referral code")
)

type ReferralService struct {
	DB      *gorm.DB
	Rewards *RewardsService
}

func NewReferralService(db *gorm.DB, rewards *RewardsService) *ReferralService {
	return &ReferralService{DB: db, Rewards: rewards}
}

// Redeem credits the owner of code for referring referredFid. The referral
// row and the referrer's ledger credit commit in one transaction: a cap
// rejection leaves no row behind, and the unique index on referred_fid keeps
// a user from being counted twice even across codes.
func (s *ReferralService) Redeem(ctx context.Context, referredFid int64, code string) (*models.Referral, error) {
	var referrer models.ProfileMirror
	if err := s.DB.WithContext(ctx).Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralCodeNotFound
		}
		return nil, err
	}
	if referrer.Fid == referredFid {
		return nil, ErrSelfReferral
	}

	var existing models.Referral
	err := s.DB.WithContext(ctx).Where("referred_fid = ?", referredFid).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyReferred
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	referral := models.Referral{
		ID:          uuid.NewString(),
		ReferrerFid: referrer.Fid,
		ReferredFid: referredFid,
		CodeUsed:    code,
		XPEarned:    ledger.ReferralXP,
		Credited:    true,
		CreditedAt:  &now,
	}

	led := s.Rewards.Catalog.Ledger()
	_, err = s.Rewards.mutate(ctx, referrer.Fid,
		eventInfo{Kind: models.EventReferral, Note: fmt.Sprintf("referred fid %d via %s", referredFid, code)},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyReferralCredit(cur)
		},
		func(tx *gorm.DB) error {
			return tx.Create(&referral).Error
		})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReferred
		}
		return nil, err
	}

	metrics.ReferralsTotal.Inc()
	log.Printf("🤝 Referral credited: %d referred %d (code %s)", referrer.Fid, referredFid, code)
	return &referral, nil
}

// ListByReferrer returns a user's credited referrals, newest first.
func (s *ReferralService) ListByReferrer(ctx context.Context, fid int64) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.DB.WithContext(ctx).
		Where("referrer_fid = ?", fid).
		Order("created_at DESC").
		Find(&referrals).Error
	return referrals, err
}

// CodeFor returns the user's shareable referral code from the mirrored
// profile. Users not yet mirrored have no code and share the plain fid link.
func (s *ReferralService) CodeFor(ctx context.Context, fid int64) (string, error) {
	var profile models.ProfileMirror
	err := s.DB.WithContext(ctx).Where("fid = ?", fid).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Sprintf("fid-%d", fid), nil
	}
	if err != nil {
		return "", err
	}
	return profile.ReferralCode, nil
}
