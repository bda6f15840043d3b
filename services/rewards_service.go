package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/metrics"
	"farcaster-rewards-system/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// commitRetries bounds reload-and-retry on optimistic commit conflicts.
const commitRetries = 3

const leaderboardCacheTTL = 30 * time.Second

// RewardsService bridges the pure ledger to Postgres. All reward mutations
// for a user funnel through mutate: load state + version, run the pure
// transition, commit against that exact version, append a RewardEvent. A
// concurrent writer loses the commit and the transition is re-evaluated
// against the fresh state, so cooldown- and limit-gated operations can
// never double-apply.
type RewardsService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Cache   *redis.Client // optional; nil disables caching
}

func NewRewardsService(db *gorm.DB, catalog *CatalogService, cache *redis.Client) *RewardsService {
	return &RewardsService{DB: db, Catalog: catalog, Cache: cache}
}

var _ ledger.Store = (*RewardsService)(nil)

// EnsureStateRecord ensures a RewardState row exists (idempotent)
func (s *RewardsService) EnsureStateRecord(fid int64) (*models.RewardState, error) {
	var rec models.RewardState
	err := s.DB.Where("fid = ?", fid).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		rec = models.RewardState{
			ID:         uuid.NewString(),
			Fid:        fid,
			MintCounts: map[string]int{},
		}
		if err := s.DB.Create(&rec).Error; err != nil {
			return nil, err
		}
		return &rec, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load implements ledger.Store.
func (s *RewardsService) Load(ctx context.Context, fid int64) (ledger.UserRewardState, int64, error) {
	var rec models.RewardState
	err := s.DB.WithContext(ctx).Where("fid = ?", fid).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.UserRewardState{}, 0, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.UserRewardState{}, 0, err
	}
	return rec.LedgerState(), rec.Version, nil
}

// Save implements ledger.Store: commit a state computed from exactly the
// given version, ledger.ErrConflict otherwise.
func (s *RewardsService) Save(ctx context.Context, state ledger.UserRewardState, version int64) error {
	return commitState(s.DB.WithContext(ctx), state, version)
}

func commitState(tx *gorm.DB, state ledger.UserRewardState, version int64) error {
	var row models.RewardState
	row.SetLedgerState(state)
	row.Version = version + 1

	res := tx.Model(&models.RewardState{}).
		Where("fid = ? AND version = ?", state.Fid, version).
		Select("xp_total", "total_spend_usd", "last_claim_at", "referral_count",
			"mint_counts", "early_bird_claimed", "version").
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledger.ErrConflict
	}
	return nil
}

// eventInfo annotates the RewardEvent appended with a committed transition.
type eventInfo struct {
	Kind     models.RewardEventKind
	Tier     *string
	TaskSlug *string
	Note     string
}

// mutate runs one ledger transition end to end. extra hooks run inside the
// commit transaction (completion rows, referral rows, mint bookkeeping) so
// a lost commit rolls everything back together.
func (s *RewardsService) mutate(ctx context.Context, fid int64, ev eventInfo,
	apply func(ledger.UserRewardState) (ledger.UserRewardState, error),
	extra ...func(tx *gorm.DB) error,
) (ledger.UserRewardState, error) {
	if _, err := s.EnsureStateRecord(fid); err != nil {
		return ledger.UserRewardState{}, err
	}

	for attempt := 0; attempt < commitRetries; attempt++ {
		state, version, err := s.Load(ctx, fid)
		if err != nil {
			return ledger.UserRewardState{}, err
		}

		next, err := apply(state)
		if err != nil {
			if rej, ok := ledger.AsRejection(err); ok {
				metrics.RejectionsTotal.WithLabelValues(string(rej.Reason)).Inc()
			}
			return state, err
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := commitState(tx, next, version); err != nil {
				return err
			}
			event := models.RewardEvent{
				ID:         uuid.NewString(),
				Fid:        fid,
				Kind:       ev.Kind,
				XPDelta:    next.XPTotal - state.XPTotal,
				SpendDelta: next.TotalSpendUsd - state.TotalSpendUsd,
				Tier:       ev.Tier,
				TaskSlug:   ev.TaskSlug,
				Note:       ev.Note,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
			for _, fn := range extra {
				if err := fn(tx); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, ledger.ErrConflict) {
			log.Printf("⚠️ Reward commit conflict for fid=%d (attempt %d/%d), re-evaluating", fid, attempt+1, commitRetries)
			continue
		}
		if err != nil {
			return ledger.UserRewardState{}, err
		}

		if delta := next.XPTotal - state.XPTotal; delta > 0 {
			metrics.XPAwarded.WithLabelValues(string(ev.Kind)).Add(float64(delta))
		}
		log.Printf("🎮 %s applied: fid=%d → XP=%d (Δ%d)", ev.Kind, fid, next.XPTotal, next.XPTotal-state.XPTotal)
		return next, nil
	}
	return ledger.UserRewardState{}, ledger.ErrConflict
}

// Claim performs the daily claim for a user.
func (s *RewardsService) Claim(ctx context.Context, fid int64) (ledger.UserRewardState, error) {
	led := s.Catalog.Ledger()
	state, err := s.mutate(ctx, fid, eventInfo{Kind: models.EventDailyClaim},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyDailyClaim(cur, time.Now().UTC())
		})
	if err == nil {
		metrics.ClaimsTotal.Inc()
	}
	return state, err
}

// Donate credits a donation of amountUsd.
func (s *RewardsService) Donate(ctx context.Context, fid int64, amountUsd float64) (ledger.UserRewardState, error) {
	led := s.Catalog.Ledger()
	state, err := s.mutate(ctx, fid, eventInfo{Kind: models.EventDonation},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyDonation(cur, amountUsd)
		})
	if err == nil {
		metrics.DonationsTotal.Inc()
		metrics.DonatedUsd.Add(amountUsd)
	}
	return state, err
}

// GrantXP is the administrative correction path (admin panel only).
func (s *RewardsService) GrantXP(ctx context.Context, fid int64, xp int64, reason string) (ledger.UserRewardState, error) {
	led := s.Catalog.Ledger()
	return s.mutate(ctx, fid, eventInfo{Kind: models.EventAdminGrant, Note: reason},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyAdminGrant(cur, xp)
		})
}

// LeaderboardEntry is one row of the public XP leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Fid           int64   `json:"fid"`
	Username      string  `json:"username"`
	DisplayName   *string `json:"display_name,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	XPTotal       int64   `json:"xp_total"`
	ReferralCount int     `json:"referral_count"`
}

// Leaderboard returns the top users by XP, joined with mirrored profiles.
// Served from Redis for a short TTL since every profile page hits it.
func (s *RewardsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	cacheKey := fmt.Sprintf("rewards:leaderboard:%d", limit)

	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal([]byte(raw), &entries); err == nil {
				return entries, nil
			}
		} else if err != redis.Nil {
			log.Printf("⚠️ Leaderboard cache read failed: %v", err)
		}
	}

	var entries []LeaderboardEntry
	err := s.DB.WithContext(ctx).Raw(`
		SELECT rs.fid, rs.xp_total, rs.referral_count,
		       COALESCE(pm.username, '') AS username,
		       pm.display_name, pm.avatar_url
		FROM reward_states rs
		LEFT JOIN profile_mirrors pm ON pm.fid = rs.fid AND pm.deleted_at IS NULL
		WHERE rs.deleted_at IS NULL AND (pm.is_banned IS NOT TRUE)
		ORDER BY rs.xp_total DESC, rs.fid ASC
		LIMIT ?
	`, limit).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, raw, leaderboardCacheTTL).Err(); err != nil {
				log.Printf("⚠️ Leaderboard cache write failed: %v", err)
			}
		}
	}
	return entries, nil
}

// History returns paginated reward events for a user plus summary counts.
func (s *RewardsService) History(ctx context.Context, fid int64, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.RewardEvent{}).
		Where("fid = ?", fid).Count(&total).Error; err != nil {
		return nil, err
	}

	var events []models.RewardEvent
	if err := s.DB.WithContext(ctx).
		Where("fid = ?", fid).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&events).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"events":      events,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": totalPages,
	}, nil
}
