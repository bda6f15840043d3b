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
	"gorm.io/gorm/clause"
)

var (
	ErrSupplyExhausted = errors.New("tier global supply exhausted")
	ErrMintReverted    = errors.New("mint transaction reverted on chain")
	ErrMintTimeout     = errors.New("mint confirmation timed out")
)

// MintService runs the two-phase mint flow: eligibility precheck, on-chain
// submission, await a terminal outcome, and only after confirmation apply
// the ledger credit. A reverted transaction never credits XP; one still
// pending when the synchronous window elapses stays pending and is settled
// later by the reconciler, including a late confirmation credit.
type MintService struct {
	DB      *gorm.DB
	Rewards *RewardsService
	Chain   *ChainClient

	// ConfirmWindow bounds the synchronous wait for confirmation; anything
	// still pending afterwards is picked up by the reconciler job.
	ConfirmWindow time.Duration
}

func NewMintService(db *gorm.DB, rewards *RewardsService, chain *ChainClient) *MintService {
	return &MintService{
		DB:            db,
		Rewards:       rewards,
		Chain:         chain,
		ConfirmWindow: 2 * time.Minute,
	}
}

// MintResult is the outcome of a confirmed-and-credited mint.
type MintResult struct {
	State ledger.UserRewardState `json:"state"`
	Tx    models.MintTransaction `json:"tx"`
}

// Mint submits and settles one mint for the user.
func (s *MintService) Mint(ctx context.Context, fid int64, tier ledger.Tier) (*MintResult, error) {
	snap := s.Rewards.Catalog.Snapshot()
	def, ok := snap.Catalog.Get(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownTier, tier)
	}

	if _, err := s.Rewards.EnsureStateRecord(fid); err != nil {
		return nil, err
	}
	state, _, err := s.Rewards.Load(ctx, fid)
	if err != nil {
		return nil, err
	}

	// Precheck so ineligible users never pay gas. The authoritative check
	// re-runs at credit time against the then-current state.
	status, err := snap.Ledger.CanMint(state, tier)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		metrics.RejectionsTotal.WithLabelValues(string(status.Reason)).Inc()
		return nil, &ledger.Rejection{Reason: status.Reason}
	}

	if def.GlobalMintLimit > 0 {
		var supply models.TierSupply
		err := s.DB.WithContext(ctx).Where("tier = ?", string(tier)).First(&supply).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if supply.Minted >= def.GlobalMintLimit {
			metrics.MintsTotal.WithLabelValues(string(tier), "supply_exhausted").Inc()
			return nil, ErrSupplyExhausted
		}
	}

	txHash, err := s.Chain.SubmitMint(ctx, fid, string(tier), def.MintPriceUsd)
	if err != nil {
		return nil, fmt.Errorf("chain submission failed: %w", err)
	}

	mintTx := models.MintTransaction{
		ID:          uuid.NewString(),
		Fid:         fid,
		Tier:        string(tier),
		TxHash:      txHash,
		PriceUsd:    def.MintPriceUsd,
		Status:      models.MintTxPending,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&mintTx).Error; err != nil {
		return nil, err
	}
	log.Printf("⛓️ Mint submitted: fid=%d tier=%s tx=%s", fid, tier, txHash)

	outcome, err := s.Chain.AwaitConfirmation(ctx, txHash, s.ConfirmWindow)
	if err != nil && outcome != models.MintTxTimeout {
		return nil, err
	}
	if outcome == models.MintTxTimeout {
		// The row stays pending: the reconciler keeps polling the relay and
		// credits a late confirmation. Only ResolvePending's maxAge makes a
		// timeout terminal.
		log.Printf("⏳ Mint confirmation window elapsed: fid=%d tier=%s tx=%s", fid, tier, txHash)
		return nil, ErrMintTimeout
	}
	return s.settle(ctx, &mintTx, outcome)
}

// settle drives a mint transaction into its terminal state and, for
// confirmed transactions, applies the ledger credit. Shared with the
// reconciler job.
func (s *MintService) settle(ctx context.Context, mintTx *models.MintTransaction, outcome models.MintTxStatus) (*MintResult, error) {
	now := time.Now().UTC()
	switch outcome {
	case models.MintTxConfirmed:
		state, err := s.creditConfirmed(ctx, mintTx, now)
		if err != nil {
			return nil, err
		}
		metrics.MintsTotal.WithLabelValues(mintTx.Tier, "confirmed").Inc()
		return &MintResult{State: state, Tx: *mintTx}, nil

	case models.MintTxReverted:
		if err := s.markTerminal(ctx, mintTx, models.MintTxReverted, now); err != nil {
			return nil, err
		}
		metrics.MintsTotal.WithLabelValues(mintTx.Tier, "reverted").Inc()
		log.Printf("❌ Mint reverted: fid=%d tier=%s tx=%s", mintTx.Fid, mintTx.Tier, mintTx.TxHash)
		return nil, ErrMintReverted

	case models.MintTxTimeout:
		// Reached only from ResolvePending, once a transaction outlives
		// maxAge with the relay still reporting it pending.
		if err := s.markTerminal(ctx, mintTx, models.MintTxTimeout, now); err != nil {
			return nil, err
		}
		metrics.MintsTotal.WithLabelValues(mintTx.Tier, "timeout").Inc()
		log.Printf("⏳ Mint abandoned after grace period: fid=%d tier=%s tx=%s", mintTx.Fid, mintTx.Tier, mintTx.TxHash)
		return nil, ErrMintTimeout

	default:
		return nil, fmt.Errorf("non-terminal mint outcome %q for tx %s", outcome, mintTx.TxHash)
	}
}

// creditConfirmed applies the ledger mint credit, flips the row to
// confirmed, and bumps the tier supply counter — all in one commit.
func (s *MintService) creditConfirmed(ctx context.Context, mintTx *models.MintTransaction, now time.Time) (ledger.UserRewardState, error) {
	tier := ledger.Tier(mintTx.Tier)
	led := s.Rewards.Catalog.Ledger()

	state, err := s.Rewards.mutate(ctx, mintTx.Fid,
		eventInfo{Kind: models.EventMint, Tier: &mintTx.Tier},
		func(cur ledger.UserRewardState) (ledger.UserRewardState, error) {
			return led.ApplyMint(cur, tier)
		},
		func(tx *gorm.DB) error {
			res := tx.Model(&models.MintTransaction{}).
				Where("id = ? AND status = ?", mintTx.ID, models.MintTxPending).
				Updates(map[string]interface{}{
					"status":      models.MintTxConfirmed,
					"resolved_at": now,
					"xp_credited": true,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Another settle already finalized this tx.
				return ledger.ErrConflict
			}
			return nil
		},
		func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tier"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"minted": gorm.Expr("tier_supplies.minted + 1")}),
			}).Create(&models.TierSupply{Tier: mintTx.Tier, Minted: 1}).Error
		})
	if err != nil {
		if rej, ok := ledger.AsRejection(err); ok {
			// The chain accepted a mint the ledger now refuses (a concurrent
			// mint filled the cap between precheck and confirmation). Keep
			// the confirmed row, skip the XP credit, and flag it for ops.
			if markErr := s.markTerminal(ctx, mintTx, models.MintTxConfirmed, now); markErr != nil {
				return ledger.UserRewardState{}, markErr
			}
			log.Printf("🚨 Confirmed mint not creditable: fid=%d tier=%s tx=%s reason=%s",
				mintTx.Fid, mintTx.Tier, mintTx.TxHash, rej.Reason)
			return ledger.UserRewardState{}, err
		}
		return ledger.UserRewardState{}, err
	}

	mintTx.Status = models.MintTxConfirmed
	mintTx.ResolvedAt = &now
	mintTx.XPCredited = true
	log.Printf("🏅 Mint credited: fid=%d tier=%s tx=%s", mintTx.Fid, mintTx.Tier, mintTx.TxHash)
	return state, nil
}

func (s *MintService) markTerminal(ctx context.Context, mintTx *models.MintTransaction, status models.MintTxStatus, now time.Time) error {
	err := s.DB.WithContext(ctx).Model(&models.MintTransaction{}).
		Where("id = ?", mintTx.ID).
		Updates(map[string]interface{}{"status": status, "resolved_at": now}).Error
	if err != nil {
		return err
	}
	mintTx.Status = status
	mintTx.ResolvedAt = &now
	return nil
}

// RecordExternalMint credits a confirmed mint observed on chain that was
// not submitted through this service (direct contract call, other client).
func (s *MintService) RecordExternalMint(ctx context.Context, ev MintEventInfo) error {
	mintTx := models.MintTransaction{
		ID:          uuid.NewString(),
		Fid:         ev.Fid,
		Tier:        ev.Tier,
		TxHash:      ev.TxHash,
		Status:      models.MintTxPending,
		SubmittedAt: ev.ConfirmedAt,
	}
	if err := s.DB.WithContext(ctx).Create(&mintTx).Error; err != nil {
		return err
	}
	_, err := s.settle(ctx, &mintTx, models.MintTxConfirmed)
	return err
}

// LatestTx returns the user's most recent mint transaction for a tier.
func (s *MintService) LatestTx(ctx context.Context, fid int64, tier ledger.Tier) (*models.MintTransaction, error) {
	var mintTx models.MintTransaction
	err := s.DB.WithContext(ctx).
		Where("fid = ? AND tier = ?", fid, string(tier)).
		Order("submitted_at DESC").
		First(&mintTx).Error
	if err != nil {
		return nil, err
	}
	return &mintTx, nil
}

// ResolvePending settles transactions that outlived their submitter — a
// crashed process or an elapsed confirmation window. Anything pending past
// maxAge that the relay still reports pending becomes terminal timeout.
func (s *MintService) ResolvePending(ctx context.Context, maxAge time.Duration) {
	var pending []models.MintTransaction
	cutoff := time.Now().UTC().Add(-30 * time.Second)
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND submitted_at <= ?", models.MintTxPending, cutoff).
		Order("submitted_at ASC").
		Limit(100).
		Find(&pending).Error; err != nil {
		log.Printf("[Reconciler] DB error: %v", err)
		return
	}

	for i := range pending {
		mintTx := pending[i]
		status, err := s.Chain.TxStatus(ctx, mintTx.TxHash)
		if err != nil {
			log.Printf("[Reconciler] Status check failed for %s: %v", mintTx.TxHash, err)
			continue
		}
		if status == models.MintTxPending {
			if time.Since(mintTx.SubmittedAt) > maxAge {
				status = models.MintTxTimeout
			} else {
				continue
			}
		}
		if _, err := s.settle(ctx, &mintTx, status); err != nil &&
			!errors.Is(err, ErrMintReverted) && !errors.Is(err, ErrMintTimeout) {
			log.Printf("[Reconciler] Failed to settle %s: %v", mintTx.TxHash, err)
		}
	}
}

// TierView is one tier as presented to the client: definition, the user's
// eligibility verdict, progress, and live supply.
type TierView struct {
	ledger.TierDefinition
	ContractAddress string            `json:"contract_address,omitempty"`
	Minted          int64             `json:"minted"`
	SupplyLeft      *int64            `json:"supply_left,omitempty"`
	Eligibility     ledger.MintStatus `json:"eligibility"`
	XPProgress      int               `json:"xp_progress"`
	UserMintCount   int               `json:"user_mint_count"`
}

// TierOverview builds the per-tier view for one user's state.
func (s *MintService) TierOverview(ctx context.Context, state ledger.UserRewardState) ([]TierView, error) {
	snap := s.Rewards.Catalog.Snapshot()

	var supplies []models.TierSupply
	if err := s.DB.WithContext(ctx).Find(&supplies).Error; err != nil {
		return nil, err
	}
	minted := make(map[string]int64, len(supplies))
	for _, sup := range supplies {
		minted[sup.Tier] = sup.Minted
	}

	views := make([]TierView, 0, snap.Catalog.Len())
	for _, def := range snap.Catalog.Tiers() {
		status, err := snap.Ledger.CanMint(state, def.Tier)
		if err != nil {
			return nil, err
		}
		progress, err := snap.Ledger.XPProgress(state, def.Tier)
		if err != nil {
			return nil, err
		}
		view := TierView{
			TierDefinition:  def,
			ContractAddress: snap.Contracts[def.Tier],
			Minted:          minted[string(def.Tier)],
			Eligibility:     status,
			XPProgress:      progress,
			UserMintCount:   state.MintCount(def.Tier),
		}
		if def.GlobalMintLimit > 0 {
			left := def.GlobalMintLimit - view.Minted
			if left < 0 {
				left = 0
			}
			view.SupplyLeft = &left
		}
		views = append(views, view)
	}
	return views, nil
}
