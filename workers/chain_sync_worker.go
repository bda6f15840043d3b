package workers

import (
	"context"
	"log"
	"time"

	"farcaster-rewards-system/models"
	"farcaster-rewards-system/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollChainSupply reconciles tier_supplies against the chain relay. Mints
// can happen outside this service (direct contract calls, other clients),
// so the global counters follow the chain, not our own mint log.
func PollChainSupply(ctx context.Context, db *gorm.DB, chain *services.ChainClient, pollInterval time.Duration) {
	log.Println("Starting chain supply polling…")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Chain supply polling stopped.")
			return
		case <-ticker.C:
			dep, err := chain.GetDeployment(ctx)
			if err != nil {
				log.Printf("❌ Error polling chain deployment: %v", err)
				continue
			}

			if len(dep.Supplies) == 0 {
				continue
			}

			rows := make([]models.TierSupply, 0, len(dep.Supplies))
			for _, sup := range dep.Supplies {
				rows = append(rows, models.TierSupply{
					Tier:            sup.Tier,
					Minted:          sup.Minted,
					GlobalLimit:     sup.GlobalLimit,
					ContractAddress: dep.Contracts[sup.Tier],
				})
			}

			// Chain counters are authoritative: overwrite, never add.
			if err := db.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "tier"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"minted",
						"global_limit",
						"contract_address",
					}),
				},
			).Create(&rows).Error; err != nil {
				log.Printf("❌ Failed to upsert %d tier supply row(s): %v", len(rows), err)
				continue
			}
			log.Printf("📥 Reconciled %d tier supply counter(s) from chain.", len(rows))
		}
	}
}

// PollExternalMints runs ReconcileExternalMints on an interval, advancing
// the window only after a successful pass so nothing is skipped on error.
func PollExternalMints(ctx context.Context, db *gorm.DB, chain *services.ChainClient, mints *services.MintService, pollInterval time.Duration) {
	log.Println("Starting external mint reconciliation…")
	since := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("External mint reconciliation stopped.")
			return
		case <-ticker.C:
			windowStart := time.Now().UTC()
			if _, err := ReconcileExternalMints(ctx, db, chain, mints, since); err != nil {
				log.Printf("❌ External mint reconciliation failed: %v", err)
				continue
			}
			since = windowStart
		}
	}
}

// ReconcileExternalMints backfills mint transactions observed on chain that
// this service never submitted, so a user who minted from another client is
// still credited. Runs once per call; the caller schedules it.
func ReconcileExternalMints(ctx context.Context, db *gorm.DB, chain *services.ChainClient, mints *services.MintService, since time.Time) (int, error) {
	events, err := chain.MintEventsSince(ctx, since)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, ev := range events {
		var count int64
		if err := db.Model(&models.MintTransaction{}).
			Where("tx_hash = ?", ev.TxHash).
			Count(&count).Error; err != nil {
			return credited, err
		}
		if count > 0 {
			continue // ours, already settled or settling
		}
		if err := mints.RecordExternalMint(ctx, ev); err != nil {
			log.Printf("⚠️ Failed to credit external mint %s: %v", ev.TxHash, err)
			continue
		}
		credited++
	}
	if credited > 0 {
		log.Printf("✅ Credited %d externally observed mint(s).", credited)
	}
	return credited, nil
}
