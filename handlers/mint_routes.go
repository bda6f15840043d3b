// handlers/mint_routes.go
package handlers

import (
	"errors"
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/models"
	"farcaster-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func SetupMintRoutes(app *fiber.App, db *gorm.DB, catalogService *services.CatalogService, rewardsService *services.RewardsService, mintService *services.MintService) {
	// 🔓 Tier catalog without per-user eligibility (landing page, bots)
	app.Get("/tiers", func(c *fiber.Ctx) error {
		snap := catalogService.Snapshot()

		var supplies []models.TierSupply
		if err := db.WithContext(c.Context()).Find(&supplies).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load tier supply",
				"cause": err.Error(),
			})
		}
		minted := make(map[string]int64, len(supplies))
		for _, s := range supplies {
			minted[s.Tier] = s.Minted
		}

		out := make([]fiber.Map, 0, snap.Catalog.Len())
		for _, def := range snap.Catalog.Tiers() {
			entry := fiber.Map{
				"tier":           def.Tier,
				"name":           def.Name,
				"xp_requirement": def.XPRequirement,
				"xp_bonus":       def.XPBonus,
				"mint_price_usd": def.MintPriceUsd,
				"max_per_user":   def.MaxMintsPerUser,
				"minted":         minted[string(def.Tier)],
				"contract":       snap.Contracts[def.Tier],
			}
			if def.GlobalMintLimit > 0 {
				entry["global_limit"] = def.GlobalMintLimit
			}
			out = append(out, entry)
		}
		return c.JSON(fiber.Map{
			"tiers":      out,
			"fetched_at": snap.FetchedAt,
		})
	})

	secured := app.Group("/s", middleware.SessionMiddleware())

	// Minting hits the chain relay; keep the per-user rate tight.
	mintLimited := middleware.RateLimitMiddleware(rate.Every(5*time.Second), 2)

	secured.Post("/mint/:tier", mintLimited, func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		tier := ledger.Tier(c.Params("tier"))

		result, err := mintService.Mint(c.Context(), fid, tier)
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "mint confirmed",
			"tier":            result.Tx.Tier,
			"tx_hash":         result.Tx.TxHash,
			"xp_total":        result.State.XPTotal,
			"total_spend_usd": result.State.TotalSpendUsd,
			"mint_counts":     result.State.MintCounts,
		})
	})

	secured.Get("/mint/:tier/status", func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		tier := ledger.Tier(c.Params("tier"))

		tx, err := mintService.LatestTx(c.Context(), fid, tier)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "no mint transaction for this tier",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load mint status",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"tier":         tx.Tier,
			"tx_hash":      tx.TxHash,
			"status":       tx.Status,
			"submitted_at": tx.SubmittedAt,
			"resolved_at":  tx.ResolvedAt,
			"xp_credited":  tx.XPCredited,
		})
	})
}
