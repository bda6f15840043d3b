// handlers/rewards_routes.go
package handlers

import (
	"errors"
	"math"
	"strconv"
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

func SetupRewardRoutes(app *fiber.App, rewardsService *services.RewardsService, mintService *services.MintService, taskService *services.TaskService) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := rewardsService.Leaderboard(c.Context(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	// 🔐 Secured routes — require a session (fid from JWT)
	secured := app.Group("/s", middleware.SessionMiddleware())

	// Mutating reward actions are human-paced; throttle them per user. One
	// limiter instance shared by the claim/donate/task routes so a scripted
	// client cannot rotate between them.
	limited := middleware.RateLimitMiddleware(rate.Every(time.Second), 3)

	secured.Get("/user/rewards", func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)

		rec, err := rewardsService.EnsureStateRecord(fid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load reward state",
				"cause": err.Error(),
			})
		}
		state := rec.LedgerState()

		led := rewardsService.Catalog.Ledger()
		claim := led.CanClaim(state, time.Now().UTC())

		tiers, err := mintService.TierOverview(c.Context(), state)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to evaluate tiers",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"fid":                state.Fid,
			"xp_total":           state.XPTotal,
			"total_spend_usd":    state.TotalSpendUsd,
			"last_claim_at":      state.LastClaimAt,
			"referral_count":     state.ReferralCount,
			"max_referrals":      ledger.MaxReferrals,
			"mint_counts":        state.MintCounts,
			"early_bird_claimed": state.EarlyBirdClaimed,
			"claim": fiber.Map{
				"allowed":             claim.Allowed,
				"retry_after_seconds": int64(claim.RetryAfter.Seconds()),
			},
			"tiers": tiers,
		})
	})

	secured.Post("/user/claim", limited, func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		state, err := rewardsService.Claim(c.Context(), fid)
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":       "daily claim applied",
			"xp_total":      state.XPTotal,
			"last_claim_at": state.LastClaimAt,
		})
	})

	secured.Post("/user/donate", limited, func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		type Req struct {
			AmountUsd float64 `json:"amount_usd"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if math.IsNaN(req.AmountUsd) || req.AmountUsd > ledger.MaxDonationUsd {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "amount_usd out of range",
			})
		}
		state, err := rewardsService.Donate(c.Context(), fid, req.AmountUsd)
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "donation credited",
			"xp_total":        state.XPTotal,
			"total_spend_usd": state.TotalSpendUsd,
		})
	})

	secured.Get("/user/rewards/history", func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		history, err := rewardsService.History(c.Context(), fid, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	secured.Get("/user/tasks", func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		tasks, err := taskService.ListForUser(c.Context(), fid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list tasks",
				"cause": err.Error(),
			})
		}
		return c.JSON(tasks)
	})

	secured.Post("/user/tasks/:slug/complete", limited, func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		state, task, err := taskService.Complete(c.Context(), fid, c.Params("slug"))
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":   "task completed",
			"task":      task.Slug,
			"xp_earned": task.XPReward,
			"xp_total":  state.XPTotal,
		})
	})

	// EventSource cannot set headers, so the stream authenticates via query
	// token on its own prefix (outside the /s session group).
	app.Get("/sse/user/rewards/stream", middleware.SSEAuthMiddleware(), rewardsService.StreamRewardEventsSSE)
}

// respondDomainError maps domain rejections and known service errors onto
// HTTP. Infra failures stay 5xx and always mean "no state change occurred".
func respondDomainError(c *fiber.Ctx, err error) error {
	if rej, ok := ledger.AsRejection(err); ok {
		resp := fiber.Map{
			"error":  "rejected",
			"reason": string(rej.Reason),
		}
		if rej.RetryAfter > 0 {
			resp["retry_after_seconds"] = int64(rej.RetryAfter.Seconds())
		}
		// A bad amount is a correctable request; everything else is a state
		// conflict.
		if rej.Reason == ledger.ReasonBelowMinimum {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
		}
		return c.Status(fiber.StatusConflict).JSON(resp)
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrReferralCodeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTaskAlreadyCompleted),
		errors.Is(err, services.ErrAlreadyReferred),
		errors.Is(err, services.ErrSelfReferral),
		errors.Is(err, services.ErrSupplyExhausted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnknownTier):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrMintReverted):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "mint transaction reverted, no XP credited",
		})
	case errors.Is(err, services.ErrMintTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "mint confirmation timed out; it will be settled in the background",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "operation failed, no state change occurred",
			"cause": err.Error(),
		})
	}
}
