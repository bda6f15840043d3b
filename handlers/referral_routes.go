// handlers/referral_routes.go
package handlers

import (
	"time"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	secured := app.Group("/s", middleware.SessionMiddleware())

	secured.Post("/referral/redeem", middleware.RateLimitMiddleware(rate.Every(time.Second), 3), func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		type Req struct {
			Code string `json:"code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "referral code required",
			})
		}
		referral, err := referralService.Redeem(c.Context(), fid, req.Code)
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":      "referral redeemed",
			"referrer_fid": referral.ReferrerFid,
			"xp_earned":    referral.XPEarned,
		})
	})

	secured.Get("/user/referrals", func(c *fiber.Ctx) error {
		fid := c.Locals("fid").(int64)
		referrals, err := referralService.ListByReferrer(c.Context(), fid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list referrals",
				"cause": err.Error(),
			})
		}
		code, err := referralService.CodeFor(c.Context(), fid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve referral code",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"code":          code,
			"referrals":     referrals,
			"max_referrals": ledger.MaxReferrals,
		})
	})
}
