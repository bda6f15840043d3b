// handlers/auth_routes.go
package handlers

import (
	"log"

	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/models"
	"farcaster-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, identityClient *services.IdentityClient, rewardsService *services.RewardsService) {
	// Exchanges a verified Farcaster auth token for a session JWT. This is
	// the only route that accepts client-asserted identity material.
	app.Post("/auth/verify", func(c *fiber.Ctx) error {
		type Req struct {
			Token string `json:"token"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil || req.Token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "auth token required",
			})
		}

		identity, err := identityClient.VerifySignIn(req.Token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "sign-in verification failed",
			})
		}

		// Seed the profile mirror immediately so referral codes and the
		// leaderboard work before the next sync pass.
		profile := models.ProfileMirror{
			Fid:          identity.Fid,
			Username:     identity.Username,
			DisplayName:  identity.DisplayName,
			AvatarURL:    identity.AvatarURL,
			ReferralCode: models.ReferralCodeFor(identity.Username, identity.Fid),
		}
		if err := db.WithContext(c.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fid"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "updated_at"}),
		}).Create(&profile).Error; err != nil {
			log.Printf("⚠️ Failed to upsert profile mirror for fid %d: %v", identity.Fid, err)
		}

		rec, err := rewardsService.EnsureStateRecord(identity.Fid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to initialize reward state",
				"cause": err.Error(),
			})
		}

		sessionToken, err := middleware.IssueSessionToken(identity.Fid, identity.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to issue session",
				"cause": err.Error(),
			})
		}

		state := rec.LedgerState()
		return c.JSON(fiber.Map{
			"session_token": sessionToken,
			"fid":           identity.Fid,
			"username":      identity.Username,
			"xp_total":      state.XPTotal,
		})
	})
}
