// handlers/admin_routes.go
package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"farcaster-rewards-system/ledger"
	"farcaster-rewards-system/middleware"
	"farcaster-rewards-system/services"
	"farcaster-rewards-system/utils"

	"github.com/gofiber/fiber/v2"
)

// adminOnly restricts a group to FIDs listed in ADMIN_FIDS (comma-separated).
func adminOnly() fiber.Handler {
	admins := map[int64]bool{}
	for _, part := range strings.Split(os.Getenv("ADMIN_FIDS"), ",") {
		fid, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			admins[fid] = true
		}
	}
	return func(c *fiber.Ctx) error {
		fid, ok := c.Locals("fid").(int64)
		if !ok || !admins[fid] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}

func SetupAdminRoutes(app *fiber.App, rewardsService *services.RewardsService, taskService *services.TaskService, catalogService *services.CatalogService) {
	adminGroup := app.Group("/s/admin", middleware.SessionMiddleware(), adminOnly())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			Fid    int64  `json:"fid"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Fid <= 0 || req.XP == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "fid and a non-zero xp amount are required",
			})
		}

		state, err := rewardsService.GrantXP(c.Context(), req.Fid, req.XP, req.Reason)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":  "XP granted successfully",
			"fid":      req.Fid,
			"xp":       req.XP,
			"xp_total": state.XPTotal,
		})
	})

	adminGroup.Post("/tasks", func(c *fiber.Ctx) error {
		type Req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			TargetURL   string `json:"target_url"`
			IconURL     string `json:"icon_url"`
			XPReward    int64  `json:"xp_reward"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Title == "" || req.XPReward <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title and a positive xp_reward are required",
			})
		}

		task, err := taskService.CreateTask(req.Title, req.Description, req.TargetURL, req.IconURL, req.XPReward)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create task",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	adminGroup.Patch("/tasks/:slug/active", func(c *fiber.Ctx) error {
		type Req struct {
			Active bool `json:"active"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := taskService.SetTaskActive(c.Params("slug"), req.Active); err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "task updated",
			"slug":    c.Params("slug"),
			"active":  req.Active,
		})
	})

	adminGroup.Post("/tasks/:slug/icon", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "icon file is required",
			})
		}
		key := fmt.Sprintf("tasks/%s%s", c.Params("slug"), filepath.Ext(fileHeader.Filename))
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "icon upload failed",
				"cause": err.Error(),
			})
		}
		if err := taskService.SetTaskIcon(c.Params("slug"), url); err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "icon uploaded",
			"icon_url": url,
		})
	})

	adminGroup.Post("/tiers/:tier/artwork", func(c *fiber.Ctx) error {
		tier := ledger.Tier(c.Params("tier"))
		if _, ok := catalogService.Snapshot().Catalog.Get(tier); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown tier",
			})
		}
		fileHeader, err := c.FormFile("artwork")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "artwork file is required",
			})
		}
		key := fmt.Sprintf("tiers/%s%s", tier, filepath.Ext(fileHeader.Filename))
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "artwork upload failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":     "artwork uploaded",
			"tier":        tier,
			"artwork_url": url,
		})
	})

	adminGroup.Post("/catalog/refresh", func(c *fiber.Ctx) error {
		if err := catalogService.Refresh(c.Context()); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "catalog refresh failed",
				"cause": err.Error(),
			})
		}
		snap := catalogService.Snapshot()
		return c.JSON(fiber.Map{
			"message":    "catalog refreshed",
			"tiers":      snap.Catalog.Len(),
			"fetched_at": snap.FetchedAt,
		})
	})
}
