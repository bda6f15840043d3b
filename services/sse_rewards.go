package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"farcaster-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamRewardEventsSSE streams a user's reward events in near real time —
// the change-notification feed the Mini App subscribes to for live XP and
// leaderboard updates.
func (s *RewardsService) StreamRewardEventsSSE(c *fiber.Ctx) error {
	fid := c.Locals("fid").(int64)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor at the user's latest event so only new activity
		// streams.
		var latest models.RewardEvent
		if err := s.DB.
			Where("fid = ?", fid).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for fid %d: %v", fid, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newEvents []models.RewardEvent

				err := s.DB.
					Where("fid = ?", fid).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&newEvents).Error

				if err != nil {
					log.Printf("SSE query error for fid %d: %v", fid, err)
					continue
				}

				if len(newEvents) == 0 {
					continue
				}

				lastMaxCreatedAt = newEvents[len(newEvents)-1].CreatedAt

				for _, ev := range newEvents {
					payload, _ := json.Marshal(ev)

					fmt.Fprintf(w,
						"event: reward\ndata: %s\n\n",
						payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
