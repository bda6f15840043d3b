// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconciler runs the background jobs that keep mint state and
// configuration converging: settling orphaned pending transactions and
// refreshing the catalog snapshot from the chain relay.
func (s *MintService) StartReconciler(catalog *CatalogService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: settle pending mint transactions whose submitter is gone.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
			defer cancel()
			s.ResolvePending(ctx, 15*time.Minute)
		}),
	)

	// Every 10 minutes: rebuild the catalog snapshot (contract addresses,
	// global supply caps).
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := catalog.Refresh(ctx); err != nil {
				log.Printf("[Scheduler] Catalog refresh failed: %v", err)
			}
		}),
	)
}
