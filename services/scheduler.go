// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	promotionInterval = 15 * time.Second
	reconcileInterval = 60 * time.Second
	schedulerWarmup   = 10 * time.Second
)

// StartMatchScheduler drives Promotion and Reconciliation on independent
// fixed intervals, after a short warmup so the process finishes wiring first.
// Tick errors are logged and swallowed; a bad tick never stops the driver.
// The returned scheduler can be shut down on process exit.
func StartMatchScheduler(promo *PromotionService, recon *ReconcileService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	firstRun := time.Now().Add(schedulerWarmup)

	_, err = sched.NewJob(
		gocron.DurationJob(promotionInterval),
		gocron.NewTask(func() {
			summary, err := promo.PromotePendingMatches(context.Background())
			if err != nil {
				log.Printf("[SCHEDULER] promotion tick failed: %v", err)
				return
			}
			if summary.Started > 0 {
				log.Printf("[SCHEDULER] promotion tick started %d match(es)", summary.Started)
			}
		}),
		gocron.WithStartAt(gocron.WithStartDateTime(firstRun)),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(reconcileInterval),
		gocron.NewTask(func() {
			summary, err := recon.ReconcileAllActive(context.Background())
			if err != nil {
				log.Printf("[SCHEDULER] reconcile tick failed: %v", err)
				return
			}
			if summary.RateLimited {
				log.Printf("[SCHEDULER] reconcile tick paused by upstream rate limit (finalized %d first)", summary.Finalized)
			} else if summary.Finalized > 0 {
				log.Printf("[SCHEDULER] reconcile tick finalized %d match(es)", summary.Finalized)
			}
		}),
		gocron.WithStartAt(gocron.WithStartDateTime(firstRun)),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
