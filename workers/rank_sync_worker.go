// workers/rank_sync_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"valorant-hub/models"
	"valorant-hub/valorantapi"

	"gorm.io/gorm"
)

// RankSyncWorker refreshes linked users' external rank tier from the MMR
// endpoint, a few users per tick so the shared rate-limit quota stays mostly
// free for reconciliation.
type RankSyncWorker struct {
	db        *gorm.DB
	client    *valorantapi.Client
	interval  time.Duration
	batchSize int
}

func NewRankSyncWorker(db *gorm.DB, client *valorantapi.Client) *RankSyncWorker {
	return &RankSyncWorker{
		db:        db,
		client:    client,
		interval:  5 * time.Minute,
		batchSize: 3,
	}
}

func (w *RankSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Rank Sync Worker (external MMR → hub_users)…")
	go w.run(ctx)
}

func (w *RankSyncWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx); err != nil {
				log.Printf("❌ [RANK_SYNC] batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Rank Sync Worker stopped")
			return
		}
	}
}

// syncBatch refreshes the stalest linked users first.
func (w *RankSyncWorker) syncBatch(ctx context.Context) error {
	var users []models.HubUser
	if err := w.db.WithContext(ctx).
		Where("game_name IS NOT NULL AND game_name <> '' AND game_tag IS NOT NULL AND game_tag <> ''").
		Order("rank_synced_at ASC NULLS FIRST").
		Limit(w.batchSize).
		Find(&users).Error; err != nil {
		return err
	}

	for _, u := range users {
		ident := valorantapi.PlayerIdentity{Name: *u.GameName, Tag: *u.GameTag}
		mmr, err := w.client.CurrentMMR(ctx, u.Region, ident)
		if err != nil {
			// Throttle or lookup failure: leave the user for a later tick.
			log.Printf("⚠️ [RANK_SYNC] %s#%s not refreshed: %v", ident.Name, ident.Tag, err)
			continue
		}

		now := time.Now()
		if err := w.db.WithContext(ctx).Model(&models.HubUser{}).
			Where("id = ?", u.ID).
			Updates(map[string]interface{}{
				"external_tier":      mmr.CurrentTier,
				"external_tier_name": mmr.CurrentTierName,
				"rank_synced_at":     &now,
			}).Error; err != nil {
			log.Printf("⚠️ [RANK_SYNC] failed to store tier for %s: %v", u.ID, err)
		}
	}
	return nil
}
