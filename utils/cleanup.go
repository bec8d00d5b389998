package utils

import (
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/models"
)

// StartMediaSweeper launches a background loop that deletes media
// rows never claimed by a post within the configured TTL, removing
// the underlying files as well. Best-effort: failures are logged and
// retried on the next round.
func StartMediaSweeper(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			SweepUnattachedMedia(db, time.Now())
		}
	}()
}

// SweepUnattachedMedia deletes unattached media older than the
// configured TTL, as of now.
func SweepUnattachedMedia(db *gorm.DB, now time.Time) {
	ttl := time.Duration(config.Get().MediaSweepMinutes) * time.Minute
	cutoff := now.Add(-ttl)

	var stale []models.Media
	if err := db.Where("post_id IS NULL AND created_at < ?", cutoff).Find(&stale).Error; err != nil {
		if Sugar != nil {
			Sugar.Warnf("media sweep query failed: %v", err)
		}
		return
	}

	for _, m := range stale {
		if m.FilePath != "" {
			if err := os.Remove(m.FilePath); err != nil && !os.IsNotExist(err) {
				if Sugar != nil {
					Sugar.Warnf("media sweep could not remove %s: %v", m.FilePath, err)
				}
				continue
			}
		}
		if err := db.Delete(&models.Media{}, m.ID).Error; err != nil {
			if Sugar != nil {
				Sugar.Warnf("media sweep could not delete row %d: %v", m.ID, err)
			}
		}
	}

	if len(stale) > 0 && Sugar != nil {
		Sugar.Infof("media sweep removed %d unattached uploads", len(stale))
	}
}
