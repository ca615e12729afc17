package workers

import (
	"context"
	"log"
	"time"
)

// NotificationPurger deletes read notifications older than a retention window
type NotificationPurger interface {
	PurgeReadNotifications(ctx context.Context, retention time.Duration) (int64, error)
}

// NotificationCleanupWorker removes read notifications older than the configured retention period.
type NotificationCleanupWorker struct {
	Maintenance    NotificationPurger
	RetentionHours int           // How long to keep read notifications (default: 720)
	CheckInterval  time.Duration // How often to run cleanup (default: 1h)
}

// Start begins the notification cleanup worker loop.
func (w *NotificationCleanupWorker) Start(ctx context.Context) {
	if w.RetentionHours <= 0 {
		w.RetentionHours = 720
	}
	if w.CheckInterval <= 0 {
		w.CheckInterval = time.Hour
	}

	ticker := time.NewTicker(w.CheckInterval)
	defer ticker.Stop()

	log.Printf("[NotificationCleanupWorker] started (retention=%dh, interval=%s)", w.RetentionHours, w.CheckInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[NotificationCleanupWorker] stopped")
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

// cleanup removes read notifications older than the retention period.
func (w *NotificationCleanupWorker) cleanup(ctx context.Context) {
	deleted, err := w.Maintenance.PurgeReadNotifications(ctx, time.Duration(w.RetentionHours)*time.Hour)
	if err != nil {
		log.Printf("[NotificationCleanupWorker] error: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[NotificationCleanupWorker] deleted %d old read notifications", deleted)
	}
}
