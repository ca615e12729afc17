package workers

import (
	"context"
	"log"
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
)

// ReminderProcessor fires due reminders once
type ReminderProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// ReminderWorker polls for due reminder jobs. Several instances may run at once;
// each job is claimed by exactly one of them.
type ReminderWorker struct {
	Reminders ReminderProcessor
	Interval  time.Duration // How often to poll (default: 15s)
}

// Start begins the reminder worker loop. It returns when ctx is cancelled.
func (w *ReminderWorker) Start(ctx context.Context) {
	if w.Interval <= 0 {
		w.Interval = constants.DefaultReminderPoll
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	log.Printf("[ReminderWorker] started (interval=%s)", w.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[ReminderWorker] stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes the currently due reminders
func (w *ReminderWorker) RunOnce(ctx context.Context) {
	fired, err := w.Reminders.ProcessDue(ctx)
	if err != nil {
		log.Printf("[ReminderWorker] error: %v", err)
	}
	if fired > 0 {
		log.Printf("[ReminderWorker] fired %d reminder(s)", fired)
	}
}
