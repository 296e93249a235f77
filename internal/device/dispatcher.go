package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	redisrepo "simora-backend/internal/repository/redis"
	"simora-backend/pkg/logger"
	"simora-backend/pkg/metrics"
	"simora-backend/pkg/push"
)

// Dispatcher delivers due push-fallback entries and advances them to their
// next occurrence. One dispatcher serves all users.
type Dispatcher struct {
	repo     *redisrepo.ScheduleRepository
	pusher   *push.Service
	metrics  *metrics.Metrics
	interval time.Duration
}

// NewDispatcher creates a dispatcher polling at the given interval
func NewDispatcher(repo *redisrepo.ScheduleRepository, pusher *push.Service, m *metrics.Metrics, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		pusher:   pusher,
		metrics:  m,
		interval: interval,
	}
}

// Run polls for due entries until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger.Info("Push fallback dispatcher started",
		zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Push fallback dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

// dispatch sends every due entry and reschedules it. Failures are logged and
// the entry is still advanced so a broken token cannot wedge the queue.
func (d *Dispatcher) dispatch(ctx context.Context) {
	now := time.Now()

	entries, err := d.repo.DueBefore(ctx, now)
	if err != nil {
		logger.Warn("Failed to query due notification entries", zap.Error(err))
		return
	}

	for _, entry := range entries {
		notification := &push.Notification{
			Title:    entry.Title,
			Body:     entry.Body,
			Sound:    entry.Sound,
			Priority: "normal",
			Data:     entry.Payload,
		}

		result, err := d.pusher.SendToUser(ctx, entry.UserID, notification)
		if err != nil {
			logger.Warn("Failed to deliver scheduled notification",
				zap.Int32("id", entry.ID),
				zap.String("user_id", entry.UserID.String()),
				zap.Error(err))
			d.metrics.PushDeliveriesTotal.WithLabelValues("error").Inc()
		} else if result.FailureCount > 0 {
			d.metrics.PushDeliveriesTotal.WithLabelValues("partial").Inc()
		} else {
			d.metrics.PushDeliveriesTotal.WithLabelValues("ok").Inc()
		}

		weekdays := make([]time.Weekday, 0, len(entry.Weekdays))
		for _, day := range entry.Weekdays {
			weekdays = append(weekdays, time.Weekday(day))
		}

		next := NextFireTime(now, FireSpec{
			Hour:     entry.Hour,
			Minute:   entry.Minute,
			Weekdays: weekdays,
		})
		if err := d.repo.Reschedule(ctx, entry, next); err != nil {
			logger.Warn("Failed to reschedule notification entry",
				zap.Int32("id", entry.ID),
				zap.Error(err))
		}
	}
}
