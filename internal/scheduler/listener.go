package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisrepo "simora-backend/internal/repository/redis"
	"simora-backend/pkg/logger"
	"simora-backend/pkg/metrics"
)

// Listener subscribes to config and per-user preference change events and
// triggers replans. Event handlers only invalidate the fingerprint and
// enqueue a signal; a single consumer goroutine drains the queue and runs
// the pipeline, so bursts of events coalesce into one replan and no two
// replans for the same user ever overlap.
type Listener struct {
	client  *redis.Client
	sched   *Scheduler
	userID  uuid.UUID
	metrics *metrics.Metrics

	requests chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewListener creates a listener bound to one user's scheduler
func NewListener(client *redis.Client, sched *Scheduler, userID uuid.UUID, m *metrics.Metrics) *Listener {
	return &Listener{
		client:   client,
		sched:    sched,
		userID:   userID,
		metrics:  m,
		requests: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start subscribes and begins the consumer loop. An initial replan is
// enqueued immediately so a fresh session schedules without waiting for an
// event (the app-launch trigger).
func (l *Listener) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel

	pubsub := l.client.Subscribe(ctx,
		redisrepo.ConfigChannel,
		redisrepo.PreferenceChannel(l.userID),
	)

	go l.receive(ctx, pubsub)
	go l.consume(ctx, pubsub)

	l.request()
}

// receive turns delivered events into replan requests
func (l *Listener) receive(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			source := "preference"
			if msg.Channel == redisrepo.ConfigChannel {
				source = "config"
			}
			if l.metrics != nil {
				l.metrics.ChangeEventsTotal.WithLabelValues(source).Inc()
			}

			logger.Debug("Notification change event received",
				zap.String("user_id", l.userID.String()),
				zap.String("channel", msg.Channel))

			l.request()
		}
	}
}

// request invalidates the fingerprint and enqueues a replan. The queue is
// depth one: a pending request already covers any newer event.
func (l *Listener) request() {
	l.sched.Invalidate()
	select {
	case l.requests <- struct{}{}:
	default:
	}
}

// consume drains replan requests serially
func (l *Listener) consume(ctx context.Context, pubsub *redis.PubSub) {
	defer close(l.done)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.requests:
			if _, err := l.sched.Replan(ctx); err != nil {
				// Transient fetch failure; the next trigger retries
				logger.Warn("Replan failed",
					zap.String("user_id", l.userID.String()),
					zap.Error(err))
			}
		}
	}
}

// Stop unsubscribes and stops the consumer loop. The caller is responsible
// for tearing down the scheduler (cancelling device entries) afterwards.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
}
