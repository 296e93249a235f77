package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"simora-backend/internal/device"
	"simora-backend/internal/domain"
	"simora-backend/pkg/metrics"
)

// PortFactory builds the device scheduling port for a user's session
type PortFactory func(userID uuid.UUID) device.Port

// Manager owns one scheduler and one realtime listener per active user
// session. Attach is idempotent; Detach tears the session down completely.
type Manager struct {
	configs ConfigSource
	prefs   PreferenceSource
	ports   PortFactory
	client  *redis.Client
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	sched    *Scheduler
	listener *Listener
}

// NewManager creates a session manager
func NewManager(configs ConfigSource, prefs PreferenceSource, ports PortFactory, client *redis.Client, m *metrics.Metrics) *Manager {
	return &Manager{
		configs:  configs,
		prefs:    prefs,
		ports:    ports,
		client:   client,
		metrics:  m,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Attach starts a scheduling session for a user: creates the scheduler,
// subscribes its listener, and triggers the initial replan. Repeated calls
// for the same user reuse the existing session.
func (m *Manager) Attach(ctx context.Context, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachLocked(ctx, userID)
}

// attachLocked creates and starts a session if none exists. Caller holds m.mu.
func (m *Manager) attachLocked(ctx context.Context, userID uuid.UUID) *session {
	if sess, ok := m.sessions[userID]; ok {
		return sess
	}

	sched := New(m.configs, m.prefs, m.ports(userID), userID, m.metrics)
	listener := NewListener(m.client, sched, userID, m.metrics)
	// The session must outlive the request that attached it
	listener.Start(context.WithoutCancel(ctx))

	sess := &session{sched: sched, listener: listener}
	m.sessions[userID] = sess
	return sess
}

// Replan runs the pipeline for a user on demand (app launch/resume hook).
// Users without a session get one attached first.
func (m *Manager) Replan(ctx context.Context, userID uuid.UUID) (domain.PlanResult, error) {
	m.mu.Lock()
	sess := m.attachLocked(ctx, userID)
	m.mu.Unlock()

	return sess.sched.Replan(ctx)
}

// Detach ends a user's session: unsubscribes the listener and cancels all
// device-scheduled entries (the logout path).
func (m *Manager) Detach(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	sess.listener.Stop()
	return sess.sched.Teardown(ctx)
}

// Shutdown stops every session listener without cancelling scheduled
// entries: a service restart must not wipe device schedules.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, sess := range m.sessions {
		sess.listener.Stop()
		delete(m.sessions, userID)
	}
}
