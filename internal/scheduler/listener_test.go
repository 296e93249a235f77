package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simora-backend/internal/device"
	"simora-backend/internal/domain"
	redisrepo "simora-backend/internal/repository/redis"
)

// stubConfigSource is a mutable config source safe for the listener's
// concurrent consumer loop.
type stubConfigSource struct {
	mu      sync.Mutex
	calls   int
	configs []domain.NotificationConfig
}

func (s *stubConfigSource) List(ctx context.Context) ([]domain.NotificationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := make([]domain.NotificationConfig, len(s.configs))
	copy(out, s.configs)
	return out, nil
}

func (s *stubConfigSource) set(configs []domain.NotificationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = configs
}

func (s *stubConfigSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPreferenceSource struct {
	mu    sync.Mutex
	prefs domain.NotificationPreference
}

func (s *stubPreferenceSource) Resolve(ctx context.Context, userID uuid.UUID) domain.NotificationPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *stubPreferenceSource) set(prefs domain.NotificationPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
}

func newListenerFixture(t *testing.T) (*Listener, *stubConfigSource, *stubPreferenceSource, *device.MemoryPort, *redis.Client, uuid.UUID) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	userID := uuid.New()
	configs := &stubConfigSource{configs: []domain.NotificationConfig{eveningConfig()}}
	prefs := &stubPreferenceSource{prefs: domain.DefaultPreference(userID)}
	port := device.NewMemoryPort()

	sched := New(configs, prefs, port, userID, nil)
	listener := NewListener(client, sched, userID, nil)

	return listener, configs, prefs, port, client, userID
}

func TestListenerInitialReplanOnStart(t *testing.T) {
	listener, _, _, port, _, _ := newListenerFixture(t)

	listener.Start(context.Background())
	defer listener.Stop()

	require.Eventually(t, func() bool {
		return port.Get(StableID("evening")) != nil
	}, 2*time.Second, 10*time.Millisecond, "starting a session must schedule without waiting for an event")
}

func TestListenerConfigEventTriggersReplan(t *testing.T) {
	listener, configs, _, port, client, _ := newListenerFixture(t)

	listener.Start(context.Background())
	defer listener.Stop()

	require.Eventually(t, func() bool {
		entry := port.Get(StableID("evening"))
		return entry != nil && entry.Spec.Hour == 18
	}, 2*time.Second, 10*time.Millisecond)

	// The admin moves the notification an hour later
	moved := eveningConfig()
	moved.ScheduleHour = 19
	configs.set([]domain.NotificationConfig{moved})

	publisher := redisrepo.NewEventPublisher(client)
	require.Eventually(t, func() bool {
		if err := publisher.PublishConfigChanged(context.Background(), domain.ChangeActionUpdate, "evening"); err != nil {
			return false
		}
		entry := port.Get(StableID("evening"))
		return entry != nil && entry.Spec.Hour == 19
	}, 2*time.Second, 50*time.Millisecond, "a config change event must trigger a fresh plan")
}

func TestListenerPreferenceEventTriggersReplan(t *testing.T) {
	listener, _, prefs, port, client, userID := newListenerFixture(t)

	listener.Start(context.Background())
	defer listener.Stop()

	require.Eventually(t, func() bool {
		return port.Get(StableID("evening")) != nil
	}, 2*time.Second, 10*time.Millisecond)

	// The user switches the evening category off
	updated := domain.DefaultPreference(userID)
	updated.EveningEnabled = false
	prefs.set(updated)

	publisher := redisrepo.NewEventPublisher(client)
	require.Eventually(t, func() bool {
		if err := publisher.PublishPreferenceChanged(context.Background(), userID, domain.ChangeActionUpdate); err != nil {
			return false
		}
		return port.Get(StableID("evening")) == nil
	}, 2*time.Second, 50*time.Millisecond, "a preference change event must replan and cancel the suppressed entry")
}

func TestListenerCoalescesBursts(t *testing.T) {
	userID := uuid.New()
	configs := &stubConfigSource{configs: []domain.NotificationConfig{eveningConfig()}}
	prefs := &stubPreferenceSource{prefs: domain.DefaultPreference(userID)}
	sched := New(configs, prefs, device.NewMemoryPort(), userID, nil)

	// No transport needed: exercise the enqueue side directly
	listener := NewListener(nil, sched, userID, nil)

	_, err := sched.Replan(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sched.state.Fingerprint)

	for i := 0; i < 5; i++ {
		listener.request()
	}

	assert.Len(t, listener.requests, 1, "a burst of events must collapse into one pending replan")
	assert.Empty(t, sched.state.Fingerprint, "every event must invalidate the fingerprint before the replan runs")

	<-listener.requests
	assert.Empty(t, listener.requests, "one drain covers the whole burst")
}

func TestListenerStopEndsConsumption(t *testing.T) {
	listener, configs, _, port, client, _ := newListenerFixture(t)

	listener.Start(context.Background())

	require.Eventually(t, func() bool {
		return port.Get(StableID("evening")) != nil
	}, 2*time.Second, 10*time.Millisecond)

	listener.Stop()
	calls := configs.count()

	publisher := redisrepo.NewEventPublisher(client)
	require.NoError(t, publisher.PublishConfigChanged(context.Background(), domain.ChangeActionUpdate, "evening"))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, calls, configs.count(), "a stopped listener must not consume further events")
}
