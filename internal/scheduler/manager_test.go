package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simora-backend/internal/device"
	"simora-backend/internal/domain"
)

func newManagerFixture(t *testing.T) (*Manager, *device.MemoryPort, uuid.UUID) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	userID := uuid.New()
	configs := &stubConfigSource{configs: []domain.NotificationConfig{eveningConfig()}}
	prefs := &stubPreferenceSource{prefs: domain.DefaultPreference(userID)}
	port := device.NewMemoryPort()

	manager := NewManager(configs, prefs, func(uuid.UUID) device.Port { return port }, client, nil)
	return manager, port, userID
}

func TestManagerReplanAttachesOnDemand(t *testing.T) {
	manager, port, userID := newManagerFixture(t)
	defer manager.Shutdown()

	result, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scheduled)
	assert.NotNil(t, port.Get(StableID("evening")))
}

func TestManagerDetachCancelsEntries(t *testing.T) {
	manager, port, userID := newManagerFixture(t)
	defer manager.Shutdown()

	_, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, port.Get(StableID("evening")))

	require.NoError(t, manager.Detach(context.Background(), userID))

	pending, err := port.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "logout must cancel every scheduled entry")
}

func TestManagerReplanAfterDetach(t *testing.T) {
	manager, port, userID := newManagerFixture(t)
	defer manager.Shutdown()

	_, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, manager.Detach(context.Background(), userID))

	result, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scheduled, "a fresh session must plan from scratch")
	assert.NotNil(t, port.Get(StableID("evening")))
}

func TestManagerConcurrentReplanDetach(t *testing.T) {
	manager, _, userID := newManagerFixture(t)
	defer manager.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := manager.Replan(context.Background(), userID)
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, manager.Detach(context.Background(), userID))
			}
		}()
	}
	wg.Wait()

	// The manager must stay usable whatever interleaving occurred
	require.NoError(t, manager.Detach(context.Background(), userID))
	result, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)
}

func TestManagerShutdownKeepsEntries(t *testing.T) {
	manager, port, userID := newManagerFixture(t)

	_, err := manager.Replan(context.Background(), userID)
	require.NoError(t, err)

	manager.Shutdown()

	assert.NotNil(t, port.Get(StableID("evening")),
		"a service restart must not wipe device schedules")
}

func TestManagerAttachIdempotent(t *testing.T) {
	manager, _, userID := newManagerFixture(t)
	defer manager.Shutdown()

	manager.Attach(context.Background(), userID)
	manager.Attach(context.Background(), userID)

	manager.mu.Lock()
	defer manager.mu.Unlock()
	assert.Len(t, manager.sessions, 1)
}
