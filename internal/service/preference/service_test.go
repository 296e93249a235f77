package preference

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simora-backend/internal/domain"
	"simora-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	os.Exit(m.Run())
}

// Mocks

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationPreference), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	args := m.Called(ctx, pref)
	return args.Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishPreferenceChanged(ctx context.Context, userID uuid.UUID, action string) error {
	args := m.Called(ctx, userID, action)
	return args.Error(0)
}

func TestResolveNoStoredRowReturnsDefaults(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	repo.On("Get", mock.Anything, userID).Return(nil, nil)

	prefs := service.Resolve(context.Background(), userID)

	assert.True(t, prefs.MorningEnabled)
	assert.True(t, prefs.EveningEnabled)
	assert.True(t, prefs.RemindersEnabled)
	assert.True(t, prefs.GoalsEnabled)
	assert.Equal(t, "07:00", prefs.WakeTime)
	assert.Equal(t, "22:00", prefs.SleepTime)
	assert.Equal(t, userID, prefs.UserID)
}

func TestResolveFetchErrorDegradesToDefaults(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	repo.On("Get", mock.Anything, userID).Return(nil, errors.New("store unreachable"))

	prefs := service.Resolve(context.Background(), userID)

	assert.True(t, prefs.MorningEnabled)
	assert.Equal(t, "07:00", prefs.WakeTime)
	assert.Equal(t, "22:00", prefs.SleepTime)
}

func TestResolveFillsMissingBoundaries(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	stored := &domain.NotificationPreference{UserID: userID, EveningEnabled: true}
	repo.On("Get", mock.Anything, userID).Return(stored, nil)

	prefs := service.Resolve(context.Background(), userID)

	assert.Equal(t, "07:00", prefs.WakeTime)
	assert.Equal(t, "22:00", prefs.SleepTime)
	assert.False(t, prefs.MorningEnabled, "stored toggles are kept as-is")
}

func TestUpdateMergesOverResolved(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	repo.On("Get", mock.Anything, userID).Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.NotificationPreference")).Return(nil)
	events.On("PublishPreferenceChanged", mock.Anything, userID, domain.ChangeActionUpdate).Return(nil)

	off := false
	wake := "06:30"
	updated, err := service.Update(context.Background(), userID, &domain.NotificationPreferenceUpdate{
		MorningEnabled: &off,
		WakeTime:       &wake,
	})

	require.NoError(t, err)
	assert.False(t, updated.MorningEnabled)
	assert.Equal(t, "06:30", updated.WakeTime)
	assert.True(t, updated.EveningEnabled, "untouched fields keep defaults")
	assert.Equal(t, "22:00", updated.SleepTime)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestUpdatePublishFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	repo.On("Get", mock.Anything, userID).Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishPreferenceChanged", mock.Anything, userID, domain.ChangeActionUpdate).
		Return(errors.New("redis down"))

	off := false
	_, err := service.Update(context.Background(), userID, &domain.NotificationPreferenceUpdate{
		GoalsEnabled: &off,
	})

	assert.NoError(t, err)
}

func TestUpdateUpsertFailure(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	userID := uuid.New()
	repo.On("Get", mock.Anything, userID).Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("write failed"))

	off := false
	_, err := service.Update(context.Background(), userID, &domain.NotificationPreferenceUpdate{
		GoalsEnabled: &off,
	})

	assert.Error(t, err)
	events.AssertNotCalled(t, "PublishPreferenceChanged", mock.Anything, mock.Anything, mock.Anything)
}
