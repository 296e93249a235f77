package config

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simora-backend/internal/domain"
	apperrors "simora-backend/pkg/errors"
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

func (m *MockRepository) List(ctx context.Context) ([]domain.NotificationConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NotificationConfig), args.Error(1)
}

func (m *MockRepository) GetByKey(ctx context.Context, key string) (*domain.NotificationConfig, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationConfig), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, config *domain.NotificationConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, config *domain.NotificationConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishConfigChanged(ctx context.Context, action, key string) error {
	args := m.Called(ctx, action, key)
	return args.Error(0)
}

func validConfig() *domain.NotificationConfig {
	return &domain.NotificationConfig{
		Key:          "morning_summary",
		Title:        "Good morning",
		Body:         "Your day ahead",
		ScheduleHour: 7,
		Enabled:      true,
		Category:     domain.CategoryMorning,
	}
}

func TestCreatePublishesInsertEvent(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	config := validConfig()
	repo.On("GetByKey", mock.Anything, config.Key).Return(nil, nil)
	repo.On("Create", mock.Anything, config).Return(nil)
	events.On("PublishConfigChanged", mock.Anything, domain.ChangeActionInsert, config.Key).Return(nil)

	require.NoError(t, service.Create(context.Background(), config))

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestCreateDuplicateKeyRejected(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	config := validConfig()
	repo.On("GetByKey", mock.Anything, config.Key).Return(validConfig(), nil)

	err := service.Create(context.Background(), config)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateValidation(t *testing.T) {
	service := NewService(new(MockRepository), new(MockEvents))

	tests := []struct {
		name   string
		mutate func(*domain.NotificationConfig)
	}{
		{"missing key", func(c *domain.NotificationConfig) { c.Key = "" }},
		{"missing title", func(c *domain.NotificationConfig) { c.Title = "" }},
		{"hour too large", func(c *domain.NotificationConfig) { c.ScheduleHour = 24 }},
		{"negative hour", func(c *domain.NotificationConfig) { c.ScheduleHour = -1 }},
		{"minute too large", func(c *domain.NotificationConfig) { c.ScheduleMinute = 60 }},
		{"bad repeat day", func(c *domain.NotificationConfig) { c.RepeatDays = []int{7} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			assert.Error(t, service.Create(context.Background(), config))
		})
	}
}

func TestDeletePublishesDeleteEvent(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	repo.On("GetByKey", mock.Anything, "morning_summary").Return(validConfig(), nil)
	repo.On("Delete", mock.Anything, "morning_summary").Return(nil)
	events.On("PublishConfigChanged", mock.Anything, domain.ChangeActionDelete, "morning_summary").Return(nil)

	require.NoError(t, service.Delete(context.Background(), "morning_summary"))
	events.AssertExpectations(t)
}

func TestDeleteUnknownKeyNotFound(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, new(MockEvents))

	repo.On("GetByKey", mock.Anything, "ghost").Return(nil, nil)

	err := service.Delete(context.Background(), "ghost")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeConfigNotFound, appErr.Code)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdatePublishFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	events := new(MockEvents)
	service := NewService(repo, events)

	config := validConfig()
	repo.On("GetByKey", mock.Anything, config.Key).Return(validConfig(), nil)
	repo.On("Update", mock.Anything, config).Return(nil)
	events.On("PublishConfigChanged", mock.Anything, domain.ChangeActionUpdate, config.Key).
		Return(errors.New("redis down"))

	assert.NoError(t, service.Update(context.Background(), config))
}
