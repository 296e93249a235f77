package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"simora-backend/internal/domain"
	apperrors "simora-backend/pkg/errors"
	"simora-backend/pkg/logger"
)

// Repository defines the config storage the service needs
type Repository interface {
	List(ctx context.Context) ([]domain.NotificationConfig, error)
	GetByKey(ctx context.Context, key string) (*domain.NotificationConfig, error)
	Create(ctx context.Context, config *domain.NotificationConfig) error
	Update(ctx context.Context, config *domain.NotificationConfig) error
	Delete(ctx context.Context, key string) error
}

// Events publishes realtime config change notifications
type Events interface {
	PublishConfigChanged(ctx context.Context, action, key string) error
}

// Service handles notification config business logic. Reads serve every
// device; writes come from the back office and fan out as change events.
type Service struct {
	repo   Repository
	events Events
}

// NewService creates a new config service
func NewService(repo Repository, events Events) *Service {
	return &Service{
		repo:   repo,
		events: events,
	}
}

// List returns all notification configs ordered by sort order
func (s *Service) List(ctx context.Context) ([]domain.NotificationConfig, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification configs: %w", err)
	}
	return configs, nil
}

// Create adds a new notification config and announces it
func (s *Service) Create(ctx context.Context, config *domain.NotificationConfig) error {
	if err := validate(config); err != nil {
		return err
	}

	existing, err := s.repo.GetByKey(ctx, config.Key)
	if err != nil {
		return fmt.Errorf("failed to check notification key: %w", err)
	}
	if existing != nil {
		return apperrors.KeyExistsError()
	}

	if err := s.repo.Create(ctx, config); err != nil {
		return err
	}

	s.announce(ctx, domain.ChangeActionInsert, config.Key)
	return nil
}

// Update replaces an existing notification config and announces it
func (s *Service) Update(ctx context.Context, config *domain.NotificationConfig) error {
	if err := validate(config); err != nil {
		return err
	}

	existing, err := s.repo.GetByKey(ctx, config.Key)
	if err != nil {
		return fmt.Errorf("failed to check notification key: %w", err)
	}
	if existing == nil {
		return apperrors.ConfigNotFoundError()
	}

	if err := s.repo.Update(ctx, config); err != nil {
		return err
	}

	s.announce(ctx, domain.ChangeActionUpdate, config.Key)
	return nil
}

// Delete removes a notification config and announces it
func (s *Service) Delete(ctx context.Context, key string) error {
	existing, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check notification key: %w", err)
	}
	if existing == nil {
		return apperrors.ConfigNotFoundError()
	}

	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}

	s.announce(ctx, domain.ChangeActionDelete, key)
	return nil
}

func (s *Service) announce(ctx context.Context, action, key string) {
	if err := s.events.PublishConfigChanged(ctx, action, key); err != nil {
		// The write is committed; devices pick the change up on next launch
		logger.Warn("Failed to publish config change",
			zap.String("key", key),
			zap.String("action", action),
			zap.Error(err))
	}
}

func validate(config *domain.NotificationConfig) error {
	if config.Key == "" {
		return apperrors.MissingFieldError("key")
	}
	if config.Title == "" {
		return apperrors.MissingFieldError("title")
	}
	if config.ScheduleHour < 0 || config.ScheduleHour > 23 {
		return apperrors.ValidationError(fmt.Sprintf("schedule hour must be 0-23, got %d", config.ScheduleHour))
	}
	if config.ScheduleMinute < 0 || config.ScheduleMinute > 59 {
		return apperrors.ValidationError(fmt.Sprintf("schedule minute must be 0-59, got %d", config.ScheduleMinute))
	}
	for _, day := range config.RepeatDays {
		if day < 0 || day > 6 {
			return apperrors.ValidationError(fmt.Sprintf("repeat day must be 0-6, got %d", day))
		}
	}
	return nil
}
