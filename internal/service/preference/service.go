package preference

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"simora-backend/internal/domain"
	"simora-backend/pkg/logger"
)

// Repository defines the preference storage the service needs
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error)
	Upsert(ctx context.Context, pref *domain.NotificationPreference) error
}

// Events publishes realtime preference change notifications
type Events interface {
	PublishPreferenceChanged(ctx context.Context, userID uuid.UUID, action string) error
}

// Service handles notification preference business logic
type Service struct {
	repo   Repository
	events Events
}

// NewService creates a new preference service
func NewService(repo Repository, events Events) *Service {
	return &Service{
		repo:   repo,
		events: events,
	}
}

// Resolve returns the user's preferences with defaults substituted for
// anything missing. A fetch error degrades to the full default set: failing
// to schedule notifications is worse than scheduling default ones.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID) domain.NotificationPreference {
	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		logger.Warn("Failed to fetch notification preferences, using defaults",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return domain.DefaultPreference(userID)
	}
	if pref == nil {
		// Brand-new user without a stored row
		return domain.DefaultPreference(userID)
	}

	// Guard against partially-populated rows
	if pref.WakeTime == "" {
		pref.WakeTime = "07:00"
	}
	if pref.SleepTime == "" {
		pref.SleepTime = "22:00"
	}

	return *pref
}

// Update applies a partial update over the user's resolved preferences,
// persists the result, and announces the change.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, update *domain.NotificationPreferenceUpdate) (*domain.NotificationPreference, error) {
	current := s.Resolve(ctx, userID)

	if update.MorningEnabled != nil {
		current.MorningEnabled = *update.MorningEnabled
	}
	if update.EveningEnabled != nil {
		current.EveningEnabled = *update.EveningEnabled
	}
	if update.RemindersEnabled != nil {
		current.RemindersEnabled = *update.RemindersEnabled
	}
	if update.GoalsEnabled != nil {
		current.GoalsEnabled = *update.GoalsEnabled
	}
	if update.WakeTime != nil {
		current.WakeTime = *update.WakeTime
	}
	if update.SleepTime != nil {
		current.SleepTime = *update.SleepTime
	}

	if err := s.repo.Upsert(ctx, &current); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	if err := s.events.PublishPreferenceChanged(ctx, userID, domain.ChangeActionUpdate); err != nil {
		// The write succeeded; a missed event only delays the reschedule
		// until the next trigger
		logger.Warn("Failed to publish preference change",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	return &current, nil
}
