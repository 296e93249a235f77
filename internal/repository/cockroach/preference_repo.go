package cockroach

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"simora-backend/internal/domain"
)

// PreferenceRepository handles user notification preference data operations
type PreferenceRepository struct {
	db *pgxpool.Pool
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get retrieves the preference row for a user. Returns (nil, nil) when the
// user has no stored preferences yet.
func (r *PreferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	query := `
		SELECT user_id, morning_enabled, evening_enabled, reminders_enabled,
		       goals_enabled, wake_time, sleep_time, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	var p domain.NotificationPreference
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.MorningEnabled,
		&p.EveningEnabled,
		&p.RemindersEnabled,
		&p.GoalsEnabled,
		&p.WakeTime,
		&p.SleepTime,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}

	return &p, nil
}

// Upsert inserts or replaces the preference row for a user
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *domain.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences
			(user_id, morning_enabled, evening_enabled, reminders_enabled,
			 goals_enabled, wake_time, sleep_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			morning_enabled = EXCLUDED.morning_enabled,
			evening_enabled = EXCLUDED.evening_enabled,
			reminders_enabled = EXCLUDED.reminders_enabled,
			goals_enabled = EXCLUDED.goals_enabled,
			wake_time = EXCLUDED.wake_time,
			sleep_time = EXCLUDED.sleep_time,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		pref.UserID,
		pref.MorningEnabled,
		pref.EveningEnabled,
		pref.RemindersEnabled,
		pref.GoalsEnabled,
		pref.WakeTime,
		pref.SleepTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preferences: %w", err)
	}

	return nil
}

// Delete removes the preference row for a user
func (r *PreferenceRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notification_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification preferences: %w", err)
	}

	return nil
}
