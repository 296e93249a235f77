package cockroach

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"simora-backend/internal/domain"
)

// ConfigRepository handles notification config data operations
type ConfigRepository struct {
	db *pgxpool.Pool
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// List retrieves all notification configs ordered by sort_order
func (r *ConfigRepository) List(ctx context.Context) ([]domain.NotificationConfig, error) {
	query := `
		SELECT key, title, body, emoji, schedule_hour, schedule_minute, repeat_days,
		       enabled, sound, is_urgent, category, sort_order
		FROM notification_configs
		ORDER BY sort_order ASC, key ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.NotificationConfig
	for rows.Next() {
		var c domain.NotificationConfig
		err := rows.Scan(
			&c.Key,
			&c.Title,
			&c.Body,
			&c.Emoji,
			&c.ScheduleHour,
			&c.ScheduleMinute,
			&c.RepeatDays,
			&c.Enabled,
			&c.Sound,
			&c.IsUrgent,
			&c.Category,
			&c.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification config: %w", err)
		}
		configs = append(configs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification configs: %w", err)
	}

	return configs, nil
}

// GetByKey retrieves a single notification config
func (r *ConfigRepository) GetByKey(ctx context.Context, key string) (*domain.NotificationConfig, error) {
	query := `
		SELECT key, title, body, emoji, schedule_hour, schedule_minute, repeat_days,
		       enabled, sound, is_urgent, category, sort_order
		FROM notification_configs
		WHERE key = $1
	`

	var c domain.NotificationConfig
	err := r.db.QueryRow(ctx, query, key).Scan(
		&c.Key,
		&c.Title,
		&c.Body,
		&c.Emoji,
		&c.ScheduleHour,
		&c.ScheduleMinute,
		&c.RepeatDays,
		&c.Enabled,
		&c.Sound,
		&c.IsUrgent,
		&c.Category,
		&c.SortOrder,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification config: %w", err)
	}

	return &c, nil
}

// Create inserts a new notification config
func (r *ConfigRepository) Create(ctx context.Context, config *domain.NotificationConfig) error {
	query := `
		INSERT INTO notification_configs
			(key, title, body, emoji, schedule_hour, schedule_minute, repeat_days,
			 enabled, sound, is_urgent, category, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		config.Key,
		config.Title,
		config.Body,
		config.Emoji,
		config.ScheduleHour,
		config.ScheduleMinute,
		config.RepeatDays,
		config.Enabled,
		config.Sound,
		config.IsUrgent,
		config.Category,
		config.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification config: %w", err)
	}

	return nil
}

// Update replaces an existing notification config
func (r *ConfigRepository) Update(ctx context.Context, config *domain.NotificationConfig) error {
	query := `
		UPDATE notification_configs
		SET title = $2, body = $3, emoji = $4, schedule_hour = $5, schedule_minute = $6,
		    repeat_days = $7, enabled = $8, sound = $9, is_urgent = $10, category = $11,
		    sort_order = $12
		WHERE key = $1
	`

	tag, err := r.db.Exec(ctx, query,
		config.Key,
		config.Title,
		config.Body,
		config.Emoji,
		config.ScheduleHour,
		config.ScheduleMinute,
		config.RepeatDays,
		config.Enabled,
		config.Sound,
		config.IsUrgent,
		config.Category,
		config.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification config %q not found", config.Key)
	}

	return nil
}

// Delete removes a notification config
func (r *ConfigRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notification_configs WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete notification config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification config %q not found", key)
	}

	return nil
}
