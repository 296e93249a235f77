package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification categories. Each NotificationConfig carries one of these tags
// and each user preference record has a toggle per category.
const (
	CategoryMorning   = "morning"   // morning summary
	CategoryEvening   = "evening"   // evening check-in
	CategoryReminders = "reminders" // periodic reminders
	CategoryGoals     = "goals"     // goal nudges
)

// NotificationConfig is an admin-authored notification definition.
// Maps to CockroachDB notification_configs table. The scheduling core only
// reads these; they are created and edited through the back office.
type NotificationConfig struct {
	Key            string `json:"key" db:"key"`
	Title          string `json:"title" db:"title"`
	Body           string `json:"body" db:"body"`
	Emoji          string `json:"emoji,omitempty" db:"emoji"`
	ScheduleHour   int    `json:"schedule_hour" db:"schedule_hour"`     // 0-23
	ScheduleMinute int    `json:"schedule_minute" db:"schedule_minute"` // 0-59
	RepeatDays     []int  `json:"repeat_days" db:"repeat_days"`         // weekday indices, 0=Sunday; empty = every day
	Enabled        bool   `json:"enabled" db:"enabled"`
	Sound          string `json:"sound,omitempty" db:"sound"`
	IsUrgent       bool   `json:"is_urgent" db:"is_urgent"`
	Category       string `json:"category" db:"category"`
	SortOrder      int    `json:"sort_order" db:"sort_order"`
}

// NotificationPreference represents a user's notification settings.
// Maps to CockroachDB notification_preferences table; zero-or-one row per user.
type NotificationPreference struct {
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	MorningEnabled   bool      `json:"morning_enabled" db:"morning_enabled"`
	EveningEnabled   bool      `json:"evening_enabled" db:"evening_enabled"`
	RemindersEnabled bool      `json:"reminders_enabled" db:"reminders_enabled"`
	GoalsEnabled     bool      `json:"goals_enabled" db:"goals_enabled"`
	WakeTime         string    `json:"wake_time" db:"wake_time"`   // "HH:mm"
	SleepTime        string    `json:"sleep_time" db:"sleep_time"` // "HH:mm"
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference returns the preference record used when a user has no
// stored row. Every toggle is on; the active window is 07:00-22:00.
func DefaultPreference(userID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		UserID:           userID,
		MorningEnabled:   true,
		EveningEnabled:   true,
		RemindersEnabled: true,
		GoalsEnabled:     true,
		WakeTime:         "07:00",
		SleepTime:        "22:00",
		UpdatedAt:        time.Now(),
	}
}

// CategoryEnabled reports whether the toggle for a config category is on.
// Unknown categories are treated as enabled so that new config categories
// are not silently dropped on devices with older preference rows.
func (p *NotificationPreference) CategoryEnabled(category string) bool {
	switch category {
	case CategoryMorning:
		return p.MorningEnabled
	case CategoryEvening:
		return p.EveningEnabled
	case CategoryReminders:
		return p.RemindersEnabled
	case CategoryGoals:
		return p.GoalsEnabled
	default:
		return true
	}
}

// NotificationPreferenceUpdate represents a partial update request for
// notification preferences. Nil fields are left unchanged.
type NotificationPreferenceUpdate struct {
	MorningEnabled   *bool   `json:"morning_enabled,omitempty"`
	EveningEnabled   *bool   `json:"evening_enabled,omitempty"`
	RemindersEnabled *bool   `json:"reminders_enabled,omitempty"`
	GoalsEnabled     *bool   `json:"goals_enabled,omitempty"`
	WakeTime         *string `json:"wake_time,omitempty"`
	SleepTime        *string `json:"sleep_time,omitempty"`
}

// PlanResult reports the outcome of one scheduling plan
type PlanResult struct {
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// ChangeEvent is the realtime payload published when a notification config
// or a user's preference record changes
type ChangeEvent struct {
	Action    string    `json:"action"` // insert, update, delete
	Key       string    `json:"key,omitempty"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Change event actions
const (
	ChangeActionInsert = "insert"
	ChangeActionUpdate = "update"
	ChangeActionDelete = "delete"
)
