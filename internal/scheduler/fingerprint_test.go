package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"simora-backend/internal/domain"
)

func testConfigs() []domain.NotificationConfig {
	return []domain.NotificationConfig{
		{Key: "morning_summary", Title: "Good morning", Body: "Your day ahead", ScheduleHour: 7, ScheduleMinute: 30, Enabled: true, Category: domain.CategoryMorning, SortOrder: 1},
		{Key: "evening_checkin", Title: "Evening check-in", Body: "How did it go?", ScheduleHour: 21, ScheduleMinute: 0, Enabled: true, Category: domain.CategoryEvening, SortOrder: 2},
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	assert.Equal(t, Fingerprint(testConfigs()), Fingerprint(testConfigs()))
}

func TestFingerprintIgnoresCosmeticFields(t *testing.T) {
	base := Fingerprint(testConfigs())

	cosmetic := testConfigs()
	cosmetic[0].SortOrder = 99
	cosmetic[0].Category = "something_else"
	cosmetic[1].Emoji = "🌙"
	cosmetic[1].Sound = "chime.wav"
	assert.Equal(t, base, Fingerprint(cosmetic))
}

func TestFingerprintIgnoresListOrder(t *testing.T) {
	configs := testConfigs()
	reversed := []domain.NotificationConfig{configs[1], configs[0]}

	assert.Equal(t, Fingerprint(configs), Fingerprint(reversed))
}

func TestFingerprintChangesOnRelevantFields(t *testing.T) {
	base := Fingerprint(testConfigs())

	mutate := []func(*domain.NotificationConfig){
		func(c *domain.NotificationConfig) { c.Key = "renamed" },
		func(c *domain.NotificationConfig) { c.Enabled = false },
		func(c *domain.NotificationConfig) { c.ScheduleHour = 8 },
		func(c *domain.NotificationConfig) { c.ScheduleMinute = 45 },
		func(c *domain.NotificationConfig) { c.Title = "changed" },
		func(c *domain.NotificationConfig) { c.Body = "changed" },
	}

	for i, fn := range mutate {
		configs := testConfigs()
		fn(&configs[0])
		assert.NotEqual(t, base, Fingerprint(configs), "mutation %d should change fingerprint", i)
	}
}

func TestFingerprintEmptySet(t *testing.T) {
	assert.NotEmpty(t, Fingerprint(nil))
	assert.Equal(t, Fingerprint(nil), Fingerprint([]domain.NotificationConfig{}))
}

func TestStableIDStable(t *testing.T) {
	assert.Equal(t, StableID("morning_summary"), StableID("morning_summary"))
	assert.NotEqual(t, StableID("morning_summary"), StableID("evening_checkin"))
}

func TestStableIDPositive(t *testing.T) {
	for _, key := range []string{"a", "morning_summary", "evening_checkin", "goal_nudge_1", "water_reminder"} {
		assert.GreaterOrEqual(t, StableID(key), int32(0))
	}
}
