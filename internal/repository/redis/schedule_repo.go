package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"simora-backend/pkg/logger"
)

// ScheduledEntry is one pending notification held for the push fallback.
// Mirrors the device-local schedule entry shape: stable id, fire rule, text.
type ScheduledEntry struct {
	ID       int32             `json:"id"`
	UserID   uuid.UUID         `json:"user_id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Sound    string            `json:"sound,omitempty"`
	Hour     int               `json:"hour"`
	Minute   int               `json:"minute"`
	Weekdays []int             `json:"weekdays,omitempty"` // 0=Sunday; empty = every day
	Payload  map[string]string `json:"payload,omitempty"`
	NextFire int64             `json:"next_fire"` // unix seconds
}

// ScheduleRepository stores pending push-fallback notification entries.
// Entries live in a per-user hash; due times are indexed in one sorted set
// so the dispatcher can pop everything due with a single range query.
type ScheduleRepository struct {
	client *redis.Client
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(client *redis.Client) *ScheduleRepository {
	return &ScheduleRepository{client: client}
}

const dueIndexKey = "sched:due"

func userEntriesKey(userID uuid.UUID) string {
	return fmt.Sprintf("sched:user:%s:entries", userID)
}

func dueMember(userID uuid.UUID, id int32) string {
	return fmt.Sprintf("%s|%d", userID, id)
}

// Put stores or replaces an entry and indexes its next fire time
func (r *ScheduleRepository) Put(ctx context.Context, entry *ScheduledEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule entry: %w", err)
	}

	field := strconv.FormatInt(int64(entry.ID), 10)
	if err := r.client.HSet(ctx, userEntriesKey(entry.UserID), field, data).Err(); err != nil {
		return fmt.Errorf("failed to store schedule entry: %w", err)
	}

	member := redis.Z{Score: float64(entry.NextFire), Member: dueMember(entry.UserID, entry.ID)}
	if err := r.client.ZAdd(ctx, dueIndexKey, member).Err(); err != nil {
		return fmt.Errorf("failed to index schedule entry: %w", err)
	}

	return nil
}

// Remove deletes entries and their due-index members
func (r *ScheduleRepository) Remove(ctx context.Context, userID uuid.UUID, ids []int32) error {
	if len(ids) == 0 {
		return nil
	}

	fields := make([]string, 0, len(ids))
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		fields = append(fields, strconv.FormatInt(int64(id), 10))
		members = append(members, dueMember(userID, id))
	}

	if err := r.client.HDel(ctx, userEntriesKey(userID), fields...).Err(); err != nil {
		return fmt.Errorf("failed to delete schedule entries: %w", err)
	}
	if err := r.client.ZRem(ctx, dueIndexKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to unindex schedule entries: %w", err)
	}

	return nil
}

// PendingIDs returns the ids of all entries currently held for a user
func (r *ScheduleRepository) PendingIDs(ctx context.Context, userID uuid.UUID) ([]int32, error) {
	fields, err := r.client.HKeys(ctx, userEntriesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}

	ids := make([]int32, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, int32(id))
	}

	return ids, nil
}

// DueBefore returns every entry whose next fire time is at or before t
func (r *ScheduleRepository) DueBefore(ctx context.Context, t time.Time) ([]*ScheduledEntry, error) {
	members, err := r.client.ZRangeByScore(ctx, dueIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(t.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due entries: %w", err)
	}

	var entries []*ScheduledEntry
	for _, member := range members {
		parts := strings.SplitN(member, "|", 2)
		if len(parts) != 2 {
			continue
		}

		userID, err := uuid.Parse(parts[0])
		if err != nil {
			continue
		}

		data, err := r.client.HGet(ctx, userEntriesKey(userID), parts[1]).Bytes()
		if err != nil {
			if err == redis.Nil {
				// Entry was cancelled; drop the dangling index member
				r.client.ZRem(ctx, dueIndexKey, member)
				continue
			}
			logger.Warn("Failed to load due schedule entry",
				zap.String("member", member),
				zap.Error(err))
			continue
		}

		var entry ScheduledEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			logger.Warn("Failed to unmarshal schedule entry",
				zap.String("member", member),
				zap.Error(err))
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// Reschedule advances an entry to its next occurrence
func (r *ScheduleRepository) Reschedule(ctx context.Context, entry *ScheduledEntry, next time.Time) error {
	entry.NextFire = next.Unix()
	return r.Put(ctx, entry)
}
