package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"sort"

	"simora-backend/internal/domain"
)

// Fingerprint computes a deterministic digest of the scheduling-relevant
// fields of a config set: key, enabled, hour, minute, title, body. Fields
// that cannot change firing behavior (sort order, category, emoji, sound)
// are excluded so cosmetic edits do not force a reschedule. Configs are
// hashed in key order, making the result independent of list ordering.
func Fingerprint(configs []domain.NotificationConfig) string {
	ordered := make([]domain.NotificationConfig, len(configs))
	copy(ordered, configs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Key < ordered[j].Key
	})

	h := sha256.New()
	for _, c := range ordered {
		fmt.Fprintf(h, "%s\x1f%t\x1f%d\x1f%d\x1f%s\x1f%s\x1e",
			c.Key, c.Enabled, c.ScheduleHour, c.ScheduleMinute, c.Title, c.Body)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// StableID maps a config key to the numeric id space of the device
// scheduling facility: FNV-1a over the key, truncated to 31 bits so the
// result is a positive int32. Replanning the same key therefore always
// targets the same device-level entry. Key collisions are an accepted risk
// at this data scale (a few dozen configs).
func StableID(key string) int32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int32(h.Sum32() & 0x7FFFFFFF)
}
