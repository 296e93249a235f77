package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	redisrepo "simora-backend/internal/repository/redis"
)

// RemotePort is the server half of the hybrid scheduler: when a device cannot
// schedule locally, its entries are held in Redis and delivered as push
// notifications by the Dispatcher when they come due.
type RemotePort struct {
	repo   *redisrepo.ScheduleRepository
	userID uuid.UUID
	now    func() time.Time
}

// NewRemotePort creates a push-fallback port for one user
func NewRemotePort(repo *redisrepo.ScheduleRepository, userID uuid.UUID) *RemotePort {
	return &RemotePort{
		repo:   repo,
		userID: userID,
		now:    time.Now,
	}
}

// Schedule stores the request with its next computed fire time
func (p *RemotePort) Schedule(ctx context.Context, req *Request) error {
	weekdays := make([]int, 0, len(req.Spec.Weekdays))
	for _, day := range req.Spec.Weekdays {
		weekdays = append(weekdays, int(day))
	}

	entry := &redisrepo.ScheduledEntry{
		ID:       req.ID,
		UserID:   p.userID,
		Title:    req.Title,
		Body:     req.Body,
		Sound:    req.Sound,
		Hour:     req.Spec.Hour,
		Minute:   req.Spec.Minute,
		Weekdays: weekdays,
		Payload:  req.Payload,
		NextFire: NextFireTime(p.now(), req.Spec).Unix(),
	}

	return p.repo.Put(ctx, entry)
}

// Cancel removes the given entries
func (p *RemotePort) Cancel(ctx context.Context, ids []int32) error {
	return p.repo.Remove(ctx, p.userID, ids)
}

// Pending returns the ids of all held entries for the user
func (p *RemotePort) Pending(ctx context.Context) ([]int32, error) {
	return p.repo.PendingIDs(ctx, p.userID)
}

// Supported reports true
func (p *RemotePort) Supported() bool {
	return true
}

// NextFireTime computes the first time strictly after now that matches the
// fire spec: the next hh:mm in local time, constrained to the weekday set
// when one is given. A slot exactly at now rolls forward to the next
// occurrence.
func NextFireTime(now time.Time, spec FireSpec) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		spec.Hour, spec.Minute, 0, 0, now.Location())

	if len(spec.Weekdays) == 0 {
		if candidate.After(now) {
			return candidate
		}
		return candidate.AddDate(0, 0, 1)
	}

	allowed := make(map[time.Weekday]bool, len(spec.Weekdays))
	for _, day := range spec.Weekdays {
		allowed[day] = true
	}

	for offset := 0; offset <= 7; offset++ {
		next := candidate.AddDate(0, 0, offset)
		if allowed[next.Weekday()] && next.After(now) {
			return next
		}
	}

	// Unreachable with a non-empty weekday set; fall back to tomorrow
	return candidate.AddDate(0, 0, 1)
}
