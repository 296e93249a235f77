// Package scheduler implements the notification replan pipeline: resolve
// preferences, detect config changes, and turn the surviving configs into
// device-level schedule entries with stable, replace-not-duplicate ids.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"simora-backend/internal/device"
	"simora-backend/internal/domain"
	"simora-backend/pkg/logger"
	"simora-backend/pkg/metrics"
)

// ConfigSource supplies the remote notification config set
type ConfigSource interface {
	List(ctx context.Context) ([]domain.NotificationConfig, error)
}

// PreferenceSource resolves a user's preferences, substituting defaults for
// anything missing. It never fails; degraded fetches yield the default set.
type PreferenceSource interface {
	Resolve(ctx context.Context, userID uuid.UUID) domain.NotificationPreference
}

// State tracks what the scheduler last committed. It is owned by the
// Scheduler and survives across replans so unchanged inputs short-circuit.
type State struct {
	Fingerprint string
	PlanOK      bool
	// Planned maps each active stable id to the digest of the entry issued
	// for it, so replans can skip re-issuing unchanged entries and cancel
	// ids whose config disappeared.
	Planned map[int32]string
}

// Scheduler runs the replan pipeline for one user against one device port
type Scheduler struct {
	configs ConfigSource
	prefs   PreferenceSource
	port    device.Port
	userID  uuid.UUID
	metrics *metrics.Metrics

	mu    sync.Mutex
	state State
}

// New creates a scheduler for a user. metrics may be nil (tests).
func New(configs ConfigSource, prefs PreferenceSource, port device.Port, userID uuid.UUID, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		configs: configs,
		prefs:   prefs,
		port:    port,
		userID:  userID,
		metrics: m,
		state:   State{Planned: make(map[int32]string)},
	}
}

// Invalidate clears the stored fingerprint so the next replan treats the
// inputs as changed. Called by the realtime listener on any change event.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Fingerprint = ""
}

// Replan runs the full pipeline: resolve preferences, fetch configs, compare
// fingerprints, and plan if anything changed. A config fetch failure skips
// the cycle (the caller retries at the next trigger); everything past that
// point is best-effort and never returns an error.
func (s *Scheduler) Replan(ctx context.Context) (domain.PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.port.Supported() {
		logger.Debug("Device scheduling not supported, skipping replan",
			zap.String("user_id", s.userID.String()))
		return domain.PlanResult{}, nil
	}

	prefs := s.prefs.Resolve(ctx, s.userID)

	configs, err := s.configs.List(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ReplansTotal.WithLabelValues("error").Inc()
		}
		return domain.PlanResult{}, fmt.Errorf("failed to fetch notification configs: %w", err)
	}

	fingerprint := Fingerprint(configs)
	if fingerprint == s.state.Fingerprint && s.state.PlanOK {
		logger.Debug("Notification configs unchanged, skipping reschedule",
			zap.String("user_id", s.userID.String()))
		if s.metrics != nil {
			s.metrics.ReplansTotal.WithLabelValues("unchanged").Inc()
		}
		return domain.PlanResult{}, nil
	}

	start := time.Now()
	result := s.plan(ctx, configs, &prefs)

	s.state.Fingerprint = fingerprint

	if s.metrics != nil {
		s.metrics.ReplansTotal.WithLabelValues("planned").Inc()
		s.metrics.PlanDuration.Observe(time.Since(start).Seconds())
	}

	logger.Info("Notification schedule replanned",
		zap.String("user_id", s.userID.String()),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// Plan computes and issues the schedule for the given inputs without the
// fingerprint gate. Exposed for callers that already know the inputs changed.
func (s *Scheduler) Plan(ctx context.Context, configs []domain.NotificationConfig, prefs *domain.NotificationPreference) domain.PlanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan(ctx, configs, prefs)
}

// plan implements the planning algorithm. Caller holds s.mu.
func (s *Scheduler) plan(ctx context.Context, configs []domain.NotificationConfig, prefs *domain.NotificationPreference) domain.PlanResult {
	var result domain.PlanResult

	surviving := make(map[int32]string)
	var requests []*device.Request

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		if !prefs.CategoryEnabled(cfg.Category) {
			result.Skipped++
			continue
		}

		// Quiet hours suppress non-urgent notifications only
		if !cfg.IsUrgent && !IsWithinActiveHours(cfg.ScheduleHour, prefs.WakeTime, prefs.SleepTime) {
			result.Skipped++
			continue
		}

		id := StableID(cfg.Key)
		digest := entryDigest(&cfg)
		surviving[id] = digest

		if s.state.Planned[id] == digest {
			// Entry already scheduled with identical parameters
			result.Scheduled++
			continue
		}

		requests = append(requests, buildRequest(id, &cfg))
	}

	// Cancel entries whose config was disabled or deleted since the last plan
	var stale []int32
	for id := range s.state.Planned {
		if _, ok := surviving[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.port.Cancel(ctx, stale); err != nil {
			logger.Warn("Failed to cancel stale notification entries",
				zap.String("user_id", s.userID.String()),
				zap.Int("count", len(stale)),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.StaleEntriesCancel.Add(float64(len(stale)))
		}
	}

	planned := surviving
	failed := 0
	for _, req := range requests {
		if err := s.port.Schedule(ctx, req); err != nil {
			// One failed entry must not abort its siblings; drop it from the
			// committed set so the next replan retries it.
			logger.Error("Failed to schedule notification",
				zap.String("user_id", s.userID.String()),
				zap.Int32("id", req.ID),
				zap.String("title", req.Title),
				zap.Error(err))
			delete(planned, req.ID)
			failed++
			if s.metrics != nil {
				s.metrics.EntriesFailed.Inc()
			}
			continue
		}
		result.Scheduled++
	}

	s.state.Planned = planned
	// A partially committed plan must not be gated away by an equal
	// fingerprint on the next cycle.
	s.state.PlanOK = failed == 0

	if s.metrics != nil {
		s.metrics.EntriesScheduled.Add(float64(result.Scheduled))
		s.metrics.EntriesSkipped.Add(float64(result.Skipped))
	}

	return result
}

// Teardown cancels every device-scheduled entry for the user and resets the
// state. Called on logout and on listener shutdown.
func (s *Scheduler) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.port.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending entries: %w", err)
	}

	if len(ids) > 0 {
		if err := s.port.Cancel(ctx, ids); err != nil {
			return fmt.Errorf("failed to cancel entries: %w", err)
		}
	}

	s.state = State{Planned: make(map[int32]string)}

	logger.Info("Notification schedule torn down",
		zap.String("user_id", s.userID.String()),
		zap.Int("cancelled", len(ids)))

	return nil
}

// entryDigest captures the fields that matter for a single issued entry
func entryDigest(cfg *domain.NotificationConfig) string {
	return fmt.Sprintf("%t|%d|%d|%s|%s|%s|%s|%v",
		cfg.IsUrgent, cfg.ScheduleHour, cfg.ScheduleMinute,
		cfg.Title, cfg.Body, cfg.Emoji, cfg.Sound, cfg.RepeatDays)
}

func buildRequest(id int32, cfg *domain.NotificationConfig) *device.Request {
	title := cfg.Title
	if cfg.Emoji != "" {
		title = cfg.Emoji + " " + cfg.Title
	}

	weekdays := make([]time.Weekday, 0, len(cfg.RepeatDays))
	for _, day := range cfg.RepeatDays {
		weekdays = append(weekdays, time.Weekday(day))
	}

	return &device.Request{
		ID:    id,
		Title: title,
		Body:  cfg.Body,
		Sound: cfg.Sound,
		Spec: device.FireSpec{
			Hour:     cfg.ScheduleHour,
			Minute:   cfg.ScheduleMinute,
			Weekdays: weekdays,
		},
		Payload: map[string]string{
			"key":      cfg.Key,
			"category": cfg.Category,
		},
	}
}
