package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// Sweep triggers, used as a metric attribute
const (
	SweepTriggerManual   = "manual"
	SweepTriggerList     = "list"
	SweepTriggerInterval = "interval"
)

// Clock returns the current instant
type Clock func() time.Time

// SweepResult reports how many appointments a sweep completed
type SweepResult struct {
	Updated int `json:"updatedCount"`
}

// ExpirySweeper moves booked appointments whose end has passed to completed.
// "Today" and "now" are taken in the clinic's time zone.
type ExpirySweeper struct {
	repo     repositories.AppointmentRepository
	eventBus providers.EventBus
	metrics  *observability.Metrics
	location *time.Location
	now      Clock
}

// NewExpirySweeper creates a new sweeper. eventBus and metrics may be nil.
func NewExpirySweeper(repo repositories.AppointmentRepository, eventBus providers.EventBus, metrics *observability.Metrics, location *time.Location) *ExpirySweeper {
	if location == nil {
		location = time.UTC
	}
	return &ExpirySweeper{
		repo:     repo,
		eventBus: eventBus,
		metrics:  metrics,
		location: location,
		now:      time.Now,
	}
}

// WithClock replaces the sweeper's clock
func (s *ExpirySweeper) WithClock(clock Clock) *ExpirySweeper {
	s.now = clock
	return s
}

// Sweep completes every expired booked appointment
func (s *ExpirySweeper) Sweep(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, SweepTriggerManual)
}

func (s *ExpirySweeper) sweep(ctx context.Context, trigger string) (SweepResult, error) {
	ctx, span := observability.StartSpan(ctx, "ExpirySweeper.Sweep", attribute.String("sweep.trigger", trigger))
	defer span.End()

	instant := s.now()
	today := utils.CalendarDay(instant, s.location)
	clock := utils.ClockTime(instant, s.location)

	ids, err := s.repo.CompleteExpired(ctx, today, clock)
	if err != nil {
		observability.RecordError(span, err)
		return SweepResult{}, err
	}

	result := SweepResult{Updated: len(ids)}
	span.SetAttributes(attribute.Int("sweep.updated", result.Updated))
	if result.Updated == 0 {
		return result, nil
	}

	log.Info().
		Str("trigger", trigger).
		Int("count", result.Updated).
		Ints64("appointment_ids", ids).
		Msg("Completed expired appointments")

	observability.RecordSweep(ctx, s.metrics, result.Updated, trigger)
	for _, id := range ids {
		observability.AuditStatusChange(ctx, id, string(entities.AppointmentStatusCompleted), "sweep")
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, providers.EventChannelAppointmentUpdates, entities.NewSweepEvent(result.Updated)); err != nil {
			log.Warn().Err(err).Msg("Failed to publish sweep event")
		}
	}

	return result, nil
}

// Run sweeps every interval until ctx is done. A non-positive interval disables the loop.
func (s *ExpirySweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Info().Msg("Expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Str("timezone", s.location.String()).Msg("Expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.sweep(ctx, SweepTriggerInterval); err != nil {
				log.Error().Err(err).Msg("Scheduled sweep failed")
			}
		}
	}
}
