package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// SlotService resolves which slots of a doctor's schedule are still free
type SlotService struct {
	slotRepo        repositories.DoctorSlotRepository
	appointmentRepo repositories.AppointmentRepository
}

// NewSlotService creates a new slot service
func NewSlotService(slotRepo repositories.DoctorSlotRepository, appointmentRepo repositories.AppointmentRepository) *SlotService {
	return &SlotService{
		slotRepo:        slotRepo,
		appointmentRepo: appointmentRepo,
	}
}

// AvailableSlots returns the free intervals of doctorID on date, in schedule order.
// Consecutive boundaries of the day form the candidate intervals; intervals held by a
// booked or completed appointment are removed.
func (s *SlotService) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]entities.TimeSlot, error) {
	ctx, span := observability.StartSpan(ctx, "SlotService.AvailableSlots",
		attribute.Int64("doctor.id", doctorID),
		attribute.String("date", date.Format(utils.DateLayout)),
	)
	defer span.End()

	day := utils.StartOfDay(date)

	doctorSlot, err := s.slotRepo.GetActiveByDoctor(ctx, doctorID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	scheduleRange, ok := doctorSlot.RangeFor(day)
	if !ok {
		return nil, apperrors.NewNotFoundError("No schedule for this date")
	}

	daySchedule, ok := scheduleRange.DayFor(day)
	if !ok {
		return nil, apperrors.NewNotFoundError("No slots for this day")
	}

	boundaries := daySchedule.Boundaries()
	if len(boundaries) < 2 {
		return []entities.TimeSlot{}, nil
	}

	occupied, err := s.appointmentRepo.OccupiedSlots(ctx, doctorID, day)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	taken := make(map[string]struct{}, len(occupied))
	for _, slot := range occupied {
		taken[slot.Key()] = struct{}{}
	}

	available := make([]entities.TimeSlot, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		slot := entities.TimeSlot{StartTime: boundaries[i], EndTime: boundaries[i+1]}
		if _, held := taken[slot.Key()]; held {
			continue
		}
		available = append(available, slot)
	}

	span.SetAttributes(attribute.Int("slots.available", len(available)))
	return available, nil
}
