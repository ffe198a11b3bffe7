package repositories

import (
	"context"
	"time"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create inserts a new appointment. A clash on (doctor, date, start, end)
	// is reported as a conflict error.
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by its appointmentID
	GetByID(ctx context.Context, appointmentID int64) (*entities.Appointment, error)

	// List retrieves appointments matching filter ordered by date, start time
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ExistsOccupying reports whether a booked or completed appointment holds the slot
	ExistsOccupying(ctx context.Context, doctorID int64, date time.Time, startTime, endTime string) (bool, error)

	// OccupiedSlots returns the (start, end) pairs held by booked or completed appointments
	OccupiedSlots(ctx context.Context, doctorID int64, date time.Time) ([]entities.TimeSlot, error)

	// Update applies a partial update and returns the stored result
	Update(ctx context.Context, appointmentID int64, patch entities.AppointmentPatch) (*entities.Appointment, error)

	// SetStatus sets the status unconditionally and returns the stored result
	SetStatus(ctx context.Context, appointmentID int64, status entities.AppointmentStatus) (*entities.Appointment, error)

	// Delete removes every appointment matching filter and returns the removed rows
	Delete(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// CompleteExpired moves booked appointments that ended before (today, now) to
	// completed and returns their ids
	CompleteExpired(ctx context.Context, today time.Time, now string) ([]int64, error)
}

// AppointmentFilter defines the appointment-level predicates. Zero values are ignored.
type AppointmentFilter struct {
	AppointmentIDs []int64
	DoctorID       int64
	PatientID      int64
	Status         entities.AppointmentStatus
	From           *time.Time
	To             *time.Time
}

// IsEmpty reports whether the filter would match every appointment
func (f AppointmentFilter) IsEmpty() bool {
	return len(f.AppointmentIDs) == 0 && f.DoctorID == 0 && f.PatientID == 0 &&
		f.Status == "" && f.From == nil && f.To == nil
}
