package repositories

import (
	"context"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

// DoctorRepository defines the interface for doctor lookups
type DoctorRepository interface {
	// GetByID retrieves a doctor by doctorID
	GetByID(ctx context.Context, doctorID int64) (*entities.Doctor, error)

	// GetByIDs retrieves the doctors with the given ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]*entities.Doctor, error)

	// Upsert inserts the doctor or refreshes its profile
	Upsert(ctx context.Context, doctor *entities.Doctor) error
}

// DoctorSlotRepository defines the interface for doctor schedules
type DoctorSlotRepository interface {
	// GetActiveByDoctor returns the doctor's active slot record, or a not found error
	GetActiveByDoctor(ctx context.Context, doctorID int64) (*entities.DoctorSlot, error)

	// Upsert stores the doctor's schedule
	Upsert(ctx context.Context, slot *entities.DoctorSlot) error
}
