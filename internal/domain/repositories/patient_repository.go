package repositories

import (
	"context"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// GetByMobile returns the patient registered with mobile, or a not found error
	GetByMobile(ctx context.Context, mobile string) (*entities.Patient, error)

	// Create inserts a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByIDs retrieves the patients with the given ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]*entities.Patient, error)
}
