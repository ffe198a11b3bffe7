package repositories

import (
	"context"
)

// Sequence names
const (
	SequenceAppointmentID = "appointmentID"
	SequencePatientID     = "patientID"
	SequenceDoctorID      = "doctorID"
	SequenceBlogID        = "blogID"
)

// SequenceRepository issues monotonically increasing per-name integers
type SequenceRepository interface {
	// NextValue atomically increments the named counter, creating it at 1
	NextValue(ctx context.Context, name string) (int64, error)
}
