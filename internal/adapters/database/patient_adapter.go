package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

var patientColumns = []interface{}{
	"patient_id", "full_name", "mobile", "email", "country_code",
	"doctor_id", "package_ids", "created_at", "updated_at",
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByMobile retrieves the patient registered with mobile
func (a *PatientAdapter) GetByMobile(ctx context.Context, mobile string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.Ex{"mobile": mobile}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Patient not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return patient, nil
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	if patient.PackageIDs == nil {
		patient.PackageIDs = []int64{}
	}

	record := goqu.Record{
		"patient_id":   patient.PatientID,
		"full_name":    patient.FullName,
		"mobile":       patient.Mobile,
		"email":        patient.Email,
		"country_code": patient.CountryCode,
		"doctor_id":    patient.DoctorID,
		"package_ids":  pq.Array(patient.PackageIDs),
		"created_at":   patient.CreatedAt,
		"updated_at":   patient.UpdatedAt,
	}

	query, args, err := a.db.Insert("patients").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("Patient already registered with this mobile", err)
		}
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

// GetByIDs retrieves the patients with the given ids
func (a *PatientAdapter) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Patient, error) {
	if len(ids) == 0 {
		return []*entities.Patient{}, nil
	}

	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.C("patient_id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patients", err)
	}
	defer rows.Close()

	patients := []*entities.Patient{}
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to get patients", err)
	}
	return patients, nil
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	patient := &entities.Patient{}
	var email, countryCode sql.NullString
	var packageIDs pq.Int64Array

	err := row.Scan(
		&patient.PatientID,
		&patient.FullName,
		&patient.Mobile,
		&email,
		&countryCode,
		&patient.DoctorID,
		&packageIDs,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		patient.Email = &email.String
	}
	if countryCode.Valid {
		patient.CountryCode = &countryCode.String
	}
	patient.PackageIDs = []int64(packageIDs)
	return patient, nil
}
