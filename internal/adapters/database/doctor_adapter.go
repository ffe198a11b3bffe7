package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

var doctorColumns = []interface{}{
	"doctor_id", "full_name", "specialization", "email", "mobile", "created_at", "updated_at",
}

// DoctorAdapter implements the DoctorRepository interface
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a doctor by doctorID
func (a *DoctorAdapter) GetByID(ctx context.Context, doctorID int64) (*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"doctor_id": doctorID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor, err := scanDoctor(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor %d not found", doctorID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor", err)
	}
	return doctor, nil
}

// GetByIDs retrieves the doctors with the given ids
func (a *DoctorAdapter) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Doctor, error) {
	if len(ids) == 0 {
		return []*entities.Doctor{}, nil
	}

	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.C("doctor_id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctors", err)
	}
	defer rows.Close()

	doctors := []*entities.Doctor{}
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to get doctors", err)
	}
	return doctors, nil
}

// Upsert inserts the doctor or refreshes its profile fields
func (a *DoctorAdapter) Upsert(ctx context.Context, doctor *entities.Doctor) error {
	now := time.Now().UTC()
	query, args, err := a.db.Insert("doctors").
		Rows(goqu.Record{
			"doctor_id":      doctor.DoctorID,
			"full_name":      doctor.FullName,
			"specialization": doctor.Specialization,
			"email":          doctor.Email,
			"mobile":         doctor.Mobile,
			"created_at":     now,
			"updated_at":     now,
		}).
		OnConflict(goqu.DoUpdate("doctor_id", goqu.Record{
			"full_name":      doctor.FullName,
			"specialization": doctor.Specialization,
			"email":          doctor.Email,
			"mobile":         doctor.Mobile,
			"updated_at":     now,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save doctor", err)
	}
	return nil
}

func scanDoctor(row rowScanner) (*entities.Doctor, error) {
	doctor := &entities.Doctor{}
	err := row.Scan(
		&doctor.DoctorID,
		&doctor.FullName,
		&doctor.Specialization,
		&doctor.Email,
		&doctor.Mobile,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

// DoctorSlotAdapter implements the DoctorSlotRepository interface.
// The schedule is stored as a JSONB document.
type DoctorSlotAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorSlotAdapter creates a new doctor slot adapter
func NewDoctorSlotAdapter(client *postgres.Client) repositories.DoctorSlotRepository {
	return &DoctorSlotAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetActiveByDoctor returns the doctor's active slot record
func (a *DoctorSlotAdapter) GetActiveByDoctor(ctx context.Context, doctorID int64) (*entities.DoctorSlot, error) {
	query, args, err := a.db.Select(
		"id", "doctor_id", "is_active", "time_slot_interval", "schedule", "created_at", "updated_at",
	).From("doctor_slots").
		Where(goqu.Ex{"doctor_id": doctorID, "is_active": true}).
		Order(goqu.I("id").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot := &entities.DoctorSlot{}
	var schedule []byte
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&slot.ID,
		&slot.DoctorID,
		&slot.IsActive,
		&slot.TimeSlotInterval,
		&schedule,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("No slots found for doctor")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor slots", err)
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &slot.Schedule); err != nil {
			return nil, apperrors.NewInternalError("failed to decode doctor schedule", err)
		}
	}
	return slot, nil
}

// Upsert stores the doctor's schedule, replacing any existing one
func (a *DoctorSlotAdapter) Upsert(ctx context.Context, slot *entities.DoctorSlot) error {
	schedule, err := json.Marshal(slot.Schedule)
	if err != nil {
		return apperrors.NewInternalError("failed to encode doctor schedule", err)
	}

	now := time.Now().UTC()
	query, args, err := a.db.Insert("doctor_slots").
		Rows(goqu.Record{
			"doctor_id":          slot.DoctorID,
			"is_active":          slot.IsActive,
			"time_slot_interval": slot.TimeSlotInterval,
			"schedule":           string(schedule),
			"created_at":         now,
			"updated_at":         now,
		}).
		OnConflict(goqu.DoUpdate("doctor_id", goqu.Record{
			"is_active":          slot.IsActive,
			"time_slot_interval": slot.TimeSlotInterval,
			"schedule":           string(schedule),
			"updated_at":         now,
		})).
		Returning("id").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&slot.ID); err != nil {
		return apperrors.NewInternalError("failed to save doctor slots", err)
	}
	return nil
}
