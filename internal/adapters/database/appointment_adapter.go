package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

const (
	msgSlotAlreadyBooked   = "Slot already booked"
	msgAppointmentNotFound = "Appointment not found"
)

var appointmentColumns = []interface{}{
	"appointment_id", "doctor_id", "patient_id", "date", "start_time", "end_time",
	"status", "mobile", "email", "is_whatsapp_number", "terms_accepted",
	"marketing_consent", "created_at", "updated_at",
}

var occupyingStatuses = []string{
	string(entities.AppointmentStatusBooked),
	string(entities.AppointmentStatusCompleted),
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now
	if appointment.Status == "" {
		appointment.Status = entities.AppointmentStatusBooked
	}

	record := goqu.Record{
		"appointment_id":     appointment.AppointmentID,
		"doctor_id":          appointment.DoctorID,
		"patient_id":         appointment.PatientID,
		"date":               appointment.Date.Format(utils.DateLayout),
		"start_time":         appointment.StartTime,
		"end_time":           appointment.EndTime,
		"status":             string(appointment.Status),
		"mobile":             appointment.Mobile,
		"email":              appointment.Email,
		"is_whatsapp_number": appointment.IsWhatsAppNumber,
		"terms_accepted":     appointment.TermsAccepted,
		"marketing_consent":  appointment.MarketingConsent,
		"created_at":         appointment.CreatedAt,
		"updated_at":         appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(msgSlotAlreadyBooked, err)
		}
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by appointmentID
func (a *AppointmentAdapter) GetByID(ctx context.Context, appointmentID int64) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"appointment_id": appointmentID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(msgAppointmentNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// List retrieves appointments matching filter ordered by date then start time
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(appointmentConditions(filter)...).
		Order(goqu.I("date").Asc(), goqu.I("start_time").Asc(), goqu.I("appointment_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// ExistsOccupying reports whether a booked or completed appointment holds the slot
func (a *AppointmentAdapter) ExistsOccupying(ctx context.Context, doctorID int64, date time.Time, startTime, endTime string) (bool, error) {
	query, args, err := a.db.Select(goqu.L("1")).
		From("appointments").
		Where(goqu.Ex{
			"doctor_id":  doctorID,
			"date":       date.Format(utils.DateLayout),
			"start_time": startTime,
			"end_time":   endTime,
			"status":     occupyingStatuses,
		}).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check slot", err)
	}
	return true, nil
}

// OccupiedSlots returns the intervals held by booked or completed appointments
func (a *AppointmentAdapter) OccupiedSlots(ctx context.Context, doctorID int64, date time.Time) ([]entities.TimeSlot, error) {
	query, args, err := a.db.Select("start_time", "end_time").
		From("appointments").
		Where(goqu.Ex{
			"doctor_id": doctorID,
			"date":      date.Format(utils.DateLayout),
			"status":    occupyingStatuses,
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load booked slots", err)
	}
	defer rows.Close()

	var slots []entities.TimeSlot
	for rows.Next() {
		var slot entities.TimeSlot
		if err := rows.Scan(&slot.StartTime, &slot.EndTime); err != nil {
			return nil, apperrors.NewInternalError("failed to scan booked slot", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to load booked slots", err)
	}
	return slots, nil
}

// Update applies the non-nil fields of patch and returns the stored appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointmentID int64, patch entities.AppointmentPatch) (*entities.Appointment, error) {
	record := goqu.Record{"updated_at": time.Now().UTC()}
	if patch.DoctorID != nil {
		record["doctor_id"] = *patch.DoctorID
	}
	if patch.PatientID != nil {
		record["patient_id"] = *patch.PatientID
	}
	if patch.Date != nil {
		record["date"] = patch.Date.Format(utils.DateLayout)
	}
	if patch.StartTime != nil {
		record["start_time"] = *patch.StartTime
	}
	if patch.EndTime != nil {
		record["end_time"] = *patch.EndTime
	}
	if patch.Status != nil {
		record["status"] = string(*patch.Status)
	}
	if patch.Mobile != nil {
		record["mobile"] = *patch.Mobile
	}
	if patch.Email != nil {
		record["email"] = *patch.Email
	}
	if patch.IsWhatsAppNumber != nil {
		record["is_whatsapp_number"] = *patch.IsWhatsAppNumber
	}
	if patch.TermsAccepted != nil {
		record["terms_accepted"] = *patch.TermsAccepted
	}
	if patch.MarketingConsent != nil {
		record["marketing_consent"] = *patch.MarketingConsent
	}

	return a.updateReturning(ctx, appointmentID, record)
}

// SetStatus sets the status without checking the current one
func (a *AppointmentAdapter) SetStatus(ctx context.Context, appointmentID int64, status entities.AppointmentStatus) (*entities.Appointment, error) {
	return a.updateReturning(ctx, appointmentID, goqu.Record{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
}

func (a *AppointmentAdapter) updateReturning(ctx context.Context, appointmentID int64, record goqu.Record) (*entities.Appointment, error) {
	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{"appointment_id": appointmentID}).
		Returning(appointmentColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(msgAppointmentNotFound)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError(msgSlotAlreadyBooked, err)
		}
		return nil, apperrors.NewInternalError("failed to update appointment", err)
	}
	return appointment, nil
}

// Delete removes the matching appointments in one statement and returns them
func (a *AppointmentAdapter) Delete(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if filter.IsEmpty() {
		return nil, apperrors.NewValidationError("No filter provided")
	}

	query, args, err := a.db.Delete("appointments").
		Where(appointmentConditions(filter)...).
		Returning(appointmentColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build delete query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to delete appointments", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// CompleteExpired marks booked appointments that ended before now on today,
// or fall on an earlier day, as completed. Times compare lexically as "HH:MM".
func (a *AppointmentAdapter) CompleteExpired(ctx context.Context, today time.Time, now string) ([]int64, error) {
	day := today.Format(utils.DateLayout)

	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     string(entities.AppointmentStatusCompleted),
			"updated_at": time.Now().UTC(),
		}).
		Where(
			goqu.C("status").Eq(string(entities.AppointmentStatusBooked)),
			goqu.Or(
				goqu.And(goqu.C("date").Eq(day), goqu.C("end_time").Lt(now)),
				goqu.C("date").Lt(day),
			),
		).
		Returning("appointment_id").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build sweep query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update expired appointments", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to update expired appointments", err)
	}
	return ids, nil
}

func appointmentConditions(filter repositories.AppointmentFilter) []exp.Expression {
	var conds []exp.Expression
	if len(filter.AppointmentIDs) > 0 {
		conds = append(conds, goqu.C("appointment_id").In(filter.AppointmentIDs))
	}
	if filter.DoctorID != 0 {
		conds = append(conds, goqu.C("doctor_id").Eq(filter.DoctorID))
	}
	if filter.PatientID != 0 {
		conds = append(conds, goqu.C("patient_id").Eq(filter.PatientID))
	}
	if filter.Status != "" {
		conds = append(conds, goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.From != nil {
		conds = append(conds, goqu.C("date").Gte(filter.From.UTC().Format(utils.DateLayout)))
	}
	if filter.To != nil {
		conds = append(conds, goqu.C("date").Lte(filter.To.UTC().Format(utils.DateLayout)))
	}
	return conds
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var status string
	var email sql.NullString

	err := row.Scan(
		&appointment.AppointmentID,
		&appointment.DoctorID,
		&appointment.PatientID,
		&appointment.Date,
		&appointment.StartTime,
		&appointment.EndTime,
		&status,
		&appointment.Mobile,
		&email,
		&appointment.IsWhatsAppNumber,
		&appointment.TermsAccepted,
		&appointment.MarketingConsent,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.Date = utils.StartOfDay(appointment.Date)
	appointment.Status = entities.AppointmentStatus(status)
	appointment.Email = email.String
	return appointment, nil
}

func collectAppointments(rows *sql.Rows) ([]*entities.Appointment, error) {
	appointments := []*entities.Appointment{}
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read appointments", err)
	}
	return appointments, nil
}
