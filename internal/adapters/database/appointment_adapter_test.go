package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewFromDB(db), mock
}

func appointmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"appointment_id", "doctor_id", "patient_id", "date", "start_time", "end_time",
		"status", "mobile", "email", "is_whatsapp_number", "terms_accepted",
		"marketing_consent", "created_at", "updated_at",
	})
}

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestSequenceAdapter_NextValue(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSequenceAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "counters"`) + `.*'appointmentID'.*ON CONFLICT.*DO UPDATE.*` + regexp.QuoteMeta(`"counters"."value" + 1`) + `.*RETURNING "value"`).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(7)))

	value, err := adapter.NextValue(context.Background(), repositories.SequenceAppointmentID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceAdapter_NextValueStoreFailure(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSequenceAdapter(client)

	mock.ExpectQuery(`INSERT INTO "counters"`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.NextValue(context.Background(), repositories.SequencePatientID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestAppointmentAdapter_CreateDuplicateSlot(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"appointments_slot_key\""})

	err := adapter.Create(context.Background(), &entities.Appointment{
		AppointmentID: 12,
		DoctorID:      3,
		PatientID:     8,
		Date:          testDay,
		StartTime:     "09:00",
		EndTime:       "09:30",
		Mobile:        "9876543210",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Equal(t, "Slot already booked", apperrors.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_CreateWritesCalendarDay(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectExec(regexp.QuoteMeta(`'2025-03-14'`)).WillReturnResult(sqlmock.NewResult(0, 1))

	appt := &entities.Appointment{AppointmentID: 1, DoctorID: 3, Date: testDay, StartTime: "09:00", EndTime: "09:30"}
	require.NoError(t, adapter.Create(context.Background(), appt))
	assert.Equal(t, entities.AppointmentStatusBooked, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ("appointment_id" = 404)`)).WillReturnRows(appointmentRows())

	_, err := adapter.GetByID(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Equal(t, "Appointment not found", apperrors.PublicMessage(err))
}

func TestAppointmentAdapter_List(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`("doctor_id" = 3)`) + `.*` +
		regexp.QuoteMeta(`("date" >= '2025-03-14')`) + `.*` +
		regexp.QuoteMeta(`ORDER BY "date" ASC, "start_time" ASC`)).
		WillReturnRows(appointmentRows().
			AddRow(int64(1), int64(3), int64(8), testDay, "09:00", "09:30", "booked", "9876543210", nil, true, true, false, now, now).
			AddRow(int64(2), int64(3), int64(9), testDay, "09:30", "10:00", "completed", "9876500000", "a@b.c", false, true, false, now, now))

	from := testDay
	appts, err := adapter.List(context.Background(), repositories.AppointmentFilter{DoctorID: 3, From: &from})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, entities.AppointmentStatusBooked, appts[0].Status)
	assert.True(t, appts[0].IsWhatsAppNumber)
	assert.Equal(t, "", appts[0].Email)
	assert.Equal(t, "a@b.c", appts[1].Email)
	assert.True(t, testDay.Equal(appts[1].Date))
}

func TestAppointmentAdapter_UpdateOnlyTouchesGivenFields(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	now := time.Now()
	no := false
	mock.ExpectQuery(`UPDATE "appointments" SET .*"is_whatsapp_number"=FALSE`).
		WillReturnRows(appointmentRows().
			AddRow(int64(5), int64(3), int64(8), testDay, "09:00", "09:30", "booked", "9876543210", "", false, true, false, now, now))

	appt, err := adapter.Update(context.Background(), 5, entities.AppointmentPatch{IsWhatsAppNumber: &no})
	require.NoError(t, err)
	assert.False(t, appt.IsWhatsAppNumber)
	assert.True(t, appt.TermsAccepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_SetStatusMissing(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`UPDATE "appointments" SET .*"status"='cancelled'`).WillReturnRows(appointmentRows())

	_, err := adapter.SetStatus(context.Background(), 99, entities.AppointmentStatusCancelled)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestAppointmentAdapter_DeleteRejectsEmptyFilter(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	_, err := adapter.Delete(context.Background(), repositories.AppointmentFilter{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_DeleteByIDs(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM "appointments" WHERE ("appointment_id" IN (4, 5)) RETURNING`)).
		WillReturnRows(appointmentRows().
			AddRow(int64(4), int64(3), int64(8), testDay, "09:00", "09:30", "booked", "9876543210", "", false, false, false, now, now))

	deleted, err := adapter.Delete(context.Background(), repositories.AppointmentFilter{AppointmentIDs: []int64{4, 5}})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, int64(4), deleted[0].AppointmentID)
}

func TestAppointmentAdapter_CompleteExpired(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`("status" = 'booked')`) + `.*` +
		regexp.QuoteMeta(`(("date" = '2025-03-14') AND ("end_time" < '10:00'))`) + `.*` +
		regexp.QuoteMeta(`("date" < '2025-03-14')`) + `.*` +
		regexp.QuoteMeta(`RETURNING "appointment_id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"appointment_id"}).AddRow(int64(11)).AddRow(int64(12)))

	ids, err := adapter.CompleteExpired(context.Background(), testDay, "10:00")
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_OccupiedSlots(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(regexp.QuoteMeta(`"status" IN ('booked', 'completed')`)).
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}).AddRow("09:30", "10:00"))

	slots, err := adapter.OccupiedSlots(context.Background(), 3, testDay)
	require.NoError(t, err)
	assert.Equal(t, []entities.TimeSlot{{StartTime: "09:30", EndTime: "10:00"}}, slots)
}

func TestAppointmentAdapter_ExistsOccupying(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`SELECT 1 FROM "appointments"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(`SELECT 1 FROM "appointments"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := adapter.ExistsOccupying(context.Background(), 3, testDay, "09:00", "09:30")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = adapter.ExistsOccupying(context.Background(), 3, testDay, "09:00", "09:30")
	require.NoError(t, err)
	assert.True(t, exists)
}
