//go:build integration

package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	"github.com/agastya-health/clinic-admin/pkg/config"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// newTestPostgresClient connects to the test database, migrates it and empties
// the tables the tests write to
func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "clinic_admin_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg)
	require.NoError(t, err, "Failed to create postgres client")
	t.Cleanup(func() { client.Close() })

	_, err = postgres.NewMigrator(client).Up(ctx)
	require.NoError(t, err, "Failed to migrate test database")

	_, err = client.DB().ExecContext(ctx, "TRUNCATE appointments, patients, doctors, doctor_slots, counters")
	require.NoError(t, err)
	return client
}

func TestSequenceAdapter_ConcurrentIntegration(t *testing.T) {
	client := newTestPostgresClient(t)
	adapter := NewSequenceAdapter(client)

	const workers = 25
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := adapter.NextValue(context.Background(), repositories.SequenceAppointmentID)
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		assert.False(t, seen[v], "value %d issued twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "value %d missing", i)
	}
}

func TestAppointmentAdapter_ConcurrentBookingIntegration(t *testing.T) {
	client := newTestPostgresClient(t)
	adapter := NewAppointmentAdapter(client)
	day := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := int64(1); i <= 2; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- adapter.Create(context.Background(), &entities.Appointment{
				AppointmentID: id,
				DoctorID:      1,
				PatientID:     id,
				Date:          day,
				StartTime:     "10:00",
				EndTime:       "10:30",
				Status:        entities.AppointmentStatusBooked,
				Mobile:        fmt.Sprintf("90000000%02d", id),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsType(err, apperrors.ErrorTypeConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	occupied, err := adapter.OccupiedSlots(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, []entities.TimeSlot{{StartTime: "10:00", EndTime: "10:30"}}, occupied)
}

func TestAppointmentAdapter_CompleteExpiredIntegration(t *testing.T) {
	client := newTestPostgresClient(t)
	adapter := NewAppointmentAdapter(client)
	ctx := context.Background()

	today := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := []*entities.Appointment{
		{AppointmentID: 1, Date: today.AddDate(0, 0, -1), StartTime: "16:00", EndTime: "16:30"},
		{AppointmentID: 2, Date: today, StartTime: "09:00", EndTime: "09:30"},
		{AppointmentID: 3, Date: today, StartTime: "11:00", EndTime: "11:30"},
		{AppointmentID: 4, Date: today.AddDate(0, 0, 1), StartTime: "09:00", EndTime: "09:30"},
	}
	for _, a := range rows {
		a.DoctorID = 1
		a.PatientID = 1
		a.Status = entities.AppointmentStatusBooked
		a.Mobile = "9000000001"
		require.NoError(t, adapter.Create(ctx, a))
	}

	ids, err := adapter.CompleteExpired(ctx, today, "10:00")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	ids, err = adapter.CompleteExpired(ctx, today, "10:00")
	require.NoError(t, err)
	assert.Empty(t, ids)

	stored, err := adapter.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusBooked, stored.Status)
}
