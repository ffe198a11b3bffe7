package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDoctorSlot_RangeFor(t *testing.T) {
	slot := &DoctorSlot{
		Schedule: []ScheduleRange{
			{FromDate: day(2025, 3, 1), ToDate: day(2025, 3, 10)},
			{FromDate: day(2025, 3, 11), ToDate: time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC)},
		},
	}

	r, ok := slot.RangeFor(day(2025, 3, 10))
	require.True(t, ok, "toDate is inclusive")
	assert.Equal(t, day(2025, 3, 1), r.FromDate)

	r, ok = slot.RangeFor(day(2025, 3, 20))
	require.True(t, ok, "toDate with a time component still covers its whole day")
	assert.Equal(t, day(2025, 3, 11), r.FromDate)

	_, ok = slot.RangeFor(day(2025, 3, 21))
	assert.False(t, ok)
}

func TestScheduleRange_DayFor(t *testing.T) {
	r := &ScheduleRange{
		EachSchedule: []DaySchedule{
			{Date: time.Date(2025, 3, 14, 5, 30, 0, 0, time.UTC), MorningSlot: []string{"09:00", "09:30"}},
		},
	}

	d, ok := r.DayFor(day(2025, 3, 14))
	require.True(t, ok)
	assert.Equal(t, []string{"09:00", "09:30"}, d.Boundaries())

	_, ok = r.DayFor(day(2025, 3, 15))
	assert.False(t, ok)
}

func TestDoctorSlot_SlotInterval(t *testing.T) {
	assert.Equal(t, DefaultSlotInterval, (&DoctorSlot{}).SlotInterval())
	assert.Equal(t, 15, (&DoctorSlot{TimeSlotInterval: 15}).SlotInterval())
}

func TestDaySchedule_Boundaries(t *testing.T) {
	d := DaySchedule{
		MorningSlot: []string{"09:00", "09:30", "10:00"},
		EveningSlot: []string{"17:00", "17:30"},
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "17:00", "17:30"}, d.Boundaries())
}

func TestPatient_FullMobile(t *testing.T) {
	cc := "+91"
	assert.Equal(t, "+919876543210", (&Patient{Mobile: "9876543210", CountryCode: &cc}).FullMobile())
	assert.Equal(t, "9876543210", (&Patient{Mobile: "9876543210"}).FullMobile())
}

func TestAppointmentStatus(t *testing.T) {
	assert.True(t, AppointmentStatusBooked.Valid())
	assert.False(t, AppointmentStatus("pending").Valid())
	assert.True(t, AppointmentStatusCompleted.Occupies())
	assert.False(t, AppointmentStatusCancelled.Occupies())
}
