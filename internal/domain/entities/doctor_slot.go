package entities

import (
	"time"

	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// DefaultSlotInterval is used when a doctor's slot record has no interval set
const DefaultSlotInterval = 30

// DoctorSlot is a doctor's published working schedule
type DoctorSlot struct {
	ID               int64           `json:"id" db:"id"`
	DoctorID         int64           `json:"doctorID" db:"doctor_id"`
	IsActive         bool            `json:"isActive" db:"is_active"`
	TimeSlotInterval int             `json:"timeSlotInterval" db:"time_slot_interval"`
	Schedule         []ScheduleRange `json:"schedule" db:"schedule"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// ScheduleRange groups the day schedules valid between FromDate and ToDate inclusive
type ScheduleRange struct {
	FromDate     time.Time     `json:"fromDate"`
	ToDate       time.Time     `json:"toDate"`
	EachSchedule []DaySchedule `json:"eachSchedule"`
}

// DaySchedule lists the slot boundaries of one day, as "HH:MM" values
type DaySchedule struct {
	Date        time.Time `json:"date"`
	MorningSlot []string  `json:"morningSlot"`
	EveningSlot []string  `json:"eveningSlot"`
}

// SlotInterval returns the booking length in minutes
func (d *DoctorSlot) SlotInterval() int {
	if d.TimeSlotInterval <= 0 {
		return DefaultSlotInterval
	}
	return d.TimeSlotInterval
}

// RangeFor returns the first range containing day. ToDate counts up to the end of its day.
func (d *DoctorSlot) RangeFor(day time.Time) (*ScheduleRange, bool) {
	for i := range d.Schedule {
		r := &d.Schedule[i]
		if !day.Before(utils.StartOfDay(r.FromDate)) && !day.After(utils.EndOfDay(r.ToDate)) {
			return r, true
		}
	}
	return nil, false
}

// DayFor returns the entry whose normalized date equals day
func (r *ScheduleRange) DayFor(day time.Time) (*DaySchedule, bool) {
	for i := range r.EachSchedule {
		if utils.StartOfDay(r.EachSchedule[i].Date).Equal(day) {
			return &r.EachSchedule[i], true
		}
	}
	return nil, false
}

// Boundaries returns the morning boundaries followed by the evening ones
func (d *DaySchedule) Boundaries() []string {
	out := make([]string, 0, len(d.MorningSlot)+len(d.EveningSlot))
	out = append(out, d.MorningSlot...)
	return append(out, d.EveningSlot...)
}
