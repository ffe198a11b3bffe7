package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Layouts used on the wire. Times of day are fixed-width "HH:MM" so that
// lexical comparison matches chronological order.
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"

	minutesPerDay = 24 * 60
)

// ParseDate accepts "2006-01-02" or an RFC3339 timestamp and returns the
// UTC midnight of the resulting calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return StartOfDay(t), nil
}

// StartOfDay truncates t to UTC midnight
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last millisecond of t's UTC day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// CalendarDay returns the midnight-UTC date of t as seen in loc
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ClockTime formats the wall-clock time of t in loc as "HH:MM"
func ClockTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimeOfDayLayout)
}

// IsTimeOfDay reports whether s is a zero-padded "HH:MM" between 00:00 and 23:59
func IsTimeOfDay(s string) bool {
	_, err := minutesOf(s)
	return err == nil
}

// AddMinutes adds minutes to an "HH:MM" time, wrapping past midnight
func AddMinutes(hhmm string, minutes int) (string, error) {
	total, err := minutesOf(hhmm)
	if err != nil {
		return "", err
	}
	total = ((total+minutes)%minutesPerDay + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

func minutesOf(hhmm string) (int, error) {
	if len(hhmm) != 5 || hhmm[2] != ':' || !isDigit(hhmm[0]) || !isDigit(hhmm[1]) || !isDigit(hhmm[3]) || !isDigit(hhmm[4]) {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", hhmm)
	}
	h, err := strconv.Atoi(hhmm[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(hhmm[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return h*60 + m, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
