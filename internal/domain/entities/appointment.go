package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusBooked, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status holds its slot
func (s AppointmentStatus) Occupies() bool {
	return s == AppointmentStatusBooked || s == AppointmentStatusCompleted
}

// Appointment represents a booked consultation slot.
// Date is the UTC midnight of the calendar day; StartTime and EndTime are "HH:MM".
type Appointment struct {
	AppointmentID    int64             `json:"appointmentID" db:"appointment_id"`
	DoctorID         int64             `json:"doctorID" db:"doctor_id"`
	PatientID        int64             `json:"patientID" db:"patient_id"`
	Date             time.Time         `json:"date" db:"date"`
	StartTime        string            `json:"startTime" db:"start_time"`
	EndTime          string            `json:"endTime" db:"end_time"`
	Status           AppointmentStatus `json:"status" db:"status"`
	Mobile           string            `json:"mobile,omitempty" db:"mobile"`
	Email            string            `json:"email,omitempty" db:"email"`
	IsWhatsAppNumber bool              `json:"isWhatsAppNumber" db:"is_whatsapp_number"`
	TermsAccepted    bool              `json:"termsAccepted" db:"terms_accepted"`
	MarketingConsent bool              `json:"marketingConsent" db:"marketing_consent"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
}

// AppointmentPatch carries the fields of a partial update. Nil means untouched.
type AppointmentPatch struct {
	DoctorID         *int64             `json:"doctorID,omitempty"`
	PatientID        *int64             `json:"patientID,omitempty"`
	Date             *time.Time         `json:"date,omitempty"`
	StartTime        *string            `json:"startTime,omitempty"`
	EndTime          *string            `json:"endTime,omitempty"`
	Status           *AppointmentStatus `json:"status,omitempty"`
	Mobile           *string            `json:"mobile,omitempty"`
	Email            *string            `json:"email,omitempty"`
	IsWhatsAppNumber *bool              `json:"isWhatsAppNumber,omitempty"`
	TermsAccepted    *bool              `json:"termsAccepted,omitempty"`
	MarketingConsent *bool              `json:"marketingConsent,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p AppointmentPatch) IsEmpty() bool {
	return p == AppointmentPatch{}
}

// PatientContact is the joined contact block of a listed appointment
type PatientContact struct {
	Email       *string `json:"email"`
	Mobile      *string `json:"mobile"`
	CountryCode *string `json:"countryCode"`
	FullMobile  *string `json:"fullMobile"`
}

// AppointmentView is an appointment enriched with doctor and patient data.
// Names are nil when the referenced record does not exist.
type AppointmentView struct {
	Appointment
	DoctorName     *string        `json:"doctorName"`
	PatientName    *string        `json:"patientName"`
	PatientContact PatientContact `json:"patientContact"`
}

// TimeSlot is a free [StartTime, EndTime) interval
type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Key identifies the interval as "start-end"
func (s TimeSlot) Key() string {
	return s.StartTime + "-" + s.EndTime
}
