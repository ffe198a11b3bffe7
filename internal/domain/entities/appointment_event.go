package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentEventType represents the kind of lifecycle change
type AppointmentEventType string

const (
	AppointmentEventBooked    AppointmentEventType = "appointment.booked"
	AppointmentEventUpdated   AppointmentEventType = "appointment.updated"
	AppointmentEventCancelled AppointmentEventType = "appointment.cancelled"
	AppointmentEventCompleted AppointmentEventType = "appointment.completed"
	AppointmentEventDeleted   AppointmentEventType = "appointment.deleted"
	AppointmentEventSwept     AppointmentEventType = "appointments.swept"
)

// AppointmentEvent is published whenever an appointment changes state
type AppointmentEvent struct {
	ID               string               `json:"id"`
	Type             AppointmentEventType `json:"type"`
	AppointmentID    int64                `json:"appointmentID,omitempty"`
	DoctorID         int64                `json:"doctorID,omitempty"`
	DoctorName       string               `json:"doctorName,omitempty"`
	PatientName      string               `json:"patientName,omitempty"`
	Date             *time.Time           `json:"date,omitempty"`
	StartTime        string               `json:"startTime,omitempty"`
	EndTime          string               `json:"endTime,omitempty"`
	Status           AppointmentStatus    `json:"status,omitempty"`
	Mobile           string               `json:"mobile,omitempty"`
	Email            string               `json:"email,omitempty"`
	IsWhatsAppNumber bool                 `json:"isWhatsAppNumber,omitempty"`
	Count            int                  `json:"count,omitempty"`
	Timestamp        time.Time            `json:"timestamp"`
}

// NewAppointmentEvent builds an event describing appt
func NewAppointmentEvent(eventType AppointmentEventType, appt *Appointment) *AppointmentEvent {
	date := appt.Date
	return &AppointmentEvent{
		ID:               uuid.NewString(),
		Type:             eventType,
		AppointmentID:    appt.AppointmentID,
		DoctorID:         appt.DoctorID,
		Date:             &date,
		StartTime:        appt.StartTime,
		EndTime:          appt.EndTime,
		Status:           appt.Status,
		Mobile:           appt.Mobile,
		Email:            appt.Email,
		IsWhatsAppNumber: appt.IsWhatsAppNumber,
		Timestamp:        time.Now().UTC(),
	}
}

// NewSweepEvent reports a batch of appointments moved to completed
func NewSweepEvent(count int) *AppointmentEvent {
	return &AppointmentEvent{
		ID:        uuid.NewString(),
		Type:      AppointmentEventSwept,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}
