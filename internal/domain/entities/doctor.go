package entities

import (
	"time"
)

// Doctor represents a practitioner that patients can book
type Doctor struct {
	DoctorID       int64     `json:"doctorID" db:"doctor_id"`
	FullName       string    `json:"fullName" db:"full_name"`
	Specialization string    `json:"specialization,omitempty" db:"specialization"`
	Email          string    `json:"email,omitempty" db:"email"`
	Mobile         string    `json:"mobile,omitempty" db:"mobile"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
