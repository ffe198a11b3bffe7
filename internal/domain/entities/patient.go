package entities

import (
	"time"
)

// Patient represents a clinic patient. Mobile is the lookup key used when booking.
type Patient struct {
	PatientID   int64     `json:"patientID" db:"patient_id"`
	FullName    string    `json:"fullName" db:"full_name"`
	Mobile      string    `json:"mobile" db:"mobile"`
	Email       *string   `json:"email" db:"email"`
	CountryCode *string   `json:"countryCode" db:"country_code"`
	DoctorID    int64     `json:"doctorID" db:"doctor_id"`
	PackageIDs  []int64   `json:"packageIDs" db:"package_ids"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// FullMobile returns the country code joined with the mobile number,
// or the bare mobile when no country code is stored
func (p *Patient) FullMobile() string {
	if p.CountryCode != nil && *p.CountryCode != "" && p.Mobile != "" {
		return *p.CountryCode + p.Mobile
	}
	return p.Mobile
}
