package model

import "time"

// PatientStatus is the position of a patient in the staff queue.
type PatientStatus string

const (
	PatientWaiting  PatientStatus = "waiting"
	PatientCalled   PatientStatus = "called"
	PatientAttended PatientStatus = "attended"
)

// Patient is an entry in the staff queue.
type Patient struct {
	ID        int64         `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"size:256;not null" json:"name"`
	Status    PatientStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt time.Time     `gorm:"not null" json:"createdAt"`
	CalledAt  *time.Time    `json:"calledAt,omitempty"`
}
