// Package clinicapi is the REST client for the clinic management API. It
// covers exactly the endpoints the console consumes and classifies failures
// into the console's error taxonomy: a 404 becomes ErrNotFound (the target
// no longer exists server-side), everything else non-2xx becomes a
// RemoteError the mutation layer treats as recoverable.
package clinicapi

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a row of the patients list view.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Pagination is the server's paging envelope for list endpoints.
type Pagination struct {
	TotalPages int `json:"totalPages"`
}

// PatientPage is one page of the patients list.
type PatientPage struct {
	Patients   []Patient  `json:"patients"`
	Pagination Pagination `json:"pagination"`
}

// Staff is a clinic staff member; the calendar's doctor filter is built from
// staff with role "doctor".
type Staff struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
	Status string    `json:"status"`
}

// Appointment is a calendar event. The server owns it; the console holds a
// read cache plus at most one optimistic overlay per id while a mutation is
// in flight.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Status    string    `json:"status"`
}

// AppointmentDraft carries the fields for creating an appointment. The
// server assigns the id.
type AppointmentDraft struct {
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Status    string    `json:"status,omitempty"`
}

// AppointmentPatch is a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	Title    *string    `json:"title,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
	Status   *string    `json:"status,omitempty"`
}
