package types

import "time"

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Valid reports whether s is a known appointment status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Appointment represents a booked visit. Date is always midnight UTC.
type Appointment struct {
	ID           string            `json:"id" db:"id"`
	PatientID    string            `json:"patientId" db:"patient_id"`
	DoctorID     string            `json:"doctorId" db:"doctor_id"`
	Date         time.Time         `json:"date" db:"appointment_date"`
	TimeSlot     string            `json:"timeSlot" db:"time_slot"`
	Reason       string            `json:"reason" db:"reason"`
	Status       AppointmentStatus `json:"status" db:"status"`
	Diagnosis    string            `json:"diagnosis" db:"diagnosis"`
	Notes        string            `json:"notes" db:"notes"`
	FollowUpDate *time.Time        `json:"followUpDate,omitempty" db:"follow_up_date"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" db:"updated_at"`
}

// AppointmentRequest is the booking payload
type AppointmentRequest struct {
	PatientID string `json:"patientId,omitempty"`
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	TimeSlot  string `json:"timeSlot"`
	Reason    string `json:"reason"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	PatientID string            `json:"patientId,omitempty"`
	DoctorID  string            `json:"doctorId,omitempty"`
	Status    AppointmentStatus `json:"status,omitempty"`
	Date      *time.Time        `json:"date,omitempty"`
	FromDate  *time.Time        `json:"fromDate,omitempty"`
	ToDate    *time.Time        `json:"toDate,omitempty"`
}

// AppointmentUpdates represents explicitly provided appointment fields
type AppointmentUpdates struct {
	Date         *time.Time         `json:"-"`
	TimeSlot     *string            `json:"timeSlot,omitempty"`
	Reason       *string            `json:"reason,omitempty"`
	Status       *AppointmentStatus `json:"status,omitempty"`
	Diagnosis    *string            `json:"diagnosis,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	FollowUpDate *time.Time         `json:"followUpDate,omitempty"`
}

// Empty reports whether no field was provided
func (u *AppointmentUpdates) Empty() bool {
	return u.Date == nil && u.TimeSlot == nil && u.Reason == nil && u.Status == nil &&
		u.Diagnosis == nil && u.Notes == nil && u.FollowUpDate == nil
}

// Availability is the response of the availability calculator
type Availability struct {
	DoctorID       string    `json:"doctorId"`
	Date           time.Time `json:"date"`
	AvailableSlots []string  `json:"availableSlots"`
}
