package types

import "time"

// PrescriptionStatus represents prescription status values
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionExpired   PrescriptionStatus = "expired"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Valid reports whether s is a known prescription status
func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionActive, PrescriptionExpired, PrescriptionCancelled:
		return true
	}
	return false
}

// Medication is one entry of a prescription
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription represents medication orders issued by a doctor
type Prescription struct {
	ID              string             `json:"id" db:"id"`
	PatientID       string             `json:"patientId" db:"patient_id"`
	DoctorID        string             `json:"doctorId" db:"doctor_id"`
	AppointmentID   *string            `json:"appointmentId,omitempty" db:"appointment_id"`
	MedicalRecordID *string            `json:"medicalRecordId,omitempty" db:"medical_record_id"`
	Medications     []Medication       `json:"medications" db:"medications"`
	Notes           string             `json:"notes" db:"notes"`
	Status          PrescriptionStatus `json:"status" db:"status"`
	CreatedAt       time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time          `json:"updatedAt" db:"updated_at"`
}

// PrescriptionRequest is the issue payload
type PrescriptionRequest struct {
	PatientID       string       `json:"patientId"`
	AppointmentID   string       `json:"appointmentId,omitempty"`
	MedicalRecordID string       `json:"medicalRecordId,omitempty"`
	Medications     []Medication `json:"medications"`
	Notes           string       `json:"notes"`
}

// PrescriptionUpdates represents explicitly provided prescription fields
type PrescriptionUpdates struct {
	Medications *[]Medication       `json:"medications,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
	Status      *PrescriptionStatus `json:"status,omitempty"`
}

// PrescriptionFilters narrows prescription listings
type PrescriptionFilters struct {
	PatientID string             `json:"patientId,omitempty"`
	DoctorID  string             `json:"doctorId,omitempty"`
	Status    PrescriptionStatus `json:"status,omitempty"`
}

// VitalSigns is a snapshot taken during a visit
type VitalSigns struct {
	BloodPressure    string   `json:"bloodPressure,omitempty"`
	HeartRate        *int     `json:"heartRate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *int     `json:"respiratoryRate,omitempty"`
	OxygenSaturation *int     `json:"oxygenSaturation,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	Height           *float64 `json:"height,omitempty"`
}

// MedicalRecord represents a visit record authored by one doctor
type MedicalRecord struct {
	ID              string     `json:"id" db:"id"`
	PatientID       string     `json:"patientId" db:"patient_id"`
	DoctorID        string     `json:"doctorId" db:"doctor_id"`
	AppointmentID   *string    `json:"appointmentId,omitempty" db:"appointment_id"`
	VitalSigns      VitalSigns `json:"vitalSigns" db:"vital_signs"`
	Diagnosis       string     `json:"diagnosis" db:"diagnosis"`
	Symptoms        []string   `json:"symptoms" db:"symptoms"`
	Treatment       string     `json:"treatment" db:"treatment"`
	Notes           string     `json:"notes" db:"notes"`
	PrescriptionIDs []string   `json:"prescriptionIds" db:"prescription_ids"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// MedicalRecordRequest is the create payload
type MedicalRecordRequest struct {
	PatientID     string     `json:"patientId"`
	AppointmentID string     `json:"appointmentId,omitempty"`
	VitalSigns    VitalSigns `json:"vitalSigns"`
	Diagnosis     string     `json:"diagnosis"`
	Symptoms      []string   `json:"symptoms"`
	Treatment     string     `json:"treatment"`
	Notes         string     `json:"notes"`
}

// MedicalRecordUpdates represents explicitly provided record fields
type MedicalRecordUpdates struct {
	VitalSigns *VitalSigns `json:"vitalSigns,omitempty"`
	Diagnosis  *string     `json:"diagnosis,omitempty"`
	Symptoms   *[]string   `json:"symptoms,omitempty"`
	Treatment  *string     `json:"treatment,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
}

// MedicalRecordFilters narrows medical record listings
type MedicalRecordFilters struct {
	PatientID string `json:"patientId,omitempty"`
	DoctorID  string `json:"doctorId,omitempty"`
}
