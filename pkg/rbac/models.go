package rbac

import (
	"time"

	"github.com/medrex/clinic-api/pkg/types"
)

// Caller is the authenticated identity making a request
type Caller struct {
	ID    string         `json:"id"`
	Email string         `json:"email"`
	Role  types.UserRole `json:"role"`
}

// Is reports whether the caller has the given role
func (c Caller) Is(role types.UserRole) bool {
	return c.Role == role
}

// Resource describes the record an action targets. OwnerID is the doctor reference and
// SubjectID the patient reference of clinical records; for accounts SubjectID is the
// account itself and OwnerRole its role.
type Resource struct {
	Kind      ResourceKind   `json:"kind"`
	ID        string         `json:"id,omitempty"`
	OwnerID   string         `json:"owner_id,omitempty"`
	SubjectID string         `json:"subject_id,omitempty"`
	OwnerRole types.UserRole `json:"owner_role,omitempty"`
}

// AccessRequest represents a request for an access control decision
type AccessRequest struct {
	Caller   Caller   `json:"caller"`
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	// TargetStatus is the requested status for ActionUpdateStatus
	TargetStatus string    `json:"target_status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// AccessDecision represents the result of an access control decision
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule"`
	Reason  string `json:"reason"`
}

// AppointmentResource builds the policy view of an appointment
func AppointmentResource(apt *types.Appointment) Resource {
	return Resource{Kind: ResourceAppointment, ID: apt.ID, OwnerID: apt.DoctorID, SubjectID: apt.PatientID}
}

// PrescriptionResource builds the policy view of a prescription
func PrescriptionResource(p *types.Prescription) Resource {
	return Resource{Kind: ResourcePrescription, ID: p.ID, OwnerID: p.DoctorID, SubjectID: p.PatientID}
}

// MedicalRecordResource builds the policy view of a medical record
func MedicalRecordResource(rec *types.MedicalRecord) Resource {
	return Resource{Kind: ResourceMedicalRecord, ID: rec.ID, OwnerID: rec.DoctorID, SubjectID: rec.PatientID}
}

// AccountResource builds the policy view of an account
func AccountResource(acc *types.Account) Resource {
	return Resource{Kind: ResourceAccount, ID: acc.ID, SubjectID: acc.ID, OwnerRole: acc.Role}
}

// InventoryResource builds the policy view of an inventory item; id may be empty for collections
func InventoryResource(id string) Resource {
	return Resource{Kind: ResourceInventory, ID: id}
}
