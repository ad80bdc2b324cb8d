package rbac

import "github.com/medrex/clinic-api/pkg/types"

// ResourceKind identifies the collection a resource belongs to
type ResourceKind string

// Resource types in the system
const (
	ResourceAccount       ResourceKind = "account"
	ResourceAppointment   ResourceKind = "appointment"
	ResourcePrescription  ResourceKind = "prescription"
	ResourceMedicalRecord ResourceKind = "medical_record"
	ResourceInventory     ResourceKind = "inventory_item"
	ResourceReport        ResourceKind = "report"
)

// Clinical reports whether records of this kind carry a doctor owner and patient subject
func (k ResourceKind) Clinical() bool {
	switch k {
	case ResourceAppointment, ResourcePrescription, ResourceMedicalRecord:
		return true
	}
	return false
}

// Action types
type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionList         Action = "list"
	ActionUpdate       Action = "update"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
	ActionApprove      Action = "approve"
)

// ReadOnly reports whether the action never mutates
func (a Action) ReadOnly() bool {
	return a == ActionRead || a == ActionList
}

// Rule names reported on every decision
const (
	RuleAdmin       = "admin"
	RuleSelfAccount = "self_account"
	RuleOwnerDoctor = "owner_doctor"
	RuleSubject     = "subject_patient"
	RulePharmacist  = "pharmacist"
	RuleDirectory   = "directory"
	RuleDefault     = "default"
)

// ReasonNotAuthorized is the reason surfaced by the default rule
const ReasonNotAuthorized = "not authorized"

// Role aliases kept here so policy code reads naturally
const (
	RolePatient    = types.RolePatient
	RoleDoctor     = types.RoleDoctor
	RolePharmacist = types.RolePharmacist
	RoleAdmin      = types.RoleAdmin
)
