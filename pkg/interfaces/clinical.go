package interfaces

import (
	"context"

	"github.com/medrex/clinic-api/pkg/types"
)

// PrescriptionRepository defines the interface for prescription persistence
type PrescriptionRepository interface {
	Create(ctx context.Context, rx *types.Prescription) error
	GetByID(ctx context.Context, id string) (*types.Prescription, error)
	Update(ctx context.Context, id string, updates *types.PrescriptionUpdates) (*types.Prescription, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *types.PrescriptionFilters) ([]*types.Prescription, error)
}

// MedicalRecordRepository defines the interface for medical record persistence
type MedicalRecordRepository interface {
	Create(ctx context.Context, record *types.MedicalRecord) error
	GetByID(ctx context.Context, id string) (*types.MedicalRecord, error)
	Update(ctx context.Context, id string, updates *types.MedicalRecordUpdates) (*types.MedicalRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *types.MedicalRecordFilters) ([]*types.MedicalRecord, error)

	// Prescription linking
	GetByAppointment(ctx context.Context, appointmentID string) (*types.MedicalRecord, error)
	GetLatestForPair(ctx context.Context, doctorID, patientID string) (*types.MedicalRecord, error)
	AppendPrescription(ctx context.Context, recordID, prescriptionID string) error
}
