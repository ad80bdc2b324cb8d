package interfaces

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/types"
)

// AppointmentRepository defines the interface for appointment persistence
type AppointmentRepository interface {
	Create(ctx context.Context, apt *types.Appointment) error
	GetByID(ctx context.Context, id string) (*types.Appointment, error)
	Update(ctx context.Context, id string, updates *types.AppointmentUpdates) (*types.Appointment, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error)

	// BookedSlots returns the slot labels held by non-cancelled appointments
	// of the doctor on the given midnight-UTC date.
	BookedSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error)
}

// AppointmentLookup is the read-only slice of AppointmentRepository used by the
// clinical services to check the visit a record is linked to.
type AppointmentLookup interface {
	GetByID(ctx context.Context, id string) (*types.Appointment, error)
}
