package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

const (
	adminID      = "0b7f5c52-8f37-4a8e-9c43-3f1e3c2b0a01"
	otherAdminID = "0b7f5c52-8f37-4a8e-9c43-3f1e3c2b0a02"
	doctorID     = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e01"
	otherDocID   = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e02"
	patientID    = "2d3e4f5a-6b7c-4d8e-9fa0-1b2c3d4e5f01"
	otherPatID   = "2d3e4f5a-6b7c-4d8e-9fa0-1b2c3d4e5f02"
	pharmacistID = "3e4f5a6b-7c8d-4e9f-a0b1-2c3d4e5f6a01"
)

var (
	admin      = rbac.Caller{ID: adminID, Role: types.RoleAdmin}
	doctor     = rbac.Caller{ID: doctorID, Role: types.RoleDoctor}
	otherDoc   = rbac.Caller{ID: otherDocID, Role: types.RoleDoctor}
	patient    = rbac.Caller{ID: patientID, Role: types.RolePatient}
	otherPat   = rbac.Caller{ID: otherPatID, Role: types.RolePatient}
	pharmacist = rbac.Caller{ID: pharmacistID, Role: types.RolePharmacist}
)

func setupEngine() *Engine {
	return NewEngine(logger.NewNop(), monitoring.NewMetricsCollector("rbac-test"))
}

func appointment() rbac.Resource {
	return rbac.AppointmentResource(&types.Appointment{
		ID:        "4f5a6b7c-8d9e-4fa0-b1c2-3d4e5f6a7b01",
		DoctorID:  doctorID,
		PatientID: patientID,
	})
}

func decide(e *Engine, caller rbac.Caller, res rbac.Resource, action rbac.Action, target string) *rbac.AccessDecision {
	return e.Decide(context.Background(), &rbac.AccessRequest{
		Caller:       caller,
		Resource:     res,
		Action:       action,
		TargetStatus: target,
	})
}

func TestEngine_AuthorizationMatrix(t *testing.T) {
	engine := setupEngine()

	t.Run("patient fetching another patient's appointment is denied", func(t *testing.T) {
		err := engine.Authorize(context.Background(), &rbac.AccessRequest{
			Caller: otherPat, Resource: appointment(), Action: rbac.ActionRead,
		})
		require.Error(t, err)
		assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))
		assert.Contains(t, err.Error(), rbac.ReasonNotAuthorized)
	})

	t.Run("doctor confirms own appointment", func(t *testing.T) {
		d := decide(engine, doctor, appointment(), rbac.ActionUpdateStatus, string(types.StatusConfirmed))
		assert.True(t, d.Allowed)
		assert.Equal(t, rbac.RuleOwnerDoctor, d.Rule)
	})

	t.Run("patient cannot confirm own appointment", func(t *testing.T) {
		d := decide(engine, patient, appointment(), rbac.ActionUpdateStatus, string(types.StatusConfirmed))
		assert.False(t, d.Allowed)
		assert.Equal(t, rbac.RuleSubject, d.Rule)
	})

	t.Run("patient may cancel own appointment", func(t *testing.T) {
		d := decide(engine, patient, appointment(), rbac.ActionUpdateStatus, string(types.StatusCancelled))
		assert.True(t, d.Allowed)
	})

	t.Run("admin cannot delete own account", func(t *testing.T) {
		self := rbac.AccountResource(&types.Account{ID: adminID, Role: types.RoleAdmin})
		d := decide(engine, admin, self, rbac.ActionDelete, "")
		assert.False(t, d.Allowed)
		assert.Equal(t, rbac.RuleAdmin, d.Rule)
	})

	t.Run("admin deletes another account", func(t *testing.T) {
		other := rbac.AccountResource(&types.Account{ID: otherAdminID, Role: types.RoleAdmin})
		assert.True(t, decide(engine, admin, other, rbac.ActionDelete, "").Allowed)
	})
}

func TestEngine_OwnerDoctor(t *testing.T) {
	engine := setupEngine()
	record := rbac.MedicalRecordResource(&types.MedicalRecord{ID: "5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c01", DoctorID: doctorID, PatientID: patientID})

	tests := []struct {
		name    string
		caller  rbac.Caller
		action  rbac.Action
		allowed bool
	}{
		{"owner reads", doctor, rbac.ActionRead, true},
		{"owner updates", doctor, rbac.ActionUpdate, true},
		{"owner cannot delete", doctor, rbac.ActionDelete, false},
		{"other doctor cannot read", otherDoc, rbac.ActionRead, false},
		{"other doctor cannot update same patient", otherDoc, rbac.ActionUpdate, false},
		{"subject reads", patient, rbac.ActionRead, true},
		{"subject cannot update", patient, rbac.ActionUpdate, false},
		{"pharmacist cannot read records", pharmacist, rbac.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, decide(engine, tt.caller, record, tt.action, "").Allowed)
		})
	}
}

func TestEngine_Pharmacist(t *testing.T) {
	engine := setupEngine()
	rx := rbac.PrescriptionResource(&types.Prescription{ID: "6b7c8d9e-0f1a-4b2c-9d3e-4f5a6b7c8d01", DoctorID: doctorID, PatientID: patientID})
	item := rbac.InventoryResource("7c8d9e0f-1a2b-4c3d-8e4f-5a6b7c8d9e01")

	assert.True(t, decide(engine, pharmacist, rx, rbac.ActionRead, "").Allowed)
	assert.True(t, decide(engine, pharmacist, rx, rbac.ActionList, "").Allowed)
	assert.True(t, decide(engine, pharmacist, item, rbac.ActionRead, "").Allowed)
	assert.False(t, decide(engine, pharmacist, item, rbac.ActionUpdate, "").Allowed)
	assert.False(t, decide(engine, pharmacist, rx, rbac.ActionUpdate, "").Allowed)
	assert.False(t, decide(engine, pharmacist, appointment(), rbac.ActionRead, "").Allowed)
}

func TestEngine_AccountsAndDefault(t *testing.T) {
	engine := setupEngine()
	doctorAccount := rbac.AccountResource(&types.Account{ID: doctorID, Role: types.RoleDoctor})
	patientAccount := rbac.AccountResource(&types.Account{ID: patientID, Role: types.RolePatient})

	assert.True(t, decide(engine, patient, patientAccount, rbac.ActionUpdate, "").Allowed, "own profile")
	assert.False(t, decide(engine, patient, patientAccount, rbac.ActionDelete, "").Allowed, "own deletion")
	assert.True(t, decide(engine, patient, doctorAccount, rbac.ActionRead, "").Allowed, "doctor directory")
	assert.True(t, decide(engine, otherDoc, patientAccount, rbac.ActionRead, "").Allowed, "doctor reads patient")
	assert.False(t, decide(engine, otherPat, patientAccount, rbac.ActionRead, "").Allowed, "patient reads patient")
	assert.False(t, decide(engine, pharmacist, patientAccount, rbac.ActionRead, "").Allowed)

	d := decide(engine, patient, rbac.InventoryResource(""), rbac.ActionList, "")
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.RuleDefault, d.Rule)
	assert.Equal(t, rbac.ReasonNotAuthorized, d.Reason)
}

func TestFilter_KeepsVisibleRecords(t *testing.T) {
	engine := setupEngine()
	apts := []*types.Appointment{
		{ID: "a1", DoctorID: doctorID, PatientID: patientID},
		{ID: "a2", DoctorID: otherDocID, PatientID: otherPatID},
		{ID: "a3", DoctorID: otherDocID, PatientID: patientID},
	}

	visible := rbac.Filter(context.Background(), engine, patient, apts, rbac.AppointmentResource)
	require.Len(t, visible, 2)
	assert.Equal(t, "a1", visible[0].ID)
	assert.Equal(t, "a3", visible[1].ID)

	none := rbac.Filter(context.Background(), engine, pharmacist, apts, rbac.AppointmentResource)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
