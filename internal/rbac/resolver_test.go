package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// MockAccountLookup is a mock implementation of interfaces.AccountLookup
type MockAccountLookup struct {
	mock.Mock
}

func (m *MockAccountLookup) GetByID(ctx context.Context, id string) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func setupResolver() (*Resolver, *MockAccountLookup) {
	accounts := &MockAccountLookup{}
	return NewResolver(accounts, logger.NewNop()), accounts
}

func TestResolver_PatientAlwaysResolvesToSelf(t *testing.T) {
	resolver, accounts := setupResolver()

	paramSets := []map[string]string{
		nil,
		{},
		{PatientIDParam: otherPatID},
		{PatientIDParam: "not-a-uuid"},
		{PatientIDParam: patientID, "id": otherPatID},
	}
	shapes := []rbac.RouteShape{rbac.RouteShapeUnknown, rbac.RouteShapeSelf, rbac.RouteShapeByID}

	for _, params := range paramSets {
		for _, shape := range shapes {
			subject, err := resolver.ResolveSubject(context.Background(), patient, params, shape)
			require.NoError(t, err)
			assert.Equal(t, patientID, subject, "params=%v shape=%s", params, shape)
		}
	}

	accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolver_SelfShapeRejectsNonPatient(t *testing.T) {
	resolver, _ := setupResolver()

	for _, caller := range []rbac.Caller{doctor, admin, pharmacist} {
		_, err := resolver.ResolveSubject(context.Background(), caller, nil, rbac.RouteShapeSelf)
		require.Error(t, err)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeRouteMisconfigured, appErr.Code)
	}
}

func TestResolver_ByID(t *testing.T) {
	t.Run("doctor resolves existing patient", func(t *testing.T) {
		resolver, accounts := setupResolver()
		accounts.On("GetByID", mock.Anything, otherPatID).
			Return(&types.Account{ID: otherPatID, Role: types.RolePatient}, nil)

		subject, err := resolver.ResolveSubject(context.Background(), doctor,
			map[string]string{PatientIDParam: otherPatID}, rbac.RouteShapeByID)

		require.NoError(t, err)
		assert.Equal(t, otherPatID, subject)
		accounts.AssertExpectations(t)
	})

	t.Run("malformed id is a validation error before lookup", func(t *testing.T) {
		resolver, accounts := setupResolver()

		_, err := resolver.ResolveSubject(context.Background(), admin,
			map[string]string{PatientIDParam: "me"}, rbac.RouteShapeByID)

		assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		resolver, accounts := setupResolver()
		accounts.On("GetByID", mock.Anything, otherPatID).
			Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "account not found"))

		_, err := resolver.ResolveSubject(context.Background(), admin,
			map[string]string{PatientIDParam: otherPatID}, rbac.RouteShapeByID)

		assert.Equal(t, types.ErrorTypeNotFound, types.ErrorTypeOf(err))
	})

	t.Run("account that is not a patient is not found", func(t *testing.T) {
		resolver, accounts := setupResolver()
		accounts.On("GetByID", mock.Anything, otherDocID).
			Return(&types.Account{ID: otherDocID, Role: types.RoleDoctor}, nil)

		_, err := resolver.ResolveSubject(context.Background(), doctor,
			map[string]string{PatientIDParam: otherDocID}, rbac.RouteShapeByID)

		assert.Equal(t, types.ErrorTypeNotFound, types.ErrorTypeOf(err))
	})

	t.Run("store failure propagates", func(t *testing.T) {
		resolver, accounts := setupResolver()
		accounts.On("GetByID", mock.Anything, otherPatID).
			Return(nil, types.NewInternalError(types.ErrCodeInternalError, "query failed", errors.New("boom")))

		_, err := resolver.ResolveSubject(context.Background(), doctor,
			map[string]string{PatientIDParam: otherPatID}, rbac.RouteShapeByID)

		assert.Equal(t, types.ErrorTypeInternal, types.ErrorTypeOf(err))
	})
}
