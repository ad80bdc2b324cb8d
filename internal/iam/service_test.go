package iam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	internalrbac "github.com/medrex/clinic-api/internal/rbac"
	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *types.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*types.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*types.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, id string, updates *types.AccountUpdates) (*types.Account, error) {
	args := m.Called(ctx, id, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context, filters *types.AccountFilters) ([]*types.Account, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Account), args.Error(1)
}

// MockTokenIssuer is a mock implementation of TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(account *types.Account) (*types.AuthToken, error) {
	args := m.Called(account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthToken), args.Error(1)
}

const (
	testAdminID   = "0b7f5c52-8f37-4a8e-9c43-3f1e3c2b0a01"
	testAdmin2ID  = "0b7f5c52-8f37-4a8e-9c43-3f1e3c2b0a02"
	testDoctorID  = "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e01"
	testPatientID = "2d3e4f5a-6b7c-4d8e-9fa0-1b2c3d4e5f01"
	testOtherPat  = "2d3e4f5a-6b7c-4d8e-9fa0-1b2c3d4e5f02"
)

var (
	adminCaller   = rbac.Caller{ID: testAdminID, Role: types.RoleAdmin}
	doctorCaller  = rbac.Caller{ID: testDoctorID, Role: types.RoleDoctor}
	patientCaller = rbac.Caller{ID: testPatientID, Role: types.RolePatient}
)

func setupTestService() (*Service, *MockAccountRepository, *MockTokenIssuer) {
	log := logger.NewNop()
	repo := &MockAccountRepository{}
	tokens := &MockTokenIssuer{}
	engine := internalrbac.NewEngine(log, nil)

	svc := NewService(log, repo, NewPasswordManagerWithCost(bcrypt.MinCost), tokens, engine, nil, api.NewResponder(log, true))
	svc.now = func() time.Time { return time.Date(2030, time.June, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, tokens
}

func appErrorOf(t *testing.T, err error) *types.AppError {
	t.Helper()
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected *types.AppError, got %v", err)
	return appErr
}

func TestRegister_PatientIsApproved(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *types.Account) bool {
		return a.Email == "jane@example.com" && a.Role == types.RolePatient && a.IsApproved &&
			a.PasswordHash != "" && a.PasswordHash != "s3cret-pass"
	})).Return(nil)

	account, err := svc.Register(context.Background(), &types.RegistrationRequest{
		Email:     "  Jane@Example.com ",
		Password:  "s3cret-pass",
		FirstName: "Jane",
	})

	require.NoError(t, err)
	assert.Equal(t, types.RolePatient, account.Role)
	assert.True(t, account.IsApproved)
	repo.AssertExpectations(t)
}

func TestRegister_DoctorStartsPending(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("Create", mock.Anything, mock.AnythingOfType("*types.Account")).Return(nil)

	account, err := svc.Register(context.Background(), &types.RegistrationRequest{
		Email:          "house@example.com",
		Password:       "s3cret-pass",
		Role:           types.RoleDoctor,
		FirstName:      "Gregory",
		Specialization: "Diagnostics",
	})

	require.NoError(t, err)
	assert.False(t, account.IsApproved)
}

func TestRegister_Rejections(t *testing.T) {
	cases := []struct {
		name string
		req  types.RegistrationRequest
	}{
		{"admin role", types.RegistrationRequest{Email: "a@example.com", Password: "s3cret-pass", FirstName: "A", Role: types.RoleAdmin}},
		{"unknown role", types.RegistrationRequest{Email: "a@example.com", Password: "s3cret-pass", FirstName: "A", Role: "nurse"}},
		{"short password", types.RegistrationRequest{Email: "a@example.com", Password: "short", FirstName: "A"}},
		{"bad email", types.RegistrationRequest{Email: "not-an-email", Password: "s3cret-pass", FirstName: "A"}},
		{"missing first name", types.RegistrationRequest{Email: "a@example.com", Password: "s3cret-pass"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := setupTestService()

			_, err := svc.Register(context.Background(), &tc.req)

			assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("Create", mock.Anything, mock.Anything).
		Return(types.NewConflictError(types.ErrCodeDuplicateEmail, "An account with this email already exists", nil))

	_, err := svc.Register(context.Background(), &types.RegistrationRequest{
		Email: "jane@example.com", Password: "s3cret-pass", FirstName: "Jane",
	})

	assert.Equal(t, types.ErrCodeDuplicateEmail, appErrorOf(t, err).Code)
}

func storedAccount(t *testing.T, svc *Service, role types.UserRole, approved bool) *types.Account {
	hash, err := svc.passwords.HashPassword("s3cret-pass")
	require.NoError(t, err)
	return &types.Account{ID: testDoctorID, Email: "house@example.com", PasswordHash: hash, Role: role, IsApproved: approved}
}

func TestLogin_Success(t *testing.T) {
	svc, repo, tokens := setupTestService()
	account := storedAccount(t, svc, types.RoleDoctor, true)

	repo.On("GetByEmail", mock.Anything, "house@example.com").Return(account, nil)
	tokens.On("IssueToken", account).Return(&types.AuthToken{Token: "signed", TokenType: "Bearer", User: account}, nil)

	token, err := svc.Login(context.Background(), &types.Credentials{Email: "HOUSE@example.com", Password: "s3cret-pass"})

	require.NoError(t, err)
	assert.Equal(t, "signed", token.Token)
	tokens.AssertExpectations(t)
}

func TestLogin_PendingApprovalRejected(t *testing.T) {
	svc, repo, tokens := setupTestService()

	repo.On("GetByEmail", mock.Anything, "house@example.com").Return(storedAccount(t, svc, types.RoleDoctor, false), nil)

	_, err := svc.Login(context.Background(), &types.Credentials{Email: "house@example.com", Password: "s3cret-pass"})

	appErr := appErrorOf(t, err)
	assert.Equal(t, types.ErrorTypeAuthentication, appErr.Type)
	assert.Equal(t, types.ErrCodePendingApproval, appErr.Code)
	tokens.AssertNotCalled(t, "IssueToken", mock.Anything)
}

func TestLogin_UnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "account not found"))
	repo.On("GetByEmail", mock.Anything, "house@example.com").Return(storedAccount(t, svc, types.RoleDoctor, true), nil)

	_, unknownErr := svc.Login(context.Background(), &types.Credentials{Email: "nobody@example.com", Password: "s3cret-pass"})
	_, wrongErr := svc.Login(context.Background(), &types.Credentials{Email: "house@example.com", Password: "wrong-pass"})

	unknown, wrong := appErrorOf(t, unknownErr), appErrorOf(t, wrongErr)
	assert.Equal(t, types.ErrorTypeAuthentication, unknown.Type)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Message, wrong.Message)
}

func TestUpdateUser_NonAdminCannotChangeRoleOrApproval(t *testing.T) {
	svc, repo, _ := setupTestService()

	self := &types.Account{ID: testPatientID, Role: types.RolePatient, IsApproved: true}
	repo.On("GetByID", mock.Anything, testPatientID).Return(self, nil)
	repo.On("Update", mock.Anything, testPatientID, mock.MatchedBy(func(u *types.AccountUpdates) bool {
		return u.Role == nil && u.IsApproved == nil && u.Phone != nil && *u.Phone == "555-0100"
	})).Return(self, nil)

	role := types.RoleAdmin
	phone := "555-0100"
	_, err := svc.UpdateMe(context.Background(), patientCaller, &types.AccountUpdates{Role: &role, Phone: &phone})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateUser_OnlyRoleChangeByNonAdminIsEmpty(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByID", mock.Anything, testPatientID).Return(&types.Account{ID: testPatientID, Role: types.RolePatient}, nil)

	role := types.RoleDoctor
	_, err := svc.UpdateMe(context.Background(), patientCaller, &types.AccountUpdates{Role: &role})

	assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUser_OtherAccountForbidden(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByID", mock.Anything, testOtherPat).Return(&types.Account{ID: testOtherPat, Role: types.RolePatient}, nil)

	phone := "555-0100"
	_, err := svc.UpdateUser(context.Background(), patientCaller, testOtherPat, &types.AccountUpdates{Phone: &phone})

	assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))
}

func TestGetUser_ErrorOrder(t *testing.T) {
	svc, repo, _ := setupTestService()

	_, err := svc.GetUser(context.Background(), patientCaller, "not-a-uuid")
	assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))

	repo.On("GetByID", mock.Anything, testOtherPat).
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "account not found")).Once()
	_, err = svc.GetUser(context.Background(), patientCaller, testOtherPat)
	assert.Equal(t, types.ErrorTypeNotFound, types.ErrorTypeOf(err))

	repo.On("GetByID", mock.Anything, testOtherPat).
		Return(&types.Account{ID: testOtherPat, Role: types.RolePatient}, nil).Once()
	_, err = svc.GetUser(context.Background(), patientCaller, testOtherPat)
	assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))
}

func TestGetUser_DoctorSeesPatients(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByID", mock.Anything, testPatientID).Return(&types.Account{ID: testPatientID, Role: types.RolePatient}, nil)

	account, err := svc.GetUser(context.Background(), doctorCaller, testPatientID)

	require.NoError(t, err)
	assert.Equal(t, testPatientID, account.ID)
}

func TestApproveUser(t *testing.T) {
	svc, repo, _ := setupTestService()

	pending := &types.Account{ID: testDoctorID, Role: types.RoleDoctor}
	approved := &types.Account{ID: testDoctorID, Role: types.RoleDoctor, IsApproved: true}
	repo.On("GetByID", mock.Anything, testDoctorID).Return(pending, nil)
	repo.On("Update", mock.Anything, testDoctorID, mock.MatchedBy(func(u *types.AccountUpdates) bool {
		return u.IsApproved != nil && *u.IsApproved
	})).Return(approved, nil)

	account, err := svc.ApproveUser(context.Background(), adminCaller, testDoctorID)
	require.NoError(t, err)
	assert.True(t, account.IsApproved)

	_, err = svc.ApproveUser(context.Background(), doctorCaller, testDoctorID)
	assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))
}

func TestDeleteUser_AdminCannotDeleteSelf(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByID", mock.Anything, testAdminID).Return(&types.Account{ID: testAdminID, Role: types.RoleAdmin}, nil)
	repo.On("GetByID", mock.Anything, testAdmin2ID).Return(&types.Account{ID: testAdmin2ID, Role: types.RoleAdmin}, nil)
	repo.On("Delete", mock.Anything, testAdmin2ID).Return(nil)

	err := svc.DeleteUser(context.Background(), adminCaller, testAdminID)
	assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))

	err = svc.DeleteUser(context.Background(), adminCaller, testAdmin2ID)
	assert.NoError(t, err)

	repo.AssertNotCalled(t, "Delete", mock.Anything, testAdminID)
	repo.AssertCalled(t, "Delete", mock.Anything, testAdmin2ID)
}

func TestUpdateUser_AdminCannotChangeOwnRoleOrApproval(t *testing.T) {
	svc, repo, _ := setupTestService()

	self := &types.Account{ID: testAdminID, Role: types.RoleAdmin, IsApproved: true}
	repo.On("GetByID", mock.Anything, testAdminID).Return(self, nil)
	repo.On("Update", mock.Anything, testAdminID, mock.MatchedBy(func(u *types.AccountUpdates) bool {
		return u.Role == nil && u.IsApproved == nil && u.FirstName != nil
	})).Return(self, nil)

	role := types.RolePatient
	approved := false
	_, err := svc.UpdateMe(context.Background(), adminCaller, &types.AccountUpdates{Role: &role})
	assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))

	name := "Ada"
	_, err = svc.UpdateUser(context.Background(), adminCaller, testAdminID,
		&types.AccountUpdates{Role: &role, IsApproved: &approved, FirstName: &name})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Update", 1)
}

func TestUpdateUser_AdminChangesAnotherAccountsRole(t *testing.T) {
	svc, repo, _ := setupTestService()

	doctor := &types.Account{ID: testDoctorID, Role: types.RoleDoctor}
	repo.On("GetByID", mock.Anything, testDoctorID).Return(doctor, nil)
	repo.On("Update", mock.Anything, testDoctorID, mock.MatchedBy(func(u *types.AccountUpdates) bool {
		return u.Role != nil && *u.Role == types.RolePharmacist
	})).Return(doctor, nil)

	role := types.RolePharmacist
	_, err := svc.UpdateUser(context.Background(), adminCaller, testDoctorID, &types.AccountUpdates{Role: &role})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestListUsers_AdminOnly(t *testing.T) {
	svc, repo, _ := setupTestService()

	_, err := svc.ListUsers(context.Background(), doctorCaller, &types.AccountFilters{})
	assert.Equal(t, types.ErrorTypeAuthorization, types.ErrorTypeOf(err))

	repo.On("List", mock.Anything, mock.MatchedBy(func(f *types.AccountFilters) bool {
		return f.IsApproved != nil && !*f.IsApproved
	})).Return([]*types.Account{{ID: testDoctorID, Role: types.RoleDoctor}}, nil)

	pending, err := svc.ListPending(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestListDoctors_VisibleToPatients(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("List", mock.Anything, mock.MatchedBy(func(f *types.AccountFilters) bool {
		return f.Role == types.RoleDoctor && f.IsApproved != nil && *f.IsApproved
	})).Return([]*types.Account{{ID: testDoctorID, Role: types.RoleDoctor, IsApproved: true}}, nil)

	doctors, err := svc.ListDoctors(context.Background(), patientCaller)

	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, testDoctorID, doctors[0].ID)
}

func withCaller(caller rbac.Caller, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(rbac.WithCaller(r.Context(), caller)))
	})
}

func TestRoutes_LiteralSegmentsBeforeID(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByID", mock.Anything, testPatientID).
		Return(&types.Account{ID: testPatientID, Role: types.RolePatient, FirstName: "Pat"}, nil)

	router := mux.NewRouter()
	svc.RegisterRoutes(router)
	handler := withCaller(patientCaller, router)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testPatientID)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutes_LoginPendingReturns401(t *testing.T) {
	svc, repo, _ := setupTestService()

	repo.On("GetByEmail", mock.Anything, "house@example.com").Return(storedAccount(t, svc, types.RoleDoctor, false), nil)

	router := mux.NewRouter()
	svc.RegisterPublicRoutes(router)

	body := strings.NewReader(`{"email":"house@example.com","password":"s3cret-pass"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account pending approval")
}
