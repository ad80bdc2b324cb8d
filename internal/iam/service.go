package iam

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

const invalidCredentials = "invalid email or password"

// Service implements registration, login and account management
type Service struct {
	logger     *logger.Logger
	repository interfaces.AccountRepository
	passwords  interfaces.PasswordManager
	tokens     interfaces.TokenIssuer
	policy     rbac.PolicyEngine
	metrics    *monitoring.MetricsCollector
	responder  *api.Responder
	now        func() time.Time
}

// NewService creates a new IAM service instance. metrics may be nil.
func NewService(
	log *logger.Logger,
	repository interfaces.AccountRepository,
	passwords interfaces.PasswordManager,
	tokens interfaces.TokenIssuer,
	policy rbac.PolicyEngine,
	metrics *monitoring.MetricsCollector,
	responder *api.Responder,
) *Service {
	return &Service{
		logger:     log,
		repository: repository,
		passwords:  passwords,
		tokens:     tokens,
		policy:     policy,
		metrics:    metrics,
		responder:  responder,
		now:        time.Now,
	}
}

// Register creates an account. Patients are approved immediately; doctors and
// pharmacists wait for an administrator.
func (s *Service) Register(ctx context.Context, req *types.RegistrationRequest) (*types.Account, error) {
	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = types.RolePatient
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
	}

	now := s.now().UTC()
	account := &types.Account{
		ID:             types.NewID(),
		Email:          normalizeEmail(req.Email),
		PasswordHash:   hash,
		Role:           role,
		IsApproved:     role == types.RolePatient,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Address:        req.Address,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repository.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, account.ID, "register", string(rbac.ResourceAccount), true, map[string]interface{}{
		"role":        account.Role,
		"is_approved": account.IsApproved,
	})
	return account, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, creds *types.Credentials) (*types.AuthToken, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "email and password are required", nil)
	}

	email := normalizeEmail(creds.Email)
	account, err := s.repository.GetByEmail(ctx, email)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, s.loginFailed(ctx, "", email, "unknown_email")
		}
		return nil, err
	}

	ok, err := s.passwords.VerifyPassword(account.PasswordHash, creds.Password)
	if err != nil || !ok {
		return nil, s.loginFailed(ctx, account.ID, email, "invalid_password")
	}

	if !account.IsApproved {
		s.recordAuthAttempt("pending")
		s.logger.Security(ctx, "login_pending_approval", account.ID, map[string]interface{}{"role": account.Role})
		return nil, types.NewAuthenticationError(types.ErrCodePendingApproval, "account pending approval")
	}

	token, err := s.tokens.IssueToken(account)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to issue token", err)
	}

	s.recordAuthAttempt("success")
	s.logger.WithContext(ctx).WithField("user_id", account.ID).WithField("role", account.Role).Info("User logged in")
	return token, nil
}

// Me returns the caller's own account
func (s *Service) Me(ctx context.Context, caller rbac.Caller) (*types.Account, error) {
	return s.GetUser(ctx, caller, caller.ID)
}

// ListUsers returns all accounts, optionally narrowed by role. Administrators only.
func (s *Service) ListUsers(ctx context.Context, caller rbac.Caller, filters *types.AccountFilters) ([]*types.Account, error) {
	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.Resource{Kind: rbac.ResourceAccount}, Action: rbac.ActionList,
	}); err != nil {
		return nil, err
	}

	if filters.Role != "" && !filters.Role.Valid() {
		return nil, invalidRole(filters.Role)
	}

	return s.repository.List(ctx, filters)
}

// ListPending returns accounts waiting for approval
func (s *Service) ListPending(ctx context.Context, caller rbac.Caller) ([]*types.Account, error) {
	pending := false
	return s.ListUsers(ctx, caller, &types.AccountFilters{IsApproved: &pending})
}

// ListDoctors returns the approved doctor directory
func (s *Service) ListDoctors(ctx context.Context, caller rbac.Caller) ([]*types.Account, error) {
	approved := true
	doctors, err := s.repository.List(ctx, &types.AccountFilters{Role: types.RoleDoctor, IsApproved: &approved})
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, doctors, rbac.AccountResource), nil
}

// GetUser returns one account visible to the caller
func (s *Service) GetUser(ctx context.Context, caller rbac.Caller, id string) (*types.Account, error) {
	return s.load(ctx, caller, id, rbac.ActionRead)
}

// UpdateUser edits a profile. Role and approval are only honored for administrators
// editing someone else's account.
func (s *Service) UpdateUser(ctx context.Context, caller rbac.Caller, id string, updates *types.AccountUpdates) (*types.Account, error) {
	existing, err := s.load(ctx, caller, id, rbac.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if !caller.Is(types.RoleAdmin) || existing.ID == caller.ID {
		updates.Role = nil
		updates.IsApproved = nil
	}

	if updates.Empty() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	if updates.Email != nil {
		email := normalizeEmail(*updates.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "invalid email address",
				map[string]interface{}{"field": "email"})
		}
		updates.Email = &email
	}
	if updates.Role != nil && !updates.Role.Valid() {
		return nil, invalidRole(*updates.Role)
	}

	updated, err := s.repository.Update(ctx, existing.ID, updates)
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update", string(rbac.ResourceAccount), true, map[string]interface{}{
		"account_id": updated.ID,
	})
	return updated, nil
}

// UpdateMe edits the caller's own profile
func (s *Service) UpdateMe(ctx context.Context, caller rbac.Caller, updates *types.AccountUpdates) (*types.Account, error) {
	return s.UpdateUser(ctx, caller, caller.ID, updates)
}

// ApproveUser lets a pending doctor or pharmacist log in
func (s *Service) ApproveUser(ctx context.Context, caller rbac.Caller, id string) (*types.Account, error) {
	existing, err := s.load(ctx, caller, id, rbac.ActionApprove)
	if err != nil {
		return nil, err
	}

	if existing.IsApproved {
		return existing, nil
	}

	approved := true
	updated, err := s.repository.Update(ctx, existing.ID, &types.AccountUpdates{IsApproved: &approved})
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "approve", string(rbac.ResourceAccount), true, map[string]interface{}{
		"account_id": updated.ID,
		"role":       updated.Role,
	})
	return updated, nil
}

// DeleteUser removes an account and, through the store, its clinical records
func (s *Service) DeleteUser(ctx context.Context, caller rbac.Caller, id string) error {
	existing, err := s.load(ctx, caller, id, rbac.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.logger.Audit(ctx, caller.ID, "delete", string(rbac.ResourceAccount), true, map[string]interface{}{
		"account_id": existing.ID,
		"role":       existing.Role,
	})
	return nil
}

// load validates the id, fetches the account and checks the action, in that order
func (s *Service) load(ctx context.Context, caller rbac.Caller, id string, action rbac.Action) (*types.Account, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}

	account, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.AccountResource(account), Action: action,
	}); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *Service) validateRegistration(req *types.RegistrationRequest) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "a valid email is required",
			map[string]interface{}{"field": "email"})
	}

	if len(req.Password) < MinPasswordLength {
		return types.NewValidationError(types.ErrCodeInvalidInput, "password must be at least 8 characters",
			map[string]interface{}{"field": "password", "min_length": MinPasswordLength})
	}

	if strings.TrimSpace(req.FirstName) == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "first name is required",
			map[string]interface{}{"field": "firstName"})
	}

	if req.Role == types.RoleAdmin {
		return types.NewValidationError(types.ErrCodeInvalidInput, "administrator accounts cannot be self-registered",
			map[string]interface{}{"field": "role"})
	}
	if req.Role != "" && !req.Role.Valid() {
		return invalidRole(req.Role)
	}

	return nil
}

func (s *Service) loginFailed(ctx context.Context, userID, email, reason string) error {
	s.recordAuthAttempt("failure")
	s.logger.Security(ctx, "login_failed", userID, map[string]interface{}{
		"email":  email,
		"reason": reason,
	})
	return types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, invalidCredentials)
}

func (s *Service) recordAuthAttempt(status string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt("password", status)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidRole(role types.UserRole) error {
	return types.NewValidationError(types.ErrCodeInvalidInput, "invalid role",
		map[string]interface{}{"field": "role", "value": role})
}
