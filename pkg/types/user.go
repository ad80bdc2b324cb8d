package types

import "time"

// UserRole represents the different account roles in the clinic
type UserRole string

const (
	RolePatient    UserRole = "patient"
	RoleDoctor     UserRole = "doctor"
	RolePharmacist UserRole = "pharmacist"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// Account represents a clinic user. Role and approval are only mutable by an admin.
type Account struct {
	ID             string     `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Role           UserRole   `json:"role" db:"role"`
	IsApproved     bool       `json:"isApproved" db:"is_approved"`
	FirstName      string     `json:"firstName" db:"first_name"`
	LastName       string     `json:"lastName" db:"last_name"`
	Phone          string     `json:"phone" db:"phone"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Gender         string     `json:"gender" db:"gender"`
	Address        string     `json:"address" db:"address"`
	Specialization string     `json:"specialization" db:"specialization"`
	LicenseNumber  string     `json:"licenseNumber" db:"license_number"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName returns the display name of the account
func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// UserClaims represents the identity carried by a bearer token
type UserClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// RegistrationRequest represents account registration data
type RegistrationRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	Role           UserRole   `json:"role"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Gender         string     `json:"gender"`
	Address        string     `json:"address"`
	Specialization string     `json:"specialization"`
	LicenseNumber  string     `json:"licenseNumber"`
}

// Credentials represents login credentials
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthToken represents the login response
type AuthToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresIn int64     `json:"expiresIn"`
	IssuedAt  time.Time `json:"issuedAt"`
	User      *Account  `json:"user"`
}

// AccountUpdates carries explicitly provided profile fields. A nil field is left
// untouched; a non-nil empty value clears the stored value.
type AccountUpdates struct {
	Email          *string    `json:"email,omitempty"`
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	Address        *string    `json:"address,omitempty"`
	Specialization *string    `json:"specialization,omitempty"`
	LicenseNumber  *string    `json:"licenseNumber,omitempty"`
	Role           *UserRole  `json:"role,omitempty"`
	IsApproved     *bool      `json:"isApproved,omitempty"`
}

// Empty reports whether no field was provided
func (u *AccountUpdates) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil && u.Phone == nil &&
		u.DateOfBirth == nil && u.Gender == nil && u.Address == nil &&
		u.Specialization == nil && u.LicenseNumber == nil && u.Role == nil && u.IsApproved == nil
}

// AccountFilters narrows account listings
type AccountFilters struct {
	Role       UserRole `json:"role,omitempty"`
	IsApproved *bool    `json:"isApproved,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}
