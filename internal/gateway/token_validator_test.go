package gateway

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medrex/clinic-api/pkg/types"
)

const (
	testSecret    = "test-secret"
	testIssuer    = "clinic-api"
	testAccountID = "2d3e4f5a-6b7c-4d8e-9fa0-1b2c3d4e5f01"
)

func testAccount() *types.Account {
	return &types.Account{ID: testAccountID, Email: "pat@example.com", Role: types.RolePatient, IsApproved: true}
}

func TestTokenValidator_IssueAndValidate(t *testing.T) {
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)

	token, err := validator.IssueToken(testAccount())
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	if token.TokenType != "Bearer" {
		t.Errorf("Expected token type Bearer, got %s", token.TokenType)
	}
	if token.ExpiresIn != 3600 {
		t.Errorf("Expected expiresIn 3600, got %d", token.ExpiresIn)
	}
	if token.User == nil || token.User.ID != testAccountID {
		t.Error("Expected the account to be returned with the token")
	}

	caller, err := validator.ValidateToken(token.Token)
	if err != nil {
		t.Fatalf("Failed to validate issued token: %v", err)
	}

	if caller.ID != testAccountID {
		t.Errorf("Expected caller %s, got %s", testAccountID, caller.ID)
	}
	if caller.Role != types.RolePatient {
		t.Errorf("Expected role patient, got %s", caller.Role)
	}
	if caller.Email != "pat@example.com" {
		t.Errorf("Expected email claim, got %s", caller.Email)
	}
}

func TestTokenValidator_ExpiredToken(t *testing.T) {
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)
	issuedAt := time.Now().Add(-2 * time.Hour)
	validator.now = func() time.Time { return issuedAt }

	token, err := validator.IssueToken(testAccount())
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	validator.now = time.Now
	if _, err := validator.ValidateToken(token.Token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestTokenValidator_WrongSecret(t *testing.T) {
	issuer := NewTokenValidator("other-secret", time.Hour, testIssuer)
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)

	token, err := issuer.IssueToken(testAccount())
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	if _, err := validator.ValidateToken(token.Token); err == nil {
		t.Error("Expected token signed with a different secret to be rejected")
	}
}

func TestTokenValidator_RejectsOtherAlgorithms(t *testing.T) {
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)

	claims := &JWTClaims{
		Role: string(types.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    testIssuer,
			Subject:   testAccountID,
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}
	if _, err := validator.ValidateToken(unsigned); err == nil {
		t.Error("Expected alg=none token to be rejected")
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}
	if _, err := validator.ValidateToken(hs512); err == nil {
		t.Error("Expected HS512 token to be rejected")
	}
}

func TestTokenValidator_RejectsUnknownRoleAndIssuer(t *testing.T) {
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)

	sign := func(role, issuer string) string {
		claims := &JWTClaims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				Issuer:    issuer,
				Subject:   testAccountID,
			},
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("Failed to create test token: %v", err)
		}
		return s
	}

	if _, err := validator.ValidateToken(sign("superuser", testIssuer)); err == nil {
		t.Error("Expected unknown role to be rejected")
	}
	if _, err := validator.ValidateToken(sign(string(types.RoleDoctor), "someone-else")); err == nil {
		t.Error("Expected foreign issuer to be rejected")
	}
	if _, err := validator.ValidateToken(sign(string(types.RoleDoctor), testIssuer)); err != nil {
		t.Errorf("Expected doctor token to validate, got %v", err)
	}
}

func TestTokenValidator_Garbage(t *testing.T) {
	validator := NewTokenValidator(testSecret, time.Hour, testIssuer)

	_, err := validator.ValidateToken("not-a-token")
	if err == nil || !strings.Contains(err.Error(), "failed to parse token") {
		t.Errorf("Expected parse failure, got %v", err)
	}
}
