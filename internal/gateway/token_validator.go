package gateway

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// TokenValidator signs and validates HS256 bearer tokens
type TokenValidator struct {
	jwtSecret []byte
	ttl       time.Duration
	issuer    string
	now       func() time.Time
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(secret string, ttl time.Duration, issuer string) *TokenValidator {
	return &TokenValidator{
		jwtSecret: []byte(secret),
		ttl:       ttl,
		issuer:    issuer,
		now:       time.Now,
	}
}

// JWTClaims represents JWT token claims. The subject is the account id.
type JWTClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for an authenticated account
func (tv *TokenValidator) IssueToken(account *types.Account) (*types.AuthToken, error) {
	now := tv.now()

	claims := &JWTClaims{
		Role:  string(account.Role),
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tv.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tv.issuer,
			Subject:   account.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tv.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &types.AuthToken{
		Token:     tokenString,
		TokenType: "Bearer",
		ExpiresIn: int64(tv.ttl.Seconds()),
		IssuedAt:  now,
		User:      account,
	}, nil
}

// ValidateToken verifies signature, algorithm, expiry and issuer, and returns the caller
func (tv *TokenValidator) ValidateToken(tokenString string) (rbac.Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tv.now),
		jwt.WithExpirationRequired(),
	}
	if tv.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tv.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tv.jwtSecret, nil
	}, opts...)
	if err != nil {
		return rbac.Caller{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return rbac.Caller{}, fmt.Errorf("invalid token claims")
	}

	role := types.UserRole(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return rbac.Caller{}, fmt.Errorf("token is missing subject or role")
	}

	return rbac.Caller{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}
