package types

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh record identifier
func NewID() string {
	return uuid.New().String()
}

// ValidateID checks that id has the shape of a record identifier. It never touches
// the store, so a malformed id is reported before any lookup.
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError(ErrCodeInvalidID, field+" is required", map[string]interface{}{"field": field})
	}
	if _, err := uuid.Parse(id); err != nil {
		return NewValidationError(ErrCodeInvalidID, "invalid "+field, map[string]interface{}{"field": field, "value": id})
	}
	return nil
}
