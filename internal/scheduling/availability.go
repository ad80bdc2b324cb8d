package scheduling

import (
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/types"
)

// slotCatalog is the fixed daily sequence of bookable slots, in opening-hour order
var slotCatalog = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

// SlotCatalog returns a copy of the daily slot labels
func SlotCatalog() []string {
	return append([]string(nil), slotCatalog...)
}

// ValidSlot reports whether label is one of the catalog slots
func ValidSlot(label string) bool {
	for _, slot := range slotCatalog {
		if slot == label {
			return true
		}
	}
	return false
}

// AvailableSlots returns the catalog slots not present in booked, in catalog order.
// The result is never nil.
func AvailableSlots(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, label := range booked {
		taken[label] = struct{}{}
	}

	free := make([]string, 0, len(slotCatalog))
	for _, slot := range slotCatalog {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free
}

// NormalizeDate parses a YYYY-MM-DD or RFC 3339 value and returns midnight UTC of
// the calendar date as written. The offset of an RFC 3339 value does not shift the day.
func NormalizeDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, types.NewValidationError(types.ErrCodeInvalidInput, "date is required", map[string]interface{}{"field": "date"})
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, types.NewValidationError(types.ErrCodeInvalidInput,
				"date must be YYYY-MM-DD or RFC 3339", map[string]interface{}{"field": "date", "value": raw})
		}
	}

	return MidnightUTC(t), nil
}

// MidnightUTC truncates t to the start of its calendar day, as written, in UTC
func MidnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
