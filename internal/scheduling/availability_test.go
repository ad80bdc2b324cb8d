package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-api/pkg/types"
)

func TestAvailableSlots(t *testing.T) {
	tests := []struct {
		name     string
		booked   []string
		expected []string
	}{
		{
			name:     "no bookings returns full catalog",
			booked:   nil,
			expected: slotCatalog,
		},
		{
			name:     "booked labels are removed in catalog order",
			booked:   []string{"02:00 PM", "09:00 AM", "02:00 PM"},
			expected: []string{"10:00 AM", "11:00 AM", "12:00 PM", "01:00 PM", "03:00 PM", "04:00 PM"},
		},
		{
			name:     "labels outside the catalog are ignored",
			booked:   []string{"05:00 PM", "9:00 AM"},
			expected: slotCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AvailableSlots(tt.booked))
		})
	}
}

func TestAvailableSlots_FullyBookedIsEmptyNotNil(t *testing.T) {
	free := AvailableSlots(SlotCatalog())

	require.NotNil(t, free)
	assert.Empty(t, free)
}

func TestAvailableSlots_SubsetInOrderWithoutDuplicates(t *testing.T) {
	// Every subset of the catalog, selected by bitmask
	for mask := 0; mask < 1<<len(slotCatalog); mask++ {
		var booked []string
		for i, slot := range slotCatalog {
			if mask&(1<<i) != 0 {
				booked = append(booked, slot)
			}
		}

		free := AvailableSlots(booked)
		assert.Len(t, free, len(slotCatalog)-len(booked))

		last := -1
		for _, slot := range free {
			idx := indexOf(slotCatalog, slot)
			require.GreaterOrEqual(t, idx, 0, "slot %q outside catalog", slot)
			require.Greater(t, idx, last, "slots out of order or duplicated")
			last = idx
			assert.NotContains(t, booked, slot)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	want := time.Date(2031, time.March, 10, 0, 0, 0, 0, time.UTC)

	inputs := []string{
		"2031-03-10",
		"2031-03-10T00:00:00Z",
		"2031-03-10T23:30:00-05:00",
		"2031-03-10T00:30:00+09:00",
		" 2031-03-10 ",
	}

	for _, in := range inputs {
		got, err := NormalizeDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s normalized to %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "10/03/2031", "2031-13-01", "tomorrow"} {
		_, err := NormalizeDate(in)
		assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err), in)
	}
}

func TestValidSlot(t *testing.T) {
	assert.True(t, ValidSlot("09:00 AM"))
	assert.True(t, ValidSlot("04:00 PM"))
	assert.False(t, ValidSlot("9:00 AM"))
	assert.False(t, ValidSlot("05:00 PM"))
	assert.False(t, ValidSlot(""))
}

func indexOf(list []string, value string) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}
