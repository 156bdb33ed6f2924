package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestService_PriceLabel(t *testing.T) {
	tests := []struct {
		name    string
		service Service
		want    string
	}{
		{"range", Service{PriceMin: ptr(80), PriceMax: ptr(150)}, "RM 80 - 150"},
		{"equal bounds", Service{PriceMin: ptr(80), PriceMax: ptr(80)}, "RM 80"},
		{"single price", Service{Price: ptr(45.5)}, "RM 45.50"},
		{"max only", Service{PriceMax: ptr(200)}, "RM 200"},
		{"none", Service{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.service.PriceLabel("RM"))
		})
	}
	assert.Equal(t, "80", Service{Price: ptr(80)}.PriceLabel(""))
}

func TestService_OfferedAt(t *testing.T) {
	everywhere := Service{ID: 1}
	assert.True(t, everywhere.OfferedAt(9))

	scoped := Service{ID: 2, Branches: []BranchPrice{{BranchID: 1}, {BranchID: 3}}}
	assert.True(t, scoped.OfferedAt(3))
	assert.False(t, scoped.OfferedAt(2))
}

func TestOperatingHours_ForDay(t *testing.T) {
	h := OperatingHours{
		Monday: &DayHours{IsOpen: true, Open: "09:00", Close: "18:00"},
		Sunday: &DayHours{IsOpen: false},
	}
	assert.True(t, h.HasAnyHours())
	assert.Equal(t, "09:00", h.ForDay(time.Monday).Open)
	assert.False(t, h.ForDay(time.Sunday).IsOpen)
	assert.Nil(t, h.ForDay(time.Friday))
	assert.False(t, OperatingHours{}.HasAnyHours())
}

func TestFieldErrors_Unmarshal(t *testing.T) {
	var fe FieldErrors
	require.NoError(t, json.Unmarshal([]byte(`{"a":["one","two"],"b":"three"}`), &fe))
	assert.Equal(t, []string{"one", "two"}, fe["a"])
	assert.Equal(t, "three", fe.First("b"))
	assert.Equal(t, "", fe.First("missing"))

	require.NoError(t, json.Unmarshal([]byte(`null`), &fe))
	assert.Nil(t, fe)

	assert.Error(t, json.Unmarshal([]byte(`{"a":42}`), &fe))
}

func TestValidTimeAndDate(t *testing.T) {
	assert.True(t, ValidTime("09:30"))
	assert.True(t, ValidTime("23:59"))
	assert.False(t, ValidTime("9:30"))
	assert.False(t, ValidTime("24:00"))
	assert.False(t, ValidTime("09:30:00"))

	assert.True(t, ValidDate("2026-02-28"))
	assert.False(t, ValidDate("2026-02-30"))
	assert.False(t, ValidDate("02/03/2026"))
}
