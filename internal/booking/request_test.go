package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Selection)
		field   string
		wantErr error
	}{
		{"everything missing", func(s *Selection) { *s = Selection{} }, FieldBranch, ErrBranchRequired},
		{"service before date", func(s *Selection) { s.ServiceID = 0; s.Date = "" }, FieldService, ErrServiceRequired},
		{"date before time", func(s *Selection) { s.Date = ""; s.Time = "" }, FieldDate, ErrDateRequired},
		{"time before name", func(s *Selection) { s.Time = ""; s.Contact.Name = "" }, FieldTime, ErrTimeRequired},
		{"blank name", func(s *Selection) { s.Contact.Name = "   " }, FieldName, ErrNameRequired},
		{"phone before email", func(s *Selection) { s.Contact.Phone = ""; s.Contact.Email = "" }, FieldPhone, ErrPhoneRequired},
		{"phone without digits", func(s *Selection) { s.Contact.Phone = "+ -" }, FieldPhone, ErrPhoneInvalid},
		{"email missing", func(s *Selection) { s.Contact.Email = " " }, FieldEmail, ErrEmailRequired},
		{"email malformed", func(s *Selection) { s.Contact.Email = "not-an-email" }, FieldEmail, ErrEmailInvalid},
		{"email without tld", func(s *Selection) { s.Contact.Email = "ana@x" }, FieldEmail, ErrEmailInvalid},
		{"email with space", func(s *Selection) { s.Contact.Email = "a na@x.com" }, FieldEmail, ErrEmailInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sel := filledSelection()
			tc.mutate(&sel)

			err := Validate(sel)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)

			ve, ok := IsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tc.field, ve.Field)
			assert.NotEmpty(t, ve.Message())
			assert.Contains(t, ve.FieldErrors(), tc.field)
		})
	}
}

func TestNewBookingRequest_Normalizes(t *testing.T) {
	sel := filledSelection()
	sel.DoctorID = 0
	sel.SlotDoctorID = 4
	sel.Contact = Contact{Name: "  Ana  ", Phone: "+60 12-345 6789", Email: "  Ana@X.COM ", Notes: " first visit "}

	req, err := NewBookingRequest(sel)
	require.NoError(t, err)
	assert.Equal(t, int64(3), req.BranchID)
	assert.Equal(t, int64(7), req.ServiceID)
	assert.Equal(t, "2025-06-10", req.AppointmentDate)
	assert.Equal(t, "10:00", req.AppointmentTime)
	assert.Equal(t, "Ana", req.PatientName)
	assert.Equal(t, "60123456789", req.PatientPhone)
	assert.Equal(t, "ana@x.com", req.PatientEmail)
	assert.Equal(t, "first visit", req.Notes)
	require.NotNil(t, req.DoctorID)
	assert.Equal(t, int64(4), *req.DoctorID)
}

func TestNewBookingRequest_DoctorFilterWins(t *testing.T) {
	sel := filledSelection()
	sel.SlotDoctorID = 4
	req, err := NewBookingRequest(sel)
	require.NoError(t, err)
	assert.Equal(t, int64(9), *req.DoctorID)

	sel.DoctorID, sel.SlotDoctorID = 0, 0
	req, err = NewBookingRequest(sel)
	require.NoError(t, err)
	assert.Nil(t, req.DoctorID)
}

func TestNewBookingRequest_Invalid(t *testing.T) {
	sel := filledSelection()
	sel.Contact.Email = "not-an-email"
	_, err := NewBookingRequest(sel)
	assert.ErrorIs(t, err, ErrEmailInvalid)
}

func TestSelectionField(t *testing.T) {
	assert.Equal(t, FieldTime, SelectionField("appointment_time"))
	assert.Equal(t, FieldPhone, SelectionField("patient_phone"))
	assert.Equal(t, "captcha", SelectionField("captcha"))
}

func TestSelectionErrors(t *testing.T) {
	got := SelectionErrors(catalog.FieldErrors{
		"appointment_time": {"Slot no longer available"},
		"patient_email":    {"Email is blocked"},
		"coupon":           {"Unknown coupon"},
	})
	assert.Equal(t, catalog.FieldErrors{
		FieldTime:  {"Slot no longer available"},
		FieldEmail: {"Email is blocked"},
		"coupon":   {"Unknown coupon"},
	}, got)
	assert.Nil(t, SelectionErrors(nil))
}
