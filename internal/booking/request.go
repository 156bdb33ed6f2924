package booking

import (
	"regexp"
	"strings"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks the selection in submission order and returns the first
// failure as a *ValidationError.
func Validate(s Selection) error {
	switch {
	case s.BranchID <= 0:
		return invalid(FieldBranch, ErrBranchRequired)
	case s.ServiceID <= 0:
		return invalid(FieldService, ErrServiceRequired)
	case strings.TrimSpace(s.Date) == "":
		return invalid(FieldDate, ErrDateRequired)
	case strings.TrimSpace(s.Time) == "":
		return invalid(FieldTime, ErrTimeRequired)
	case strings.TrimSpace(s.Contact.Name) == "":
		return invalid(FieldName, ErrNameRequired)
	case strings.TrimSpace(s.Contact.Phone) == "":
		return invalid(FieldPhone, ErrPhoneRequired)
	case NormalizePhone(s.Contact.Phone) == "":
		return invalid(FieldPhone, ErrPhoneInvalid)
	case strings.TrimSpace(s.Contact.Email) == "":
		return invalid(FieldEmail, ErrEmailRequired)
	case !emailPattern.MatchString(strings.TrimSpace(s.Contact.Email)):
		return invalid(FieldEmail, ErrEmailInvalid)
	}
	return nil
}

// NewBookingRequest validates the selection and projects it into the submit
// payload with normalized contact fields.
func NewBookingRequest(s Selection) (catalog.BookingRequest, error) {
	if err := Validate(s); err != nil {
		return catalog.BookingRequest{}, err
	}
	req := catalog.BookingRequest{
		BranchID:        s.BranchID,
		ServiceID:       s.ServiceID,
		AppointmentDate: strings.TrimSpace(s.Date),
		AppointmentTime: strings.TrimSpace(s.Time),
		PatientName:     strings.TrimSpace(s.Contact.Name),
		PatientPhone:    NormalizePhone(s.Contact.Phone),
		PatientEmail:    NormalizeEmail(s.Contact.Email),
		Notes:           strings.TrimSpace(s.Contact.Notes),
	}
	doctorID := s.DoctorID
	if doctorID == 0 {
		doctorID = s.SlotDoctorID
	}
	if doctorID > 0 {
		req.DoctorID = &doctorID
	}
	return req, nil
}

// NormalizePhone keeps only the digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail trims and lower-cases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// selectionFields maps remote booking field names onto Selection fields.
var selectionFields = map[string]string{
	"branch_id":        FieldBranch,
	"service_id":       FieldService,
	"doctor_id":        "doctor",
	"appointment_date": FieldDate,
	"appointment_time": FieldTime,
	"patient_name":     FieldName,
	"patient_phone":    FieldPhone,
	"patient_email":    FieldEmail,
	"notes":            "notes",
}

// SelectionField returns the Selection field a remote error key refers to, or
// the key itself when unknown.
func SelectionField(remote string) string {
	if f, ok := selectionFields[remote]; ok {
		return f
	}
	return remote
}

// SelectionErrors rekeys remote field errors by Selection field so they sit
// next to the same fields local validation reports on.
func SelectionErrors(remote catalog.FieldErrors) catalog.FieldErrors {
	if len(remote) == 0 {
		return nil
	}
	out := make(catalog.FieldErrors, len(remote))
	for key, msgs := range remote {
		field := SelectionField(key)
		out[field] = append(out[field], msgs...)
	}
	return out
}
