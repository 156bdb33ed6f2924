// Package catalog contains the typed client for the remote clinic API: branches,
// doctors, services, day availability and booking creation/cancellation.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// TimeLayout is the 24-hour time-of-day format used on the wire.
const TimeLayout = "15:04"

// DayHours is one row of a branch's operating-hours table.
type DayHours struct {
	IsOpen    bool   `json:"is_open"`
	Open      string `json:"open,omitempty"`  // "09:00"
	Close     string `json:"close,omitempty"` // "18:00"
	Is24Hours bool   `json:"is_24_hours,omitempty"`
}

// OperatingHours maps weekdays to their hours. A nil day means closed.
type OperatingHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForDay returns the hours row for a weekday, or nil when none is configured.
func (h OperatingHours) ForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return h.Sunday
	case time.Monday:
		return h.Monday
	case time.Tuesday:
		return h.Tuesday
	case time.Wednesday:
		return h.Wednesday
	case time.Thursday:
		return h.Thursday
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	default:
		return nil
	}
}

// HasAnyHours returns true if at least one day has a row.
func (h OperatingHours) HasAnyHours() bool {
	return h.Sunday != nil || h.Monday != nil || h.Tuesday != nil ||
		h.Wednesday != nil || h.Thursday != nil || h.Friday != nil || h.Saturday != nil
}

// Location is a branch geolocation.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Branch is a physical clinic location.
type Branch struct {
	ID              int64          `json:"id"`
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	Address         string         `json:"address,omitempty"`
	Phones          []string       `json:"phones,omitempty"`
	Email           string         `json:"email,omitempty"`
	Location        *Location      `json:"location,omitempty"`
	OperatingHours  OperatingHours `json:"operating_hours"`
	AcceptsBookings bool           `json:"accepts_bookings"`
}

// Doctor is a practitioner. BranchID is the home branch when the API provides one.
type Doctor struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Specialization string   `json:"specialization,omitempty"`
	Qualifications []string `json:"qualifications,omitempty"`
	Languages      []string `json:"languages,omitempty"`
	BranchID       *int64   `json:"branch_id,omitempty"`
}

// BranchPrice is the per-branch price of a service.
type BranchPrice struct {
	BranchID int64    `json:"branch_id"`
	Price    *float64 `json:"price,omitempty"`
}

// Service is a bookable treatment or consultation.
type Service struct {
	ID              int64         `json:"id"`
	Slug            string        `json:"slug,omitempty"`
	Name            string        `json:"name"`
	Category        string        `json:"category,omitempty"`
	PriceMin        *float64      `json:"price_min,omitempty"`
	PriceMax        *float64      `json:"price_max,omitempty"`
	Price           *float64      `json:"price,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	Branches        []BranchPrice `json:"branches,omitempty"`
}

// OfferedAt reports whether the service is offered at a branch. Services without
// a branch list are offered everywhere.
func (s Service) OfferedAt(branchID int64) bool {
	if len(s.Branches) == 0 {
		return true
	}
	for _, b := range s.Branches {
		if b.BranchID == branchID {
			return true
		}
	}
	return false
}

// PriceLabel renders the display price, e.g. "RM 80" or "RM 80 - 150".
// It returns "" when the service carries no price information.
func (s Service) PriceLabel(currency string) string {
	prefix := ""
	if currency = strings.TrimSpace(currency); currency != "" {
		prefix = currency + " "
	}
	switch {
	case s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin != *s.PriceMax:
		return fmt.Sprintf("%s%s - %s", prefix, formatAmount(*s.PriceMin), formatAmount(*s.PriceMax))
	case s.PriceMin != nil:
		return prefix + formatAmount(*s.PriceMin)
	case s.Price != nil:
		return prefix + formatAmount(*s.Price)
	case s.PriceMax != nil:
		return prefix + formatAmount(*s.PriceMax)
	default:
		return ""
	}
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// SlotDoctor is the doctor assigned to a slot.
type SlotDoctor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
}

// TimeSlot is one bookable time-of-day unit.
type TimeSlot struct {
	Time      string      `json:"time"`
	Available bool        `json:"available"`
	Reason    string      `json:"reason,omitempty"`
	Doctor    *SlotDoctor `json:"doctor,omitempty"`
}

// HoursSummary is the operating-hours summary returned with a day's availability.
type HoursSummary struct {
	Open      string `json:"open,omitempty"`
	Close     string `json:"close,omitempty"`
	Is24Hours bool   `json:"is_24_hours,omitempty"`
}

// AvailabilityDay is the remote answer for one branch/date/service query.
type AvailabilityDay struct {
	IsOpen         bool         `json:"is_open"`
	OperatingHours HoursSummary `json:"operating_hours"`
	Slots          []TimeSlot   `json:"slots"`
}

// BookingRequest is the submit-ready payload for POST /bookings.
type BookingRequest struct {
	BranchID        int64  `json:"branch_id"`
	ServiceID       int64  `json:"service_id"`
	DoctorID        *int64 `json:"doctor_id,omitempty"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	PatientName     string `json:"patient_name"`
	PatientPhone    string `json:"patient_phone"`
	PatientEmail    string `json:"patient_email"`
	Notes           string `json:"notes,omitempty"`
}

// BranchRef is the branch echo inside a booking result.
type BranchRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AppointmentSummary echoes what was booked.
type AppointmentSummary struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Service string `json:"service,omitempty"`
	Doctor  string `json:"doctor,omitempty"`
}

// PatientSummary echoes the patient contact details.
type PatientSummary struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// BookingResult is the server-assigned booking plus echoed summaries.
type BookingResult struct {
	ID          int64              `json:"id"`
	Reference   string             `json:"reference"`
	Status      string             `json:"status,omitempty"`
	Branch      BranchRef          `json:"branch"`
	Appointment AppointmentSummary `json:"appointment"`
	Patient     PatientSummary     `json:"patient"`
}

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// ServiceFilter narrows GET /services.
type ServiceFilter struct {
	Category string
	BranchID int64
}
