package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Schema checks applied after decoding. A violation turns the envelope into a
// FailureDecode so callers never see half-populated entities.

var errMissingData = errors.New("missing data")

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTime reports whether s is a 24-hour HH:mm time of day.
func ValidTime(s string) bool {
	if len(s) != len(TimeLayout) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

func validateDayHours(day string, h *DayHours) error {
	if h == nil || !h.IsOpen || h.Is24Hours {
		return nil
	}
	if !ValidTime(h.Open) || !ValidTime(h.Close) {
		return fmt.Errorf("operating_hours.%s: open/close must be HH:mm", day)
	}
	return nil
}

func (b Branch) validate() error {
	if b.ID <= 0 {
		return errors.New("branch: id must be positive")
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("branch %d: name is required", b.ID)
	}
	days := map[string]*DayHours{
		"monday": b.OperatingHours.Monday, "tuesday": b.OperatingHours.Tuesday,
		"wednesday": b.OperatingHours.Wednesday, "thursday": b.OperatingHours.Thursday,
		"friday": b.OperatingHours.Friday, "saturday": b.OperatingHours.Saturday,
		"sunday": b.OperatingHours.Sunday,
	}
	for day, h := range days {
		if err := validateDayHours(day, h); err != nil {
			return fmt.Errorf("branch %d: %w", b.ID, err)
		}
	}
	return nil
}

func (d Doctor) validate() error {
	if d.ID <= 0 {
		return errors.New("doctor: id must be positive")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("doctor %d: name is required", d.ID)
	}
	return nil
}

func (s Service) validate() error {
	if s.ID <= 0 {
		return errors.New("service: id must be positive")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("service %d: name is required", s.ID)
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("service %d: duration_minutes must not be negative", s.ID)
	}
	if s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin > *s.PriceMax {
		return fmt.Errorf("service %d: price_min exceeds price_max", s.ID)
	}
	return nil
}

func (t TimeSlot) validate() error {
	if !ValidTime(t.Time) {
		return fmt.Errorf("slot: time %q must be HH:mm", t.Time)
	}
	if t.Doctor != nil && t.Doctor.ID <= 0 {
		return fmt.Errorf("slot %s: doctor id must be positive", t.Time)
	}
	return nil
}

func validateSlots(slots []TimeSlot) error {
	for _, s := range slots {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateAvailability(day AvailabilityDay) error {
	h := day.OperatingHours
	if day.IsOpen && !h.Is24Hours && (h.Open != "" || h.Close != "") {
		if !ValidTime(h.Open) || !ValidTime(h.Close) {
			return errors.New("availability: operating_hours open/close must be HH:mm")
		}
	}
	return validateSlots(day.Slots)
}

func validateBranches(branches []Branch) error {
	for _, b := range branches {
		if err := b.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateDoctors(doctors []Doctor) error {
	for _, d := range doctors {
		if err := d.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateServices(services []Service) error {
	for _, s := range services {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateBooking(res BookingResult) error {
	if strings.TrimSpace(res.Reference) == "" && res.ID <= 0 {
		return fmt.Errorf("booking: %w: reference or id", errMissingData)
	}
	return nil
}

func validateCancel(res CancelResult) error {
	if strings.TrimSpace(res.Status) == "" {
		return fmt.Errorf("cancel: %w: status", errMissingData)
	}
	return nil
}
