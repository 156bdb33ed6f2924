// Package booking holds the booking flow: the in-progress Selection, request
// validation, the availability resolver and the submission workflow.
package booking

import (
	"strings"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

// Contact holds the patient contact fields.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

// Selection is the mutable in-progress booking. Zero ids and empty strings mean
// unset. It performs no I/O and is not safe for concurrent use.
type Selection struct {
	BranchID  int64   `json:"branch_id,omitempty"`
	DoctorID  int64   `json:"doctor_id,omitempty"`
	ServiceID int64   `json:"service_id,omitempty"`
	Date      string  `json:"date,omitempty"`
	Time      string  `json:"time,omitempty"`
	Contact   Contact `json:"contact"`

	// SlotDoctorID is the doctor assigned to the picked slot, if any.
	SlotDoctorID int64 `json:"slot_doctor_id,omitempty"`
}

// AvailabilityKey is the resolver input tuple. Two equal keys describe the
// same availability query.
type AvailabilityKey struct {
	BranchID  int64  `json:"branch_id"`
	Date      string `json:"date"`
	ServiceID int64  `json:"service_id,omitempty"`
	DoctorID  int64  `json:"doctor_id,omitempty"`
}

// Ready reports whether the key has enough inputs to query availability.
func (k AvailabilityKey) Ready() bool {
	return k.BranchID > 0 && k.Date != ""
}

// SetBranch changes the branch and clears doctor and time. It reports whether
// the value changed.
func (s *Selection) SetBranch(id int64) bool {
	if id < 0 {
		id = 0
	}
	if id == s.BranchID {
		return false
	}
	s.BranchID = id
	s.DoctorID = 0
	s.clearTime()
	return true
}

// SetDoctor sets the doctor filter. Zero clears it.
func (s *Selection) SetDoctor(id int64) bool {
	if id < 0 {
		id = 0
	}
	if id == s.DoctorID {
		return false
	}
	s.DoctorID = id
	return true
}

func (s *Selection) SetService(id int64) bool {
	if id < 0 {
		id = 0
	}
	if id == s.ServiceID {
		return false
	}
	s.ServiceID = id
	return true
}

// SetDate changes the date and clears time. A malformed non-empty date is
// ignored and reported as no change; an empty date clears it.
func (s *Selection) SetDate(date string) bool {
	date = strings.TrimSpace(date)
	if date != "" && !catalog.ValidDate(date) {
		return false
	}
	if date == s.Date {
		return false
	}
	s.Date = date
	s.clearTime()
	return true
}

// SelectSlot picks a slot's time. Unavailable or malformed slots are a no-op
// and return false.
func (s *Selection) SelectSlot(slot catalog.TimeSlot) bool {
	if !slot.Available || !catalog.ValidTime(slot.Time) {
		return false
	}
	s.Time = slot.Time
	s.SlotDoctorID = 0
	if slot.Doctor != nil {
		s.SlotDoctorID = slot.Doctor.ID
	}
	return true
}

// ClearTime unsets the picked time.
func (s *Selection) ClearTime() bool {
	if s.Time == "" && s.SlotDoctorID == 0 {
		return false
	}
	s.clearTime()
	return true
}

func (s *Selection) clearTime() {
	s.Time = ""
	s.SlotDoctorID = 0
}

// SetContact replaces the contact fields as entered.
func (s *Selection) SetContact(c Contact) {
	s.Contact = c
}

// Reset restores every field to empty.
func (s *Selection) Reset() {
	*s = Selection{}
}

// IsZero reports whether nothing has been selected.
func (s Selection) IsZero() bool {
	return s == Selection{}
}

// Key returns the availability query for the current selection.
func (s Selection) Key() AvailabilityKey {
	return AvailabilityKey{
		BranchID:  s.BranchID,
		Date:      s.Date,
		ServiceID: s.ServiceID,
		DoctorID:  s.DoctorID,
	}
}

// ReadyForAvailability reports whether branch and date are both set.
func (s Selection) ReadyForAvailability() bool {
	return s.Key().Ready()
}

// Complete reports whether the selection would pass validation.
func (s Selection) Complete() bool {
	return Validate(s) == nil
}
