package clinic

import (
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

// MaxCalendarDays bounds a single calendar request.
const MaxCalendarDays = 62

// DayStatus is the open/closed state of one calendar date.
type DayStatus struct {
	Date      string `json:"date"`
	Weekday   string `json:"weekday"`
	IsOpen    bool   `json:"is_open"`
	Open      string `json:"open,omitempty"`
	Close     string `json:"close,omitempty"`
	Is24Hours bool   `json:"is_24_hours,omitempty"`
}

// OpenOn reports the hours that apply on a date. A branch with no hours table
// at all is treated as open by appointment.
func OpenOn(hours catalog.OperatingHours, date time.Time) DayStatus {
	status := DayStatus{
		Date:    date.Format(catalog.DateLayout),
		Weekday: strings.ToLower(date.Weekday().String()),
	}
	row := hours.ForDay(date.Weekday())
	if row == nil {
		status.IsOpen = !hours.HasAnyHours()
		return status
	}
	if !row.IsOpen {
		return status
	}
	status.IsOpen = true
	status.Is24Hours = row.Is24Hours
	if !row.Is24Hours {
		status.Open = row.Open
		status.Close = row.Close
	}
	return status
}

// Calendar returns the status of days consecutive dates starting at from.
// days is clamped to [1, MaxCalendarDays].
func Calendar(branch catalog.Branch, from time.Time, days int) []DayStatus {
	if days < 1 {
		days = 1
	}
	if days > MaxCalendarDays {
		days = MaxCalendarDays
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]DayStatus, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, OpenOn(branch.OperatingHours, start.AddDate(0, 0, i)))
	}
	return out
}

// IsOpenAt reports whether a wall-clock time of day ("HH:mm") on a date falls
// inside the branch's hours for that date.
func IsOpenAt(hours catalog.OperatingHours, date time.Time, clock string) bool {
	status := OpenOn(hours, date)
	if !status.IsOpen {
		return false
	}
	if status.Is24Hours || status.Open == "" {
		return true
	}
	at, err := time.Parse(catalog.TimeLayout, clock)
	if err != nil {
		return false
	}
	openTime, err := time.Parse(catalog.TimeLayout, status.Open)
	if err != nil {
		return false
	}
	closeTime, err := time.Parse(catalog.TimeLayout, status.Close)
	if err != nil {
		return false
	}

	current := at.Hour()*60 + at.Minute()
	return current >= openTime.Hour()*60+openTime.Minute() &&
		current < closeTime.Hour()*60+closeTime.Minute()
}
