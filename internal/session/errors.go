package session

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionClosed is returned for operations on a discarded session.
	ErrSessionClosed = errors.New("session: closed")
	// ErrSlotNotSelectable rejects a time that is not in the current selectable slots.
	ErrSlotNotSelectable = errors.New("session: slot not selectable")
	// ErrBranchNotBookable rejects branches that do not accept online bookings.
	ErrBranchNotBookable = errors.New("session: branch does not accept bookings")
	// ErrServiceNotOffered rejects a service the selected branch does not offer.
	ErrServiceNotOffered = errors.New("session: service not offered at branch")
	// ErrInvalidDate rejects dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("session: date must be YYYY-MM-DD")
)
