package session

import (
	"time"

	"github.com/wolfman30/clinic-booking/internal/booking"
)

// EventType names a session event.
type EventType string

const (
	EventSnapshot     EventType = "snapshot"
	EventSelection    EventType = "selection"
	EventAvailability EventType = "availability"
	EventSubmission   EventType = "submission"
	EventClosed       EventType = "closed"
)

const subscriberBuffer = 16

// Event is pushed to subscribers whenever session state changes.
type Event struct {
	Type         EventType             `json:"type"`
	SessionID    string                `json:"session_id"`
	Seq          uint64                `json:"seq"`
	At           time.Time             `json:"at"`
	Selection    *booking.Selection    `json:"selection,omitempty"`
	Availability *booking.Availability `json:"availability,omitempty"`
	Submission   *SubmissionView       `json:"submission,omitempty"`
}

// Subscribe registers for events. The returned func unsubscribes; the channel
// is closed when the session closes or on unsubscribe. Slow subscribers miss
// events rather than block the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// emitLocked fans an event out. Callers hold s.mu.
func (s *Session) emitLocked(ev Event) {
	s.seq++
	ev.Seq = s.seq
	ev.SessionID = s.ID
	ev.At = s.now().UTC()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("session: dropping event for slow subscriber", "session_id", s.ID, "subscriber", id, "type", ev.Type)
		}
	}
}

func (s *Session) emitSelectionLocked() {
	sel := s.sel
	s.emitLocked(Event{Type: EventSelection, Selection: &sel})
}

func (s *Session) emitAvailabilityLocked() {
	avail := s.avail
	s.emitLocked(Event{Type: EventAvailability, Availability: &avail})
}
