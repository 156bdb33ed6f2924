// Package session owns per-user booking sessions: one Selection each, kept in
// step with its availability and submitted through a serialized workflow.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/internal/clinic"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Directory exposes the clinic-wide snapshot. It may return nil before load.
type Directory interface {
	Snapshot() *clinic.Snapshot
}

// StaleObserver counts availability results dropped as stale.
type StaleObserver interface {
	ObserveStaleDiscard()
}

// SubmissionView is the workflow state exposed to clients.
type SubmissionView struct {
	State   booking.SubmissionState `json:"state"`
	Outcome *booking.Outcome        `json:"outcome,omitempty"`
}

// View is a consistent copy of a session's state.
type View struct {
	ID           string               `json:"id"`
	Selection    booking.Selection    `json:"selection"`
	Availability booking.Availability `json:"availability"`
	Submission   SubmissionView       `json:"submission"`
	CreatedAt    time.Time            `json:"created_at"`
	ExpiresAt    time.Time            `json:"expires_at"`
}

// Session is one user's booking in progress. All methods are safe for
// concurrent use.
type Session struct {
	ID string

	resolver *booking.Resolver
	workflow *booking.Workflow
	dir      Directory
	stale    StaleObserver
	logger   *logging.Logger
	now      func() time.Time
	ttl      time.Duration

	mu         sync.Mutex
	sel        booking.Selection
	avail      booking.Availability
	generation uint64
	createdAt  time.Time
	lastSeen   time.Time
	closed     bool

	seq     uint64
	nextSub int
	subs    map[int]chan Event

	refreshes sync.WaitGroup
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		ID:           s.ID,
		Selection:    s.sel,
		Availability: s.avail,
		Submission:   SubmissionView{State: s.workflow.State(), Outcome: s.workflow.Last()},
		CreatedAt:    s.createdAt,
		ExpiresAt:    s.lastSeen.Add(s.ttl),
	}
}

// SetBranch selects a branch. Doctor and time are cleared. The branch must be
// in the directory and accept bookings.
func (s *Session) SetBranch(ctx context.Context, branchID int64) (View, error) {
	if branchID > 0 {
		if snap := s.snapshot(); snap != nil {
			branch, err := snap.BranchByID(branchID)
			if err != nil {
				return View{}, err
			}
			if !branch.AcceptsBookings {
				return View{}, ErrBranchNotBookable
			}
		}
	}
	return s.mutate(ctx, func(sel *booking.Selection) bool { return sel.SetBranch(branchID) })
}

// SetDoctor sets or clears (0) the doctor filter.
func (s *Session) SetDoctor(ctx context.Context, doctorID int64) (View, error) {
	return s.mutate(ctx, func(sel *booking.Selection) bool { return sel.SetDoctor(doctorID) })
}

// SetService selects a service. When the directory knows the service it must
// be offered at the selected branch.
func (s *Session) SetService(ctx context.Context, serviceID int64) (View, error) {
	if serviceID > 0 {
		if snap := s.snapshot(); snap != nil {
			if svc, ok := snap.ServiceByID(serviceID); ok {
				s.mu.Lock()
				branchID := s.sel.BranchID
				s.mu.Unlock()
				if branchID > 0 && !svc.OfferedAt(branchID) {
					return View{}, ErrServiceNotOffered
				}
			}
		}
	}
	return s.mutate(ctx, func(sel *booking.Selection) bool { return sel.SetService(serviceID) })
}

// SetDate selects a date ("" clears it). Time is cleared.
func (s *Session) SetDate(ctx context.Context, date string) (View, error) {
	if date != "" && !catalog.ValidDate(date) {
		return View{}, ErrInvalidDate
	}
	return s.mutate(ctx, func(sel *booking.Selection) bool { return sel.SetDate(date) })
}

// SelectTime picks a time from the current selectable slots. An empty clock
// clears the time. Times that are not currently selectable leave the session
// unchanged and return ErrSlotNotSelectable.
func (s *Session) SelectTime(clock string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionClosed
	}
	s.lastSeen = s.now()

	if clock == "" {
		if s.sel.ClearTime() {
			s.emitSelectionLocked()
		}
		return s.viewLocked(), nil
	}
	if s.avail.Key != s.sel.Key() || s.avail.State != booking.StateAvailable {
		return View{}, ErrSlotNotSelectable
	}
	slot, ok := s.avail.Slot(clock)
	if !ok || !s.sel.SelectSlot(slot) {
		return View{}, ErrSlotNotSelectable
	}
	s.emitSelectionLocked()
	return s.viewLocked(), nil
}

// SetContact replaces the contact fields.
func (s *Session) SetContact(c booking.Contact) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	if s.sel.Contact != c {
		s.sel.SetContact(c)
		s.emitSelectionLocked()
	}
	return s.viewLocked(), nil
}

// Reset clears the selection and any availability.
func (s *Session) Reset() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	s.resetLocked()
	return s.viewLocked(), nil
}

func (s *Session) resetLocked() {
	s.sel.Reset()
	s.generation++
	s.avail = booking.Unresolved(s.sel.Key())
	s.emitSelectionLocked()
	s.emitAvailabilityLocked()
}

// mutate applies a selection change and, when the availability key moved,
// starts a background refresh.
func (s *Session) mutate(ctx context.Context, change func(*booking.Selection) bool) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	before := s.sel.Key()
	if change(&s.sel) {
		s.emitSelectionLocked()
	}
	keyChanged := s.sel.Key() != before || s.avail.Key != s.sel.Key()
	var gen uint64
	if keyChanged {
		gen = s.beginRefreshLocked()
	}
	view := s.viewLocked()
	s.mu.Unlock()

	if keyChanged && gen > 0 {
		s.refreshes.Add(1)
		go func() {
			defer s.refreshes.Done()
			s.fetch(context.WithoutCancel(ctx), view.Availability.Key, gen)
		}()
	}
	return view, nil
}

// beginRefreshLocked marks availability as loading for the current key and
// returns the generation to apply against, or 0 when the key is not ready.
func (s *Session) beginRefreshLocked() uint64 {
	s.generation++
	key := s.sel.Key()
	if !key.Ready() {
		s.avail = booking.Unresolved(key)
		s.emitAvailabilityLocked()
		return 0
	}
	s.avail = booking.Loading(key)
	s.emitAvailabilityLocked()
	return s.generation
}

// fetch resolves key without holding the lock and applies the result only if
// no newer refresh started and the selection still has the same key.
func (s *Session) fetch(ctx context.Context, key booking.AvailabilityKey, gen uint64) booking.Availability {
	result := s.resolver.Resolve(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || s.sel.Key() != key {
		if s.stale != nil {
			s.stale.ObserveStaleDiscard()
		}
		s.logger.Debug("session: discarding stale availability",
			"session_id", s.ID, "branch_id", key.BranchID, "date", key.Date, "state", string(result.State))
		return s.avail
	}

	s.avail = result
	if s.sel.Time != "" && result.State != booking.StateNetworkError {
		if _, ok := result.Slot(s.sel.Time); !ok {
			s.sel.ClearTime()
			s.emitSelectionLocked()
		}
	}
	s.emitAvailabilityLocked()
	return result
}

// Availability returns the availability for the current selection, fetching
// it first when it is missing, loading, failed or for a different key.
func (s *Session) Availability(ctx context.Context) (booking.Availability, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return booking.Availability{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	key := s.sel.Key()
	current := s.avail
	fresh := current.Key == key &&
		current.State != booking.StateLoading &&
		current.State != booking.StateNetworkError &&
		(current.State != booking.StateUnresolved || !key.Ready())
	if fresh {
		s.mu.Unlock()
		return current, nil
	}
	gen := s.beginRefreshLocked()
	if gen == 0 {
		avail := s.avail
		s.mu.Unlock()
		return avail, nil
	}
	s.mu.Unlock()
	return s.fetch(context.WithoutCancel(ctx), key, gen), nil
}

// Submit runs the workflow on a copy of the selection. On success the live
// selection is reset; otherwise it is left as the user entered it. The remote
// call is detached from ctx and bounded only by the client timeout.
func (s *Session) Submit(ctx context.Context) (booking.Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return booking.Outcome{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	snapshot := s.sel
	s.mu.Unlock()

	out, err := s.workflow.Submit(context.WithoutCancel(ctx), &snapshot)
	if errors.Is(err, booking.ErrSubmissionInFlight) {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && out.State == booking.SubmissionSucceeded && !s.closed {
		s.resetLocked()
	}
	o := out
	s.emitLocked(Event{Type: EventSubmission, Submission: &SubmissionView{State: s.workflow.State(), Outcome: &o}})
	return out, err
}

// Close discards the session and closes all subscriber channels.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.emitLocked(Event{Type: EventClosed})
	s.closed = true
	s.generation++
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) snapshot() *clinic.Snapshot {
	if s.dir == nil {
		return nil
	}
	return s.dir.Snapshot()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > s.ttl
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// wait blocks until background refreshes finish.
func (s *Session) wait() {
	s.refreshes.Wait()
}
