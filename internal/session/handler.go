package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/internal/clinic"
	"github.com/wolfman30/clinic-booking/internal/http/respond"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Handler serves /api/sessions and /api/bookings.
type Handler struct {
	store  *Store
	cancel *booking.Workflow
	logger *logging.Logger
}

// NewHandler creates a session HTTP handler. Cancellations run through their
// own workflow since they are not tied to a session.
func NewHandler(store *Store, gateway booking.Gateway, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, cancel: booking.NewWorkflow(gateway, nil, logger), logger: logger}
}

// Routes returns the /api/sessions router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Put("/branch", h.SetBranch)
		r.Put("/doctor", h.SetDoctor)
		r.Put("/service", h.SetService)
		r.Put("/date", h.SetDate)
		r.Put("/time", h.SetTime)
		r.Put("/contact", h.SetContact)
		r.Post("/reset", h.Reset)
		r.Get("/availability", h.Availability)
		r.Post("/submit", h.Submit)
		r.Get("/events", h.Events)
	})
	return r
}

// BookingRoutes returns the /api/bookings router.
func (h *Handler) BookingRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{reference}/cancel", h.CancelBooking)
	return r
}

// Create starts a session.
// POST /api/sessions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()
	respond.OK(w, http.StatusCreated, s.View())
}

// Get returns the session state.
// GET /api/sessions/{sessionID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, s.View())
}

// Delete discards the session.
// DELETE /api/sessions/{sessionID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idRequest struct {
	BranchID  *int64 `json:"branch_id,omitempty"`
	DoctorID  *int64 `json:"doctor_id,omitempty"`
	ServiceID *int64 `json:"service_id,omitempty"`
}

// SetBranch handles PUT /api/sessions/{sessionID}/branch {"branch_id": 3}.
func (h *Handler) SetBranch(w http.ResponseWriter, r *http.Request) {
	h.setID(w, r, "branch_id", func(req idRequest) *int64 { return req.BranchID }, (*Session).SetBranch)
}

// SetDoctor handles PUT /api/sessions/{sessionID}/doctor {"doctor_id": 9}; 0 clears.
func (h *Handler) SetDoctor(w http.ResponseWriter, r *http.Request) {
	h.setID(w, r, "doctor_id", func(req idRequest) *int64 { return req.DoctorID }, (*Session).SetDoctor)
}

// SetService handles PUT /api/sessions/{sessionID}/service {"service_id": 7}.
func (h *Handler) SetService(w http.ResponseWriter, r *http.Request) {
	h.setID(w, r, "service_id", func(req idRequest) *int64 { return req.ServiceID }, (*Session).SetService)
}

func (h *Handler) setID(w http.ResponseWriter, r *http.Request, field string,
	pick func(idRequest) *int64, apply func(*Session, context.Context, int64) (View, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req idRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := pick(req)
	if id == nil || *id < 0 {
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "Validation failed",
			map[string][]string{field: {field + " must be a non-negative integer"}})
		return
	}
	view, err := apply(s, r.Context(), *id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// SetDate handles PUT /api/sessions/{sessionID}/date {"date": "2025-06-10"}.
func (h *Handler) SetDate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	view, err := s.SetDate(r.Context(), strings.TrimSpace(req.Date))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// SetTime handles PUT /api/sessions/{sessionID}/time {"time": "10:00"}; "" clears.
func (h *Handler) SetTime(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Time string `json:"time"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	view, err := s.SelectTime(strings.TrimSpace(req.Time))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// SetContact handles PUT /api/sessions/{sessionID}/contact.
func (h *Handler) SetContact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req booking.Contact
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	view, err := s.SetContact(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// Reset handles POST /api/sessions/{sessionID}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.Reset()
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, view)
}

// Availability handles GET /api/sessions/{sessionID}/availability.
// A network error is still a 200: the state carries the retryable message.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	avail, err := s.Availability(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.OK(w, http.StatusOK, avail)
}

// Submit handles POST /api/sessions/{sessionID}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	out, err := s.Submit(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch out.State {
	case booking.SubmissionSucceeded:
		respond.OK(w, http.StatusCreated, out)
	case booking.SubmissionFieldErrors:
		respond.JSON(w, http.StatusUnprocessableEntity, respond.Body{
			Success: false, Data: out, Message: out.Message, Errors: out.FieldErrors,
		})
	default:
		respond.JSON(w, http.StatusBadGateway, respond.Body{Success: false, Data: out, Message: out.Message})
	}
}

// CancelBooking handles POST /api/bookings/{reference}/cancel.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	out, err := h.cancel.Cancel(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if out.Success {
		respond.OK(w, http.StatusOK, out)
		return
	}
	status := http.StatusBadGateway
	if out.Failure == catalog.FailureRemote && out.StatusCode >= 400 && out.StatusCode < 500 {
		status = out.StatusCode
	}
	respond.FieldErrors(w, status, out.Message, out.FieldErrors)
}

// Events streams session events over a websocket. The first frame is a
// snapshot of the current state; the stream ends when the session closes.
// GET /api/sessions/{sessionID}/events
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveEvents(conn, s)
	}).ServeHTTP(w, r)
}

type inbound struct {
	Type string `json:"type"`
}

func (h *Handler) serveEvents(conn *websocket.Conn, s *Session) {
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	view := s.View()
	snapshot := Event{
		Type:         EventSnapshot,
		SessionID:    s.ID,
		Selection:    &view.Selection,
		Availability: &view.Availability,
		Submission:   &view.Submission,
	}
	if err := websocket.JSON.Send(conn, snapshot); err != nil {
		return
	}
	h.logger.Debug("session: event stream opened", "session_id", s.ID)

	pongs := make(chan struct{}, 1)
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg inbound
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				select {
				case pongs <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if err := websocket.JSON.Send(conn, ev); err != nil {
				h.logger.Debug("session: event send failed", "session_id", s.ID, "error", err)
				return
			}
		case <-pongs:
			s.touch()
			_ = websocket.JSON.Send(conn, map[string]string{"type": "pong"})
		case <-gone:
			h.logger.Debug("session: event stream closed", "session_id", s.ID)
			return
		}
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if ve, ok := booking.IsValidation(err); ok {
		respond.FieldErrors(w, http.StatusUnprocessableEntity, ve.Message(), ve.FieldErrors())
		return
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionClosed):
		respond.Error(w, http.StatusNotFound, "Booking session not found or expired.")
	case errors.Is(err, booking.ErrSubmissionInFlight):
		respond.Error(w, http.StatusConflict, "A booking is already being submitted.")
	case errors.Is(err, ErrSlotNotSelectable):
		respond.FieldErrors(w, http.StatusConflict, "That time is not available. Please choose another slot.",
			map[string][]string{booking.FieldTime: {"Please choose an available time."}})
	case errors.Is(err, clinic.ErrBranchNotFound):
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "Branch not found.",
			map[string][]string{booking.FieldBranch: {"Please select a valid branch."}})
	case errors.Is(err, ErrBranchNotBookable):
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "This branch does not accept online bookings.",
			map[string][]string{booking.FieldBranch: {"This branch does not accept online bookings."}})
	case errors.Is(err, ErrServiceNotOffered):
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "This service is not offered at the selected branch.",
			map[string][]string{booking.FieldService: {"This service is not offered at the selected branch."}})
	case errors.Is(err, ErrInvalidDate):
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "Invalid date.",
			map[string][]string{booking.FieldDate: {"Please choose a valid date."}})
	case errors.Is(err, booking.ErrReferenceRequired):
		respond.Error(w, http.StatusBadRequest, "Booking reference is required.")
	default:
		h.logger.Error("session request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
