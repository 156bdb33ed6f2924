// Package demo is an in-memory stand-in for the remote clinic API. It serves the
// same REST contract the catalog client consumes, backed by fixed seed data, so
// the coordinator can run locally and in end-to-end tests without the real
// backend.
package demo

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/internal/clinic"
	"github.com/wolfman30/clinic-booking/internal/http/respond"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	slotStep  = 30 * time.Minute
	firstSlot = "08:00"
	lastSlot  = "21:30"

	statusConfirmed = "confirmed"
	statusCancelled = "cancelled"
)

// Option configures a Backend.
type Option func(*Backend)

// WithAPIKey requires "Authorization: Bearer <key>" on every request.
func WithAPIKey(key string) Option {
	return func(b *Backend) { b.apiKey = strings.TrimSpace(key) }
}

// WithClock overrides the wall clock used to mark past slots.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

type slotKey struct {
	branchID int64
	date     string
	time     string
}

type record struct {
	result catalog.BookingResult
	key    slotKey
}

// Backend is the fake clinic API.
type Backend struct {
	logger *logging.Logger
	now    func() time.Time
	apiKey string

	branches []catalog.Branch
	doctors  []catalog.Doctor
	services []catalog.Service

	mu       sync.Mutex
	nextID   int64
	bookings map[string]*record
	taken    map[slotKey]string
}

// NewBackend creates a backend seeded with three branches, four doctors and
// four services.
func NewBackend(logger *logging.Logger, opts ...Option) *Backend {
	if logger == nil {
		logger = logging.Default()
	}
	b := &Backend{
		logger:   logger,
		now:      time.Now,
		branches: seedBranches(),
		doctors:  seedDoctors(),
		services: seedServices(),
		bookings: make(map[string]*record),
		taken:    make(map[slotKey]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Routes returns the router to mount at the API base path (e.g. /api/v1).
func (b *Backend) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(b.requireKey)
	r.Get("/branches", b.ListBranches)
	r.Get("/branches/{ref}", b.GetBranch)
	r.Get("/branches/{ref}/doctors", b.ListBranchDoctors)
	r.Get("/branches/{ref}/services", b.ListBranchServices)
	r.Get("/branches/{ref}/slots", b.GetDaySlots)
	r.Get("/branches/{ref}/availability", b.GetAvailability)
	r.Get("/doctors", b.ListDoctors)
	r.Get("/services", b.ListServices)
	r.Post("/bookings", b.CreateBooking)
	r.Post("/bookings/{reference}/cancel", b.CancelBooking)
	return r
}

func (b *Backend) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+b.apiKey {
			respond.Error(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListBranches handles GET /branches.
func (b *Backend) ListBranches(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, http.StatusOK, b.branches)
}

// GetBranch handles GET /branches/{slug}.
func (b *Backend) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch, ok := b.branch(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, branch)
}

// ListBranchDoctors handles GET /branches/{id|slug}/doctors.
func (b *Backend) ListBranchDoctors(w http.ResponseWriter, r *http.Request) {
	branch, ok := b.branch(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, b.doctorsAt(branch.ID))
}

// ListBranchServices handles GET /branches/{id}/services.
func (b *Backend) ListBranchServices(w http.ResponseWriter, r *http.Request) {
	branch, ok := b.branch(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, b.servicesFor("", branch.ID))
}

// GetDaySlots handles GET /branches/{slug}/slots?date=&doctor_id=.
func (b *Backend) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	branch, ok := b.branch(w, r)
	if !ok {
		return
	}
	date, ok := parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	doctorID, _ := strconv.ParseInt(r.URL.Query().Get("doctor_id"), 10, 64)

	b.mu.Lock()
	slots := b.slotsLocked(branch, date)
	b.mu.Unlock()

	out := make([]catalog.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if doctorID > 0 && (s.Doctor == nil || s.Doctor.ID != doctorID) {
			continue
		}
		out = append(out, s)
	}
	respond.OK(w, http.StatusOK, out)
}

// GetAvailability handles GET /branches/{id}/availability?date=&service_id=.
func (b *Backend) GetAvailability(w http.ResponseWriter, r *http.Request) {
	branch, ok := b.branch(w, r)
	if !ok {
		return
	}
	date, ok := parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	if raw := r.URL.Query().Get("service_id"); raw != "" {
		serviceID, err := strconv.ParseInt(raw, 10, 64)
		svc, found := b.service(serviceID)
		if err != nil || !found || !svc.OfferedAt(branch.ID) {
			respond.FieldErrors(w, http.StatusUnprocessableEntity, "The given data was invalid.",
				map[string][]string{"service_id": {"The selected service is not available at this branch."}})
			return
		}
	}

	status := clinic.OpenOn(branch.OperatingHours, date)
	day := catalog.AvailabilityDay{
		IsOpen: status.IsOpen,
		OperatingHours: catalog.HoursSummary{
			Open: status.Open, Close: status.Close, Is24Hours: status.Is24Hours,
		},
		Slots: []catalog.TimeSlot{},
	}
	if status.IsOpen {
		b.mu.Lock()
		day.Slots = b.slotsLocked(branch, date)
		b.mu.Unlock()
	}
	respond.OK(w, http.StatusOK, day)
}

// ListDoctors handles GET /doctors?branch_id=.
func (b *Backend) ListDoctors(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	if branchID <= 0 {
		respond.OK(w, http.StatusOK, b.doctors)
		return
	}
	respond.OK(w, http.StatusOK, b.doctorsAt(branchID))
}

// ListServices handles GET /services?category=&branch_id=.
func (b *Backend) ListServices(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	respond.OK(w, http.StatusOK, b.servicesFor(r.URL.Query().Get("category"), branchID))
}

// CreateBooking handles POST /bookings. Field problems come back as 422 with
// errors keyed by request field.
func (b *Backend) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req catalog.BookingRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if errs := checkRequest(req); len(errs) > 0 {
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "The given data was invalid.", errs)
		return
	}

	branch, found := b.branchByID(req.BranchID)
	switch {
	case !found:
		fieldError(w, "branch_id", "The selected branch is invalid.")
		return
	case !branch.AcceptsBookings:
		fieldError(w, "branch_id", "This branch is not accepting online bookings.")
		return
	}
	svc, found := b.service(req.ServiceID)
	if !found || !svc.OfferedAt(branch.ID) {
		fieldError(w, "service_id", "The selected service is not available at this branch.")
		return
	}
	date, _ := time.Parse(catalog.DateLayout, req.AppointmentDate)

	b.mu.Lock()
	defer b.mu.Unlock()

	var slot *catalog.TimeSlot
	for _, s := range b.slotsLocked(branch, date) {
		if s.Time == req.AppointmentTime {
			slot = &s
			break
		}
	}
	switch {
	case slot == nil:
		fieldError(w, "appointment_time", "The clinic is closed at the selected time.")
		return
	case !slot.Available:
		fieldError(w, "appointment_time", "This time slot is no longer available.")
		return
	case req.DoctorID != nil && (slot.Doctor == nil || slot.Doctor.ID != *req.DoctorID):
		fieldError(w, "doctor_id", "The selected doctor is not available at this time.")
		return
	}

	b.nextID++
	ref := "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	result := catalog.BookingResult{
		ID:        b.nextID,
		Reference: ref,
		Status:    statusConfirmed,
		Branch:    catalog.BranchRef{ID: branch.ID, Name: branch.Name},
		Appointment: catalog.AppointmentSummary{
			Date: req.AppointmentDate, Time: req.AppointmentTime, Service: svc.Name,
		},
		Patient: catalog.PatientSummary{Name: req.PatientName, Phone: req.PatientPhone, Email: req.PatientEmail},
	}
	if slot.Doctor != nil {
		result.Appointment.Doctor = slot.Doctor.Name
	}
	key := slotKey{branchID: branch.ID, date: req.AppointmentDate, time: req.AppointmentTime}
	b.bookings[ref] = &record{result: result, key: key}
	b.taken[key] = ref

	b.logger.Info("demo: booking created", "reference", ref, "branch_id", branch.ID,
		"date", req.AppointmentDate, "time", req.AppointmentTime)
	respond.OK(w, http.StatusCreated, result)
}

// CancelBooking handles POST /bookings/{reference}/cancel and frees the slot.
func (b *Backend) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ref := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "reference")))

	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.bookings[ref]
	if !ok {
		respond.Error(w, http.StatusNotFound, "Booking not found.")
		return
	}
	if rec.result.Status == statusCancelled {
		respond.Error(w, http.StatusUnprocessableEntity, "Booking is already cancelled.")
		return
	}
	rec.result.Status = statusCancelled
	delete(b.taken, rec.key)

	b.logger.Info("demo: booking cancelled", "reference", ref)
	respond.OK(w, http.StatusOK, catalog.CancelResult{Reference: ref, Status: statusCancelled})
}

// Bookings returns confirmed and cancelled bookings ordered by id.
func (b *Backend) Bookings() []catalog.BookingResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]catalog.BookingResult, 0, len(b.bookings))
	for _, rec := range b.bookings {
		out = append(out, rec.result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// slotsLocked builds the day's grid: every half hour between firstSlot and
// lastSlot that falls inside opening hours, doctors assigned round-robin.
// Callers hold b.mu.
func (b *Backend) slotsLocked(branch catalog.Branch, date time.Time) []catalog.TimeSlot {
	doctors := b.doctorsAt(branch.ID)
	dateStr := date.Format(catalog.DateLayout)
	now := b.now()
	today := now.Format(catalog.DateLayout)

	start, _ := time.Parse(catalog.TimeLayout, firstSlot)
	end, _ := time.Parse(catalog.TimeLayout, lastSlot)

	slots := []catalog.TimeSlot{}
	for at := start; !at.After(end); at = at.Add(slotStep) {
		clock := at.Format(catalog.TimeLayout)
		if !clinic.IsOpenAt(branch.OperatingHours, date, clock) {
			continue
		}
		slot := catalog.TimeSlot{Time: clock, Available: true}
		if len(doctors) > 0 {
			d := doctors[len(slots)%len(doctors)]
			slot.Doctor = &catalog.SlotDoctor{ID: d.ID, Name: d.Name, Specialization: d.Specialization}
		}
		switch {
		case dateStr < today || (dateStr == today && clock <= now.Format(catalog.TimeLayout)):
			slot.Available, slot.Reason = false, "past"
		case b.taken[slotKey{branchID: branch.ID, date: dateStr, time: clock}] != "":
			slot.Available, slot.Reason = false, "booked"
		}
		slots = append(slots, slot)
	}
	return slots
}

func (b *Backend) branch(w http.ResponseWriter, r *http.Request) (catalog.Branch, bool) {
	ref := chi.URLParam(r, "ref")
	for _, br := range b.branches {
		if strings.EqualFold(br.Slug, ref) || strconv.FormatInt(br.ID, 10) == ref {
			return br, true
		}
	}
	respond.Error(w, http.StatusNotFound, "Branch not found.")
	return catalog.Branch{}, false
}

func (b *Backend) branchByID(id int64) (catalog.Branch, bool) {
	for _, br := range b.branches {
		if br.ID == id {
			return br, true
		}
	}
	return catalog.Branch{}, false
}

func (b *Backend) service(id int64) (catalog.Service, bool) {
	for _, s := range b.services {
		if s.ID == id {
			return s, true
		}
	}
	return catalog.Service{}, false
}

func (b *Backend) doctorsAt(branchID int64) []catalog.Doctor {
	out := []catalog.Doctor{}
	for _, d := range b.doctors {
		if d.BranchID != nil && *d.BranchID == branchID {
			out = append(out, d)
		}
	}
	return out
}

func (b *Backend) servicesFor(category string, branchID int64) []catalog.Service {
	out := []catalog.Service{}
	for _, s := range b.services {
		if category != "" && !strings.EqualFold(s.Category, category) {
			continue
		}
		if branchID > 0 && !s.OfferedAt(branchID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func checkRequest(req catalog.BookingRequest) map[string][]string {
	errs := map[string][]string{}
	required := func(field, value, msg string) {
		if strings.TrimSpace(value) == "" {
			errs[field] = append(errs[field], msg)
		}
	}
	if req.BranchID <= 0 {
		errs["branch_id"] = []string{"The branch field is required."}
	}
	if req.ServiceID <= 0 {
		errs["service_id"] = []string{"The service field is required."}
	}
	required("patient_name", req.PatientName, "The patient name field is required.")
	required("patient_phone", req.PatientPhone, "The patient phone field is required.")
	required("patient_email", req.PatientEmail, "The patient email field is required.")
	if !catalog.ValidDate(req.AppointmentDate) {
		errs["appointment_date"] = []string{"The appointment date must be a date in YYYY-MM-DD format."}
	}
	if !catalog.ValidTime(req.AppointmentTime) {
		errs["appointment_time"] = []string{"The appointment time must be in HH:mm format."}
	}
	return errs
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	date, err := time.Parse(catalog.DateLayout, raw)
	if err != nil {
		respond.FieldErrors(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"date": {"The date must be in YYYY-MM-DD format."}})
		return time.Time{}, false
	}
	return date, true
}

func fieldError(w http.ResponseWriter, field, msg string) {
	respond.FieldErrors(w, http.StatusUnprocessableEntity, "The given data was invalid.",
		map[string][]string{field: {msg}})
}
