package clinic

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/internal/http/respond"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Remote is the passthrough subset of the catalog client.
type Remote interface {
	ListBranchDoctors(ctx context.Context, branchRef string) catalog.Envelope[[]catalog.Doctor]
	ListBranchServices(ctx context.Context, branchID int64) catalog.Envelope[[]catalog.Service]
	ListDoctors(ctx context.Context, branchID int64) catalog.Envelope[[]catalog.Doctor]
}

// Handler serves the catalog read endpoints under /api/catalog.
type Handler struct {
	dir    *Directory
	remote Remote
	logger *logging.Logger
	now    func() time.Time
}

// NewHandler creates a catalog HTTP handler.
func NewHandler(dir *Directory, remote Remote, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dir: dir, remote: remote, logger: logger, now: time.Now}
}

// Routes returns a chi router with the catalog routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/branches", h.ListBranches)
	r.Get("/branches/{ref}", h.GetBranch)
	r.Get("/branches/{ref}/calendar", h.GetCalendar)
	r.Get("/branches/{ref}/doctors", h.ListBranchDoctors)
	r.Get("/branches/{ref}/services", h.ListBranchServices)
	r.Get("/doctors", h.ListDoctors)
	r.Get("/services", h.ListServices)
	r.Get("/categories", h.ListCategories)
	r.Post("/refresh", h.Refresh)
	return r
}

// ListBranches returns all branches from the directory.
// GET /api/catalog/branches
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, snap.Branches)
}

// GetBranch returns one branch by slug or id.
// GET /api/catalog/branches/{ref}
func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, branch)
}

// GetCalendar returns per-date open/closed state for the date picker.
// GET /api/catalog/branches/{ref}/calendar?from=YYYY-MM-DD&days=N
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}

	from := h.now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse(catalog.DateLayout, raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	days := 14
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > MaxCalendarDays {
			respond.Error(w, http.StatusBadRequest, "days must be 1-"+strconv.Itoa(MaxCalendarDays))
			return
		}
		days = parsed
	}
	respond.OK(w, http.StatusOK, Calendar(branch, from, days))
}

// ListBranchDoctors proxies the remote branch doctors list.
// GET /api/catalog/branches/{ref}/doctors
func (h *Handler) ListBranchDoctors(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	writeEnvelope(w, h.remote.ListBranchDoctors(r.Context(), ref))
}

// ListBranchServices proxies the remote branch services list.
// GET /api/catalog/branches/{ref}/services
func (h *Handler) ListBranchServices(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, h.remote.ListBranchServices(r.Context(), branch.ID))
}

// ListDoctors proxies the remote doctors list.
// GET /api/catalog/doctors?branch_id=
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	branchID, ok := optionalID(w, r, "branch_id")
	if !ok {
		return
	}
	writeEnvelope(w, h.remote.ListDoctors(r.Context(), branchID))
}

// ListServices filters the directory's services.
// GET /api/catalog/services?category=&branch_id=
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	branchID, ok := optionalID(w, r, "branch_id")
	if !ok {
		return
	}
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	services := snap.FilterServices(catalog.ServiceFilter{
		Category: r.URL.Query().Get("category"),
		BranchID: branchID,
	})
	out := make([]serviceView, 0, len(services))
	for _, svc := range services {
		out = append(out, serviceView{Service: svc, PriceLabel: svc.PriceLabel(priceCurrency)})
	}
	respond.OK(w, http.StatusOK, out)
}

const priceCurrency = "RM"

// serviceView is a Service with its display price.
type serviceView struct {
	catalog.Service
	PriceLabel string `json:"price_label,omitempty"`
}

// ListCategories returns the distinct service categories.
// GET /api/catalog/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, snap.Categories())
}

// Refresh drops the cached directory and reloads it from the remote API.
// POST /api/catalog/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.Reload(r.Context()); err != nil {
		h.logger.Warn("catalog refresh failed", "error", err)
		respond.Error(w, http.StatusBadGateway, catalog.MessageUnreachable)
		return
	}
	snap := h.dir.Snapshot()
	respond.OK(w, http.StatusOK, map[string]any{
		"branches":  len(snap.Branches),
		"services":  len(snap.Services),
		"loaded_at": snap.LoadedAt,
	})
}

func (h *Handler) snapshot(w http.ResponseWriter) (*Snapshot, bool) {
	snap, err := h.dir.Current()
	if err != nil {
		respond.Error(w, http.StatusServiceUnavailable, "Clinic information is not available yet. Please try again.")
		return nil, false
	}
	return snap, true
}

func (h *Handler) branch(w http.ResponseWriter, r *http.Request) (catalog.Branch, bool) {
	snap, ok := h.snapshot(w)
	if !ok {
		return catalog.Branch{}, false
	}
	branch, err := snap.Branch(chi.URLParam(r, "ref"))
	if errors.Is(err, ErrBranchNotFound) {
		respond.Error(w, http.StatusNotFound, "Branch not found")
		return catalog.Branch{}, false
	}
	return branch, true
}

func optionalID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeEnvelope relays a remote envelope. Remote 4xx keep their status; every
// other failure is a 502.
func writeEnvelope[T any](w http.ResponseWriter, env catalog.Envelope[T]) {
	if env.Success {
		respond.OK(w, http.StatusOK, env.Data)
		return
	}
	status := http.StatusBadGateway
	if env.Failure == catalog.FailureRemote && env.StatusCode >= 400 && env.StatusCode < 500 {
		status = env.StatusCode
	}
	respond.FieldErrors(w, status, env.Message, env.Errors)
}
