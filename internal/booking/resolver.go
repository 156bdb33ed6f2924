package booking

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("clinicbooking.internal.booking")

// AvailabilityState classifies a resolved day.
type AvailabilityState string

const (
	StateUnresolved   AvailabilityState = "unresolved"
	StateLoading      AvailabilityState = "loading"
	StateClosed       AvailabilityState = "closed"
	StateNoSlots      AvailabilityState = "no-slots"
	StateAvailable    AvailabilityState = "available"
	StateNetworkError AvailabilityState = "network-error"
)

// Availability is the resolver output for one key.
type Availability struct {
	Key   AvailabilityKey      `json:"key"`
	State AvailabilityState    `json:"state"`
	Hours catalog.HoursSummary `json:"operating_hours"`
	// Available and Unavailable partition the day's slots by their available flag.
	Available   []catalog.TimeSlot `json:"available"`
	Unavailable []catalog.TimeSlot `json:"unavailable"`
	// Selectable is Available narrowed by the doctor filter.
	Selectable []catalog.TimeSlot `json:"selectable"`
	Count      int                `json:"count"`
	Message    string             `json:"message,omitempty"`
}

// Slot returns the selectable slot at a time of day.
func (a Availability) Slot(clock string) (catalog.TimeSlot, bool) {
	for _, s := range a.Selectable {
		if s.Time == clock {
			return s, true
		}
	}
	return catalog.TimeSlot{}, false
}

// Unresolved is the state for a key missing branch or date.
func Unresolved(key AvailabilityKey) Availability {
	return emptyAvailability(key, StateUnresolved)
}

// Loading is the state emitted when a fetch starts.
func Loading(key AvailabilityKey) Availability {
	return emptyAvailability(key, StateLoading)
}

func emptyAvailability(key AvailabilityKey, state AvailabilityState) Availability {
	return Availability{
		Key:         key,
		State:       state,
		Available:   []catalog.TimeSlot{},
		Unavailable: []catalog.TimeSlot{},
		Selectable:  []catalog.TimeSlot{},
	}
}

// Classify turns a fetched day into an Availability. A closed day is closed
// whatever slots it carries.
func Classify(key AvailabilityKey, day catalog.AvailabilityDay) Availability {
	if !day.IsOpen {
		out := emptyAvailability(key, StateClosed)
		out.Hours = day.OperatingHours
		return out
	}

	out := emptyAvailability(key, StateNoSlots)
	out.Hours = day.OperatingHours
	for _, slot := range day.Slots {
		if slot.Available {
			out.Available = append(out.Available, slot)
		} else {
			out.Unavailable = append(out.Unavailable, slot)
		}
	}
	out.Selectable = FilterByDoctor(out.Available, key.DoctorID)
	out.Count = len(out.Selectable)
	if out.Count > 0 {
		out.State = StateAvailable
	}
	return out
}

// FilterByDoctor keeps slots assigned to doctorID. Slots without a doctor are
// dropped once a filter is active. Zero means no filter.
func FilterByDoctor(slots []catalog.TimeSlot, doctorID int64) []catalog.TimeSlot {
	out := make([]catalog.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if doctorID > 0 && (s.Doctor == nil || s.Doctor.ID != doctorID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AvailabilitySource fetches one day of availability.
type AvailabilitySource interface {
	GetAvailability(ctx context.Context, branchID int64, date string, serviceID int64) catalog.Envelope[catalog.AvailabilityDay]
}

// ResolutionObserver records resolver outcomes.
type ResolutionObserver interface {
	ObserveResolution(state string)
}

// Resolver fetches and classifies availability. It holds no per-session state.
type Resolver struct {
	source   AvailabilitySource
	observer ResolutionObserver
	logger   *logging.Logger
}

// NewResolver creates a resolver. observer may be nil.
func NewResolver(source AvailabilitySource, observer ResolutionObserver, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{source: source, observer: observer, logger: logger}
}

// Resolve runs one fetch for key. Keys without branch or date are unresolved
// and never reach the network. Failures never fall back to earlier results.
func (r *Resolver) Resolve(ctx context.Context, key AvailabilityKey) Availability {
	if !key.Ready() {
		return Unresolved(key)
	}

	ctx, span := bookingTracer.Start(ctx, "booking.resolve_availability")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("booking.branch_id", key.BranchID),
		attribute.String("booking.date", key.Date),
		attribute.Int64("booking.service_id", key.ServiceID),
		attribute.Int64("booking.doctor_id", key.DoctorID),
	)

	env := r.source.GetAvailability(ctx, key.BranchID, key.Date, key.ServiceID)
	var out Availability
	if env.Success {
		out = Classify(key, env.Data)
	} else {
		out = emptyAvailability(key, StateNetworkError)
		out.Message = env.Message
		if out.Message == "" {
			out.Message = catalog.MessageUnreachable
		}
		r.logger.Warn("availability fetch failed",
			"branch_id", key.BranchID, "date", key.Date, "failure", string(env.Failure), "status", env.StatusCode)
	}

	span.SetAttributes(attribute.String("booking.availability_state", string(out.State)), attribute.Int("booking.slot_count", out.Count))
	if r.observer != nil {
		r.observer.ObserveResolution(string(out.State))
	}
	return out
}
