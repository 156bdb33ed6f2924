package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// SubmissionState is the workflow state.
type SubmissionState string

const (
	SubmissionIdle         SubmissionState = "idle"
	SubmissionValidating   SubmissionState = "validating"
	SubmissionSubmitting   SubmissionState = "submitting"
	SubmissionSucceeded    SubmissionState = "succeeded"
	SubmissionFieldErrors  SubmissionState = "field-errors"
	SubmissionNetworkError SubmissionState = "network-error"
)

// Editable reports whether the form accepts edits and a new submit.
func (s SubmissionState) Editable() bool {
	return s != SubmissionValidating && s != SubmissionSubmitting
}

// Outcome is the result of one Submit.
type Outcome struct {
	State       SubmissionState        `json:"state"`
	Reference   string                 `json:"reference,omitempty"`
	Result      *catalog.BookingResult `json:"result,omitempty"`
	Message     string                 `json:"message,omitempty"`
	FieldErrors catalog.FieldErrors    `json:"errors,omitempty"`
}

// Gateway is the remote side of the workflow.
type Gateway interface {
	CreateBooking(ctx context.Context, req catalog.BookingRequest) catalog.Envelope[catalog.BookingResult]
	CancelBooking(ctx context.Context, reference string) catalog.Envelope[catalog.CancelResult]
}

// SubmissionObserver records workflow outcomes.
type SubmissionObserver interface {
	ObserveSubmission(outcome string)
}

// Workflow runs validation and submission for one session. At most one
// submission is in flight at a time.
type Workflow struct {
	gateway  Gateway
	observer SubmissionObserver
	logger   *logging.Logger

	inFlight atomic.Bool
	mu       sync.Mutex
	state    SubmissionState
	last     *Outcome
}

// NewWorkflow creates an idle workflow. observer may be nil.
func NewWorkflow(gateway Gateway, observer SubmissionObserver, logger *logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{gateway: gateway, observer: observer, logger: logger, state: SubmissionIdle}
}

// State returns the current state.
func (w *Workflow) State() SubmissionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Last returns the most recent terminal outcome, if any.
func (w *Workflow) Last() *Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return nil
	}
	cp := *w.last
	return &cp
}

func (w *Workflow) setState(s SubmissionState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Submit validates sel and, if valid, posts the booking. Validation failures
// return a *ValidationError before any network call and leave sel untouched.
// On success sel is reset. Field and network errors leave sel untouched.
// A call made while another is pending returns ErrSubmissionInFlight.
func (w *Workflow) Submit(ctx context.Context, sel *Selection) (Outcome, error) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return Outcome{State: SubmissionSubmitting}, ErrSubmissionInFlight
	}
	defer w.inFlight.Store(false)

	w.setState(SubmissionValidating)
	req, err := NewBookingRequest(*sel)
	if err != nil {
		w.setState(SubmissionIdle)
		w.observe("validation-error")
		return Outcome{State: SubmissionIdle}, err
	}

	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("booking.branch_id", req.BranchID),
		attribute.Int64("booking.service_id", req.ServiceID),
		attribute.String("booking.date", req.AppointmentDate),
		attribute.String("booking.time", req.AppointmentTime),
	)

	w.setState(SubmissionSubmitting)
	env := w.gateway.CreateBooking(ctx, req)

	var out Outcome
	switch {
	case env.Success:
		result := env.Data
		out = Outcome{State: SubmissionSucceeded, Reference: result.Reference, Result: &result}
		sel.Reset()
		w.logger.Info("booking submitted",
			"reference", result.Reference, "branch_id", req.BranchID, "date", req.AppointmentDate, "time", req.AppointmentTime)
	case env.HasFieldErrors():
		out = Outcome{State: SubmissionFieldErrors, Message: env.Message, FieldErrors: SelectionErrors(env.Errors)}
		if strings.TrimSpace(out.Message) == "" {
			out.Message = catalog.MessageRejected
		}
		w.logger.Info("booking rejected with field errors", "branch_id", req.BranchID, "fields", env.Errors.Fields())
	default:
		out = Outcome{State: SubmissionNetworkError, Message: env.Message}
		switch {
		case env.Failure == catalog.FailureRemote:
			out.Message = MessageSubmitRetry
		case strings.TrimSpace(out.Message) == "":
			out.Message = catalog.MessageUnreachable
		}
		w.logger.Warn("booking submission failed",
			"branch_id", req.BranchID, "failure", string(env.Failure), "status", env.StatusCode, "remote_message", env.Message)
	}

	span.SetAttributes(attribute.String("booking.outcome", string(out.State)))
	w.mu.Lock()
	w.state = out.State
	w.last = &out
	w.mu.Unlock()
	w.observe(string(out.State))
	return out, nil
}

// CancelOutcome is the result of Cancel.
type CancelOutcome struct {
	Success     bool                `json:"success"`
	Reference   string              `json:"reference"`
	Status      string              `json:"status,omitempty"`
	Message     string              `json:"message,omitempty"`
	FieldErrors catalog.FieldErrors `json:"errors,omitempty"`
	Failure     catalog.FailureKind `json:"-"`
	StatusCode  int                 `json:"-"`
}

// Cancel cancels a confirmed booking by reference. It shares no state with
// Submit.
func (w *Workflow) Cancel(ctx context.Context, reference string) (CancelOutcome, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return CancelOutcome{}, ErrReferenceRequired
	}

	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("booking.reference", reference))

	env := w.gateway.CancelBooking(ctx, reference)
	out := CancelOutcome{
		Success:     env.Success,
		Reference:   reference,
		Status:      env.Data.Status,
		Message:     env.Message,
		FieldErrors: env.Errors,
		Failure:     env.Failure,
		StatusCode:  env.StatusCode,
	}
	if !env.Success {
		w.logger.Warn("booking cancel failed", "reference", reference, "failure", string(env.Failure), "status", env.StatusCode)
	}
	return out, nil
}

func (w *Workflow) observe(outcome string) {
	if w.observer != nil {
		w.observer.ObserveSubmission(outcome)
	}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
