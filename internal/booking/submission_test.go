package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []catalog.BookingRequest
	cancels  []string
	env      catalog.Envelope[catalog.BookingResult]
	cancel   catalog.Envelope[catalog.CancelResult]
	block    chan struct{}
	entered  chan struct{}
}

func (g *fakeGateway) CreateBooking(_ context.Context, req catalog.BookingRequest) catalog.Envelope[catalog.BookingResult] {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	block, entered := g.block, g.entered
	g.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	return g.env
}

func (g *fakeGateway) CancelBooking(_ context.Context, reference string) catalog.Envelope[catalog.CancelResult] {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, reference)
	return g.cancel
}

func (g *fakeGateway) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func confirmed(reference string) catalog.Envelope[catalog.BookingResult] {
	return catalog.Envelope[catalog.BookingResult]{
		Success:    true,
		StatusCode: 201,
		Data: catalog.BookingResult{
			ID:        41,
			Reference: reference,
			Status:    "confirmed",
			Branch:    catalog.BranchRef{ID: 3, Name: "KL Central"},
		},
	}
}

func TestWorkflow_SubmitSucceedsAndResets(t *testing.T) {
	gw := &fakeGateway{env: confirmed("BK-0041")}
	obs := &stateRecorder{}
	wf := NewWorkflow(gw, obs, nil)
	sel := filledSelection()
	sel.DoctorID = 0

	out, err := wf.Submit(context.Background(), &sel)
	require.NoError(t, err)
	assert.Equal(t, SubmissionSucceeded, out.State)
	assert.Equal(t, "BK-0041", out.Reference)
	require.NotNil(t, out.Result)
	assert.Equal(t, int64(41), out.Result.ID)

	assert.True(t, sel.IsZero(), "selection resets after success")
	assert.Equal(t, SubmissionSucceeded, wf.State())
	assert.Equal(t, "BK-0041", wf.Last().Reference)
	assert.Equal(t, []string{"succeeded"}, obs.states)

	require.Equal(t, 1, gw.requestCount())
	req := gw.requests[0]
	assert.Equal(t, "60123456789", req.PatientPhone)
	assert.Equal(t, "ana@x.com", req.PatientEmail)
	assert.Nil(t, req.DoctorID)
}

func TestWorkflow_ValidationErrorSkipsNetwork(t *testing.T) {
	gw := &fakeGateway{env: confirmed("BK-0041")}
	wf := NewWorkflow(gw, nil, nil)
	sel := filledSelection()
	sel.Contact.Email = "not-an-email"
	before := sel

	out, err := wf.Submit(context.Background(), &sel)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmailInvalid)
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, FieldEmail, ve.Field)

	assert.Equal(t, SubmissionIdle, out.State)
	assert.Equal(t, before, sel)
	assert.Zero(t, gw.requestCount())
	assert.Equal(t, SubmissionIdle, wf.State())
	assert.Nil(t, wf.Last())
}

func TestWorkflow_FieldErrorsKeepSelection(t *testing.T) {
	gw := &fakeGateway{env: catalog.Envelope[catalog.BookingResult]{
		Message:    "Validation failed",
		Errors:     catalog.FieldErrors{"appointment_time": {"Slot no longer available"}},
		Failure:    catalog.FailureRemote,
		StatusCode: 422,
	}}
	wf := NewWorkflow(gw, nil, nil)
	sel := filledSelection()
	before := sel

	out, err := wf.Submit(context.Background(), &sel)
	require.NoError(t, err)
	assert.Equal(t, SubmissionFieldErrors, out.State)
	assert.Equal(t, "Slot no longer available", out.FieldErrors.First(FieldTime))
	assert.NotContains(t, out.FieldErrors, "appointment_time")
	assert.Equal(t, before, sel, "time and contact survive a field error")
	assert.True(t, wf.State().Editable())

	// The user picks a new time and resubmits without re-entering contact fields.
	gw.env = confirmed("BK-0042")
	require.True(t, sel.SelectSlot(catalog.TimeSlot{Time: "11:00", Available: true}))
	out, err = wf.Submit(context.Background(), &sel)
	require.NoError(t, err)
	assert.Equal(t, SubmissionSucceeded, out.State)
	assert.Equal(t, "11:00", gw.requests[1].AppointmentTime)
	assert.Equal(t, "Ana", gw.requests[1].PatientName)
}

func TestWorkflow_NetworkErrorKeepsSelection(t *testing.T) {
	tests := []struct {
		name string
		env  catalog.Envelope[catalog.BookingResult]
		want string
	}{
		{"timeout", catalog.Envelope[catalog.BookingResult]{Message: catalog.MessageTimeout, Failure: catalog.FailureTransport}, catalog.MessageTimeout},
		{"decode", catalog.Envelope[catalog.BookingResult]{Message: catalog.MessageBadResponse, Failure: catalog.FailureDecode}, catalog.MessageBadResponse},
		{"remote without errors", catalog.Envelope[catalog.BookingResult]{Message: "engine: slot lock timeout", Failure: catalog.FailureRemote, StatusCode: 409}, MessageSubmitRetry},
		{"no message", catalog.Envelope[catalog.BookingResult]{Failure: catalog.FailureTransport}, catalog.MessageUnreachable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wf := NewWorkflow(&fakeGateway{env: tc.env}, nil, nil)
			sel := filledSelection()
			before := sel

			out, err := wf.Submit(context.Background(), &sel)
			require.NoError(t, err)
			assert.Equal(t, SubmissionNetworkError, out.State)
			assert.Equal(t, tc.want, out.Message)
			assert.Empty(t, out.FieldErrors)
			assert.Equal(t, before, sel)
		})
	}
}

func TestWorkflow_RejectsConcurrentSubmit(t *testing.T) {
	gw := &fakeGateway{
		env:     confirmed("BK-0041"),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	wf := NewWorkflow(gw, nil, nil)
	first := filledSelection()

	done := make(chan Outcome)
	go func() {
		out, _ := wf.Submit(context.Background(), &first)
		done <- out
	}()

	select {
	case <-gw.entered:
	case <-time.After(time.Second):
		t.Fatal("first submit never reached the gateway")
	}
	assert.Equal(t, SubmissionSubmitting, wf.State())
	assert.False(t, wf.State().Editable())

	second := filledSelection()
	out, err := wf.Submit(context.Background(), &second)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, SubmissionSubmitting, out.State)

	close(gw.block)
	assert.Equal(t, SubmissionSucceeded, (<-done).State)
	assert.Equal(t, 1, gw.requestCount())
	assert.False(t, second.IsZero())
}

func TestWorkflow_Cancel(t *testing.T) {
	gw := &fakeGateway{cancel: catalog.Envelope[catalog.CancelResult]{
		Success: true, Data: catalog.CancelResult{Reference: "BK-0041", Status: "cancelled"},
	}}
	wf := NewWorkflow(gw, nil, nil)

	out, err := wf.Cancel(context.Background(), " BK-0041 ")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "cancelled", out.Status)
	assert.Equal(t, []string{"BK-0041"}, gw.cancels)

	_, err = wf.Cancel(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrReferenceRequired)

	gw.cancel = catalog.Envelope[catalog.CancelResult]{Message: "Booking not found", Failure: catalog.FailureRemote, StatusCode: 404}
	out, err = wf.Cancel(context.Background(), "BK-9999")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 404, out.StatusCode)
	assert.Equal(t, "Booking not found", out.Message)
}
