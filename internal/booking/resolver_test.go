package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking/internal/catalog"
)

type availabilityCall struct {
	branchID  int64
	date      string
	serviceID int64
}

type fakeSource struct {
	mu    sync.Mutex
	env   catalog.Envelope[catalog.AvailabilityDay]
	calls []availabilityCall
}

func (f *fakeSource) GetAvailability(_ context.Context, branchID int64, date string, serviceID int64) catalog.Envelope[catalog.AvailabilityDay] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, availabilityCall{branchID, date, serviceID})
	return f.env
}

type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *stateRecorder) ObserveResolution(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) ObserveSubmission(outcome string) {
	r.ObserveResolution(outcome)
}

func doc(id int64) *catalog.SlotDoctor {
	return &catalog.SlotDoctor{ID: id, Name: "Dr. " + string(rune('A'+id))}
}

func openDay(slots ...catalog.TimeSlot) catalog.AvailabilityDay {
	return catalog.AvailabilityDay{
		IsOpen:         true,
		OperatingHours: catalog.HoursSummary{Open: "09:00", Close: "17:00"},
		Slots:          slots,
	}
}

func ok(day catalog.AvailabilityDay) catalog.Envelope[catalog.AvailabilityDay] {
	return catalog.Envelope[catalog.AvailabilityDay]{Success: true, Data: day, StatusCode: 200}
}

func TestResolver_UnresolvedWithoutBranchOrDate(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src, nil, nil)

	for _, key := range []AvailabilityKey{{}, {BranchID: 3}, {Date: "2025-06-10"}} {
		got := r.Resolve(context.Background(), key)
		assert.Equal(t, StateUnresolved, got.State)
		assert.Empty(t, got.Selectable)
	}
	assert.Empty(t, src.calls, "unresolved keys never fetch")
}

func TestResolver_ClosedDay(t *testing.T) {
	src := &fakeSource{env: ok(catalog.AvailabilityDay{
		IsOpen: false,
		Slots:  []catalog.TimeSlot{{Time: "10:00", Available: true}},
	})}
	obs := &stateRecorder{}
	r := NewResolver(src, obs, nil)

	got := r.Resolve(context.Background(), AvailabilityKey{BranchID: 3, Date: "2025-06-15"})
	assert.Equal(t, StateClosed, got.State)
	assert.Empty(t, got.Available)
	assert.Empty(t, got.Unavailable)
	assert.Empty(t, got.Selectable)
	assert.Zero(t, got.Count)
	_, selectable := got.Slot("10:00")
	assert.False(t, selectable)

	require.Len(t, src.calls, 1)
	assert.Equal(t, availabilityCall{3, "2025-06-15", 0}, src.calls[0])
	assert.Equal(t, []string{"closed"}, obs.states)
}

func TestResolver_DoctorFilter(t *testing.T) {
	day := openDay(
		catalog.TimeSlot{Time: "09:00", Available: false, Doctor: doc(9)},
		catalog.TimeSlot{Time: "09:30", Available: true, Doctor: doc(9)},
		catalog.TimeSlot{Time: "10:00", Available: false},
		catalog.TimeSlot{Time: "10:30", Available: true, Doctor: doc(4)},
		catalog.TimeSlot{Time: "11:00", Available: false, Reason: "break"},
	)
	r := NewResolver(&fakeSource{env: ok(day)}, nil, nil)

	unfiltered := r.Resolve(context.Background(), AvailabilityKey{BranchID: 3, Date: "2025-06-10", ServiceID: 7})
	assert.Equal(t, StateAvailable, unfiltered.State)
	assert.Equal(t, 2, unfiltered.Count)

	got := r.Resolve(context.Background(), AvailabilityKey{BranchID: 3, Date: "2025-06-10", ServiceID: 7, DoctorID: 9})
	assert.Equal(t, StateAvailable, got.State)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Selectable, 1)
	assert.Equal(t, "09:30", got.Selectable[0].Time)
	assert.Len(t, got.Available, 2)
	assert.Len(t, got.Unavailable, 3)
	assert.Equal(t, "17:00", got.Hours.Close)
}

func TestResolver_NoSlots(t *testing.T) {
	tests := []struct {
		name string
		day  catalog.AvailabilityDay
		key  AvailabilityKey
	}{
		{"open with empty list", openDay(), AvailabilityKey{BranchID: 1, Date: "2025-06-10"}},
		{"all unavailable", openDay(catalog.TimeSlot{Time: "09:00"}), AvailabilityKey{BranchID: 1, Date: "2025-06-10"}},
		{"filter excludes doctorless", openDay(catalog.TimeSlot{Time: "09:00", Available: true}), AvailabilityKey{BranchID: 1, Date: "2025-06-10", DoctorID: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(&fakeSource{env: ok(tc.day)}, nil, nil)
			got := r.Resolve(context.Background(), tc.key)
			assert.Equal(t, StateNoSlots, got.State)
			assert.Zero(t, got.Count)
		})
	}
}

func TestResolver_NetworkError(t *testing.T) {
	tests := []struct {
		name string
		env  catalog.Envelope[catalog.AvailabilityDay]
		want string
	}{
		{"transport", catalog.Envelope[catalog.AvailabilityDay]{Message: catalog.MessageTimeout, Failure: catalog.FailureTransport}, catalog.MessageTimeout},
		{"decode", catalog.Envelope[catalog.AvailabilityDay]{Message: catalog.MessageBadResponse, Failure: catalog.FailureDecode}, catalog.MessageBadResponse},
		{"no message", catalog.Envelope[catalog.AvailabilityDay]{Failure: catalog.FailureTransport}, catalog.MessageUnreachable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(&fakeSource{env: tc.env}, nil, nil)
			got := r.Resolve(context.Background(), AvailabilityKey{BranchID: 3, Date: "2025-06-10"})
			assert.Equal(t, StateNetworkError, got.State)
			assert.Equal(t, tc.want, got.Message)
			assert.Empty(t, got.Selectable)
		})
	}
}

func TestClassify_PartitionIsDisjointCover(t *testing.T) {
	slots := []catalog.TimeSlot{
		{Time: "09:00", Available: true},
		{Time: "09:30", Available: false},
		{Time: "10:00", Available: true, Doctor: doc(1)},
		{Time: "10:30", Available: false, Doctor: doc(1)},
		{Time: "11:00", Available: true},
	}
	got := Classify(AvailabilityKey{BranchID: 1, Date: "2025-06-10"}, openDay(slots...))

	assert.Len(t, got.Available, 3)
	assert.Len(t, got.Unavailable, 2)
	seen := map[string]int{}
	for _, s := range got.Available {
		assert.True(t, s.Available)
		seen[s.Time]++
	}
	for _, s := range got.Unavailable {
		assert.False(t, s.Available)
		seen[s.Time]++
	}
	assert.Len(t, seen, len(slots))
	for clock, n := range seen {
		assert.Equal(t, 1, n, clock)
	}
}

func TestFilterByDoctor(t *testing.T) {
	slots := []catalog.TimeSlot{
		{Time: "09:00", Available: true, Doctor: doc(2)},
		{Time: "09:30", Available: true},
		{Time: "10:00", Available: true, Doctor: doc(3)},
	}
	assert.Len(t, FilterByDoctor(slots, 0), 3)
	got := FilterByDoctor(slots, 2)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Doctor.ID)
	assert.Empty(t, FilterByDoctor(slots, 7))
}

func TestLoadingState(t *testing.T) {
	key := AvailabilityKey{BranchID: 1, Date: "2025-06-10"}
	got := Loading(key)
	assert.Equal(t, StateLoading, got.State)
	assert.Equal(t, key, got.Key)
	assert.NotNil(t, got.Selectable)
}
