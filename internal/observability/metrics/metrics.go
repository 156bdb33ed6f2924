package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "clinicbooking"

	// CatalogLatencyName is the fully-qualified catalog request histogram name.
	CatalogLatencyName = namespace + "_catalog_request_duration_seconds"
	// SubmissionsName is the fully-qualified booking submission counter name.
	SubmissionsName = namespace + "_booking_submissions_total"
	// ResolutionsName is the fully-qualified availability resolution counter name.
	ResolutionsName = namespace + "_booking_availability_resolutions_total"
)

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	resolutions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	staleDiscarded prometheus.Counter
	catalogLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "availability_resolutions_total",
			Help:      "Availability resolutions by resulting state",
		}, []string{"state"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "stale_availability_discarded_total",
			Help:      "Availability responses dropped because the selection changed while in flight",
		}),
		catalogLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote clinic API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.resolutions, m.submissions, m.staleDiscarded, m.catalogLatency)
	return m
}

// ObserveResolution counts one availability resolution.
func (m *BookingMetrics) ObserveResolution(state string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(state).Inc()
}

// ObserveSubmission counts one submission attempt by its terminal outcome.
func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

// ObserveCatalogRequest satisfies catalog.RequestObserver.
func (m *BookingMetrics) ObserveCatalogRequest(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.catalogLatency.WithLabelValues(operation, outcome).Observe(seconds)
}
