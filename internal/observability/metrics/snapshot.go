package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// LatencyBucket is one non-cumulative histogram bucket.
type LatencyBucket struct {
	LeSeconds float64 `json:"le_seconds"`
	Label     string  `json:"label,omitempty"`
	Count     int64   `json:"count"`
}

// LatencySnapshot summarizes the successful catalog request histogram.
type LatencySnapshot struct {
	Total   int64           `json:"total"`
	P90Ms   float64         `json:"p90_ms"`
	P95Ms   float64         `json:"p95_ms"`
	Buckets []LatencyBucket `json:"buckets"`
}

// Stats is the operational summary served at /api/stats.
type Stats struct {
	Submissions    map[string]int64 `json:"submissions"`
	Resolutions    map[string]int64 `json:"availability_resolutions"`
	CatalogLatency LatencySnapshot  `json:"catalog_latency"`
}

// Snapshot reads the booking metrics out of a gatherer.
func Snapshot(gatherer prometheus.Gatherer) Stats {
	stats := Stats{
		Submissions: map[string]int64{},
		Resolutions: map[string]int64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return stats
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case SubmissionsName:
			sumCounters(mf, "outcome", stats.Submissions)
		case ResolutionsName:
			sumCounters(mf, "state", stats.Resolutions)
		case CatalogLatencyName:
			stats.CatalogLatency = snapshotLatency(mf)
		}
	}
	return stats
}

// NewStatsHandler serves Snapshot as JSON.
func NewStatsHandler(gatherer prometheus.Gatherer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Snapshot(gatherer))
	})
}

func sumCounters(mf *dto.MetricFamily, label string, into map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		into[labelValue(metric, label)] += int64(metric.GetCounter().GetValue())
	}
}

// snapshotLatency aggregates histograms across operations, keeping only outcome="ok".
func snapshotLatency(family *dto.MetricFamily) LatencySnapshot {
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range family.Metric {
		if metric == nil || labelValue(metric, "outcome") != "ok" {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
		// The +Inf bucket is implicit in client_golang output.
		cumulativeByUpper[math.Inf(1)] += h.GetSampleCount()
	}

	if sampleCount == 0 {
		return LatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]LatencyBucket, 0, len(uppers))
	var prev uint64
	var lastFiniteUpper float64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		count := int64(cum)
		if cum >= prev {
			count = int64(cum - prev)
		}
		prev = cum
		if math.IsInf(upper, 1) {
			if count > 0 {
				buckets = append(buckets, LatencyBucket{
					LeSeconds: lastFiniteUpper,
					Label:     ">" + formatSeconds(lastFiniteUpper),
					Count:     count,
				})
			}
			continue
		}
		lastFiniteUpper = upper
		buckets = append(buckets, LatencyBucket{LeSeconds: upper, Count: count})
	}

	return LatencySnapshot{
		Total:   int64(sampleCount),
		P90Ms:   histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95Ms:   histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		Buckets: buckets,
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// histogramQuantile interpolates linearly inside the bucket holding the target rank.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 || len(uppers) == 0 {
		return 0
	}

	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 {
			return upper
		}
		fraction := math.Min(math.Max((target-prevCum)/bucketCount, 0), 1)
		return prevUpper + fraction*(upper-prevUpper)
	}
	return prevUpper
}

func formatSeconds(seconds float64) string {
	switch {
	case seconds <= 0:
		return "0s"
	case seconds < 1:
		return fmt.Sprintf("%.2fs", seconds)
	case seconds < 10:
		return fmt.Sprintf("%.1fs", seconds)
	default:
		return fmt.Sprintf("%.0fs", seconds)
	}
}
