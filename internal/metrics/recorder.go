// Package metrics keeps a bounded in-memory log of per-call outcomes and
// derives aggregate usage statistics from it.
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

// DefaultCapacity bounds the metric log; inserting past it evicts the oldest
// entry first.
const DefaultCapacity = 1000

const topEndpointCount = 5

// Recorder implements domain.MetricsRecorder with a fixed-capacity ring
// buffer. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	entries  []domain.RequestMetric
	head     int // index of the oldest entry
	size     int
	capacity int
	costs    domain.CostCalculator
}

// NewRecorder creates a recorder with the given capacity; non-positive
// capacities fall back to DefaultCapacity. The cost calculator may be nil,
// in which case estimated cost stays zero.
func NewRecorder(capacity int, costs domain.CostCalculator) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		entries:  make([]domain.RequestMetric, capacity),
		capacity: capacity,
		costs:    costs,
	}
}

// Track appends a metric, evicting the oldest entry once full.
func (r *Recorder) Track(metric domain.RequestMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < r.capacity {
		r.entries[(r.head+r.size)%r.capacity] = metric
		r.size++
		return
	}

	// Full: overwrite the oldest slot and advance.
	r.entries[r.head] = metric
	r.head = (r.head + 1) % r.capacity
}

// Len returns the number of retained metrics.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// snapshot copies the retained metrics in insertion order.
func (r *Recorder) snapshot() []domain.RequestMetric {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.RequestMetric, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(r.head+i)%r.capacity])
	}
	return out
}

// Summarize aggregates metrics within the trailing window. A zero window
// covers everything retained. All divisions are guarded against an empty
// filtered set.
func (r *Recorder) Summarize(window time.Duration) *domain.UsageMetrics {
	now := time.Now()
	var cutoff time.Time
	if window > 0 {
		cutoff = now.Add(-window)
	}

	summary := &domain.UsageMetrics{
		TopEndpoints: []domain.EndpointCount{},
		PeriodEnd:    now,
	}

	var (
		totalResponseMs int64
		failures        int
		endpointCounts  = make(map[string]int)
	)

	for _, m := range r.snapshot() {
		if !cutoff.IsZero() && m.Timestamp.Before(cutoff) {
			continue
		}

		if summary.TotalRequests == 0 || m.Timestamp.Before(summary.PeriodStart) {
			summary.PeriodStart = m.Timestamp
		}

		summary.TotalRequests++
		summary.TotalTokens += m.TotalTokens
		totalResponseMs += m.ResponseTimeMs
		endpointCounts[m.Endpoint]++

		if !m.Success {
			failures++
			if m.ErrorCode == domain.ErrCodeRateLimitExceeded {
				summary.RateLimitHits++
			}
		}

		if r.costs != nil && m.Model != "" {
			cost, err := r.costs.Calculate(context.Background(), m.Model, domain.TokenCount{
				PromptTokens:     m.PromptTokens,
				CompletionTokens: m.ResponseTokens,
				TotalTokens:      m.TotalTokens,
			})
			if err == nil {
				summary.EstimatedCost += cost
			}
		}
	}

	if summary.TotalRequests > 0 {
		summary.AverageResponseTimeMs = float64(totalResponseMs) / float64(summary.TotalRequests)
		summary.ErrorRate = float64(failures) / float64(summary.TotalRequests)
	}

	summary.TopEndpoints = topEndpoints(endpointCounts, topEndpointCount)

	return summary
}

// topEndpoints returns the n most frequent endpoints, ties broken by name for
// deterministic output.
func topEndpoints(counts map[string]int, n int) []domain.EndpointCount {
	out := make([]domain.EndpointCount, 0, len(counts))
	for endpoint, count := range counts {
		out = append(out, domain.EndpointCount{Endpoint: endpoint, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Endpoint < out[j].Endpoint
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
