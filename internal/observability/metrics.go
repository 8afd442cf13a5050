package observability

import (
	"context"
	"sync"
)

// Metrics records compliance and approval outcomes.
type Metrics interface {
	RecordEvaluation(ctx context.Context, labels EvaluationLabels)
	RecordResolution(ctx context.Context, outcome string)
}

// EvaluationLabels contains the dimensions of one policy evaluation.
type EvaluationLabels struct {
	BookingType      string
	Compliant        bool
	ApprovalRequired bool
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Evaluations     uint64            `json:"evaluations"`
	NonCompliant    uint64            `json:"non_compliant"`
	ApprovalsRouted uint64            `json:"approvals_routed"`
	ByBookingType   map[string]uint64 `json:"by_booking_type"`
	Resolutions     map[string]uint64 `json:"resolutions"`
}

// Counters is an in-process Metrics implementation.
type Counters struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCounters creates empty counters.
func NewCounters() *Counters {
	return &Counters{snap: Snapshot{
		ByBookingType: make(map[string]uint64),
		Resolutions:   make(map[string]uint64),
	}}
}

// RecordEvaluation counts one evaluation.
func (c *Counters) RecordEvaluation(_ context.Context, labels EvaluationLabels) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Evaluations++
	c.snap.ByBookingType[labels.BookingType]++
	if !labels.Compliant {
		c.snap.NonCompliant++
	}
	if labels.ApprovalRequired {
		c.snap.ApprovalsRouted++
	}
}

// RecordResolution counts one approval decision.
func (c *Counters) RecordResolution(_ context.Context, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Resolutions[outcome]++
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.snap
	out.ByBookingType = make(map[string]uint64, len(c.snap.ByBookingType))
	for k, v := range c.snap.ByBookingType {
		out.ByBookingType[k] = v
	}
	out.Resolutions = make(map[string]uint64, len(c.snap.Resolutions))
	for k, v := range c.snap.Resolutions {
		out.Resolutions[k] = v
	}
	return out
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordEvaluation(context.Context, EvaluationLabels) {}
func (NopMetrics) RecordResolution(context.Context, string)           {}
