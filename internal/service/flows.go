package service

import (
	"context"
	"sync"
)

// Flow names a user-facing AI workflow. At most one run per flow is in
// flight; starting a new run cancels the previous one.
type Flow string

const (
	FlowOnboarding Flow = "onboarding"
	FlowRewrite    Flow = "rewrite"
	FlowOrganize   Flow = "organize"
	FlowDocument   Flow = "document"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	switch f {
	case FlowOnboarding, FlowRewrite, FlowOrganize, FlowDocument:
		return true
	}
	return false
}

type flowRun struct {
	seq    uint64
	cancel context.CancelFunc
}

// Flows tracks the cancel function of the run in flight for each flow.
type Flows struct {
	mu   sync.Mutex
	seq  uint64
	runs map[Flow]flowRun
}

// NewFlows creates an empty tracker.
func NewFlows() *Flows {
	return &Flows{runs: make(map[Flow]flowRun)}
}

// Begin cancels any run in flight for flow and returns a context for the
// new one. The returned func must be called when the run finishes.
func (f *Flows) Begin(ctx context.Context, flow Flow) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if prev, ok := f.runs[flow]; ok {
		prev.cancel()
	}
	f.seq++
	seq := f.seq
	f.runs[flow] = flowRun{seq: seq, cancel: cancel}
	f.mu.Unlock()

	return ctx, func() {
		cancel()
		f.mu.Lock()
		if cur, ok := f.runs[flow]; ok && cur.seq == seq {
			delete(f.runs, flow)
		}
		f.mu.Unlock()
	}
}

// Cancel aborts the run in flight for flow. It reports whether one existed.
func (f *Flows) Cancel(flow Flow) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[flow]
	if !ok {
		return false
	}
	run.cancel()
	delete(f.runs, flow)
	return true
}

// Active reports whether flow has a run in flight.
func (f *Flows) Active(flow Flow) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.runs[flow]
	return ok
}
