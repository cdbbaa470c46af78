package impute

import "sync"

// ProgressFunc receives best-effort progress updates from a pipeline run.
// percent is 0-100 and never decreases across the calls a single run makes;
// consumers must tolerate missed updates.
type ProgressFunc func(percent int, message string)

// progressReporter serialises progress callbacks from concurrent meter
// workers and enforces the non-decreasing percent contract. A nil callback
// makes every report a no-op.
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (p *progressReporter) report(percent int, message string) {
	if p.fn == nil {
		return
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if percent < p.last {
		return
	}
	p.last = percent
	// Called under the lock so concurrent workers cannot deliver
	// out-of-order updates.
	p.fn(percent, message)
}
