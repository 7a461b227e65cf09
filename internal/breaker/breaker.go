package breaker

import (
	"sync"
	"time"

	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
)

// State is the current mode of a single breaker.
type State int

const (
	// StateClosed allows calls; failures accumulate.
	StateClosed State = iota
	// StateHalfOpen allows exactly one trial call after the cooldown.
	StateHalfOpen
	// StateOpen rejects calls without any network attempt.
	StateOpen
)

// String returns the string representation of a breaker state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// entry tracks one service key.
type entry struct {
	state       State
	failures    int
	lastFailure time.Time
	trialStart  time.Time
}

// Registry tracks failures per service key and gates outbound calls.
// Keys are independent so one degraded dependency cannot block another.
type Registry struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	entries   map[string]*entry
	now       func() time.Time // overridable for tests
}

// NewRegistry creates a breaker registry. A breaker opens after threshold
// consecutive failures and stays open for cooldown before allowing a
// half-open trial call.
func NewRegistry(threshold int, cooldown time.Duration) *Registry {
	if threshold < 1 {
		threshold = 1
	}
	return &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
}

// CanProceed reports whether a call for key may go out. When the cooldown
// of an open breaker has elapsed, the first CanProceed call transitions it
// to half-open and is granted as the single trial. A half-open trial that
// never reports back is abandoned after a further cooldown and replaced by
// a new trial.
func (r *Registry) CanProceed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(key)

	switch e.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// A trial is in flight; hold further calls until it reports. A trial
		// whose caller never reports (cancelled job, shutdown) would wedge
		// the key here, so after another cooldown the trial is considered
		// abandoned and a fresh one is granted.
		if r.now().Sub(e.trialStart) >= r.cooldown {
			e.trialStart = r.now()
			logging.Warn("breaker %s: trial call never reported, allowing a new trial", key)
			return true
		}
		return false
	case StateOpen:
		if r.now().Sub(e.lastFailure) >= r.cooldown {
			e.state = StateHalfOpen
			e.trialStart = r.now()
			r.export(key, e)
			logging.Debug("breaker %s: cooldown elapsed, allowing trial call", key)
			return true
		}
		metrics.BreakerRejectionsTotal.WithLabelValues(key).Inc()
		return false
	}
	return false
}

// RecordSuccess resets the breaker for key to closed with zero failures.
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(key)
	if e.state != StateClosed {
		logging.Info("breaker %s: recovered, closing (was %s)", key, e.state)
	}
	e.state = StateClosed
	e.failures = 0
	r.export(key, e)
}

// RecordFailure counts a failure for key. Reaching the threshold, or
// failing the half-open trial, opens the breaker with a fresh cooldown.
func (r *Registry) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(key)
	e.failures++
	e.lastFailure = r.now()

	switch e.state {
	case StateHalfOpen:
		e.state = StateOpen
		logging.Warn("breaker %s: trial call failed, re-opening for %v", key, r.cooldown)
	case StateClosed:
		if e.failures >= r.threshold {
			e.state = StateOpen
			logging.Warn("breaker %s: %d consecutive failures, opening for %v", key, e.failures, r.cooldown)
		}
	}
	r.export(key, e)
}

// StateOf returns the current state for key without side effects.
func (r *Registry) StateOf(key string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry(key).state
}

// entry returns the tracked entry for key, creating it closed.
// Caller must hold r.mu.
func (r *Registry) entry(key string) *entry {
	e, ok := r.entries[key]
	if !ok {
		e = &entry{state: StateClosed}
		r.entries[key] = e
	}
	return e
}

// export publishes the state gauge for key. Caller must hold r.mu.
func (r *Registry) export(key string, e *entry) {
	var v float64
	switch e.state {
	case StateHalfOpen:
		v = 1
	case StateOpen:
		v = 2
	}
	metrics.BreakerState.WithLabelValues(key).Set(v)
}
