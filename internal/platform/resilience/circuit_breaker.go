package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// TransitionFunc observes state changes. It runs with the breaker unlocked.
type TransitionFunc func(from, to CircuitState)

// CircuitBreaker guards one upstream dependency. Only failures the caller
// classifies as transient should be recorded; a disabled breaker admits
// every call.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg CircuitBreakerConfig

	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int

	onTransition TransitionFunc
	now          func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:   cfg.Normalize(),
		state: CircuitStateClosed,
		now:   time.Now,
	}
}

// OnTransition registers fn and returns the breaker for chaining.
func (b *CircuitBreaker) OnTransition(fn TransitionFunc) *CircuitBreaker {
	b.mu.Lock()
	b.onTransition = fn
	b.mu.Unlock()
	return b
}

func (b *CircuitBreaker) Enabled() bool {
	return b != nil && b.cfg.Enabled
}

// Allow admits a call or returns ErrCircuitOpen. Every admitted call must be
// followed by Record.
func (b *CircuitBreaker) Allow() error {
	if !b.Enabled() {
		return nil
	}
	b.mu.Lock()
	var notify func()
	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		notify = b.moveLocked(CircuitStateHalfOpen)
	}
	err := b.admitLocked()
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
	return err
}

func (b *CircuitBreaker) admitLocked() error {
	switch b.state {
	case CircuitStateOpen:
		return ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

// Record reports the outcome of an admitted call.
func (b *CircuitBreaker) Record(failed bool) {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	var notify func()
	if failed {
		notify = b.failureLocked()
	} else {
		notify = b.successLocked()
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (b *CircuitBreaker) RecordSuccess() { b.Record(false) }
func (b *CircuitBreaker) RecordFailure() { b.Record(true) }

func (b *CircuitBreaker) successLocked() func() {
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			return b.moveLocked(CircuitStateClosed)
		}
	}
	return nil
}

func (b *CircuitBreaker) failureLocked() func() {
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			return b.moveLocked(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		return b.moveLocked(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	return nil
}

// State reports half-open once the open timeout has elapsed, even before the
// next Allow performs the transition.
func (b *CircuitBreaker) State() CircuitState {
	if !b.Enabled() {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) moveLocked(to CircuitState) func() {
	from := b.state
	b.state = to
	b.probes = 0
	b.successes = 0
	switch to {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}

	fn := b.onTransition
	if fn == nil || from == to {
		return nil
	}
	return func() { fn(from, to) }
}
