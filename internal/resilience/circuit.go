package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and counts outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Counts is the outcome tally of the current counting window.
type Counts struct {
	Requests int
	Failures int
}

func (c Counts) failureRatio() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Requests)
}

const defaultWindow = time.Minute

// Breaker guards the gateway with a failure-ratio circuit. Outcomes are
// counted in fixed windows; once MinRequests outcomes are seen in a window and
// the failure ratio reaches the threshold the circuit opens. After the
// cool-off exactly one probe is admitted. Safe for concurrent use.
type Breaker struct {
	mu           sync.Mutex
	state        State
	counts       Counts
	windowStart  time.Time
	openedAt     time.Time
	probing      bool
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	window       time.Duration
	now          func() time.Time
	target       string
	logger       *zerolog.Logger
}

// NewBreaker returns a closed breaker. failureRatio is clamped to (0, 1].
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		window:       defaultWindow,
		now:          time.Now,
	}
}

// Allow reports whether a request may proceed. Every admitted request must be
// followed by Report or Release.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			b.rejectLocked()
			return false
		}
		b.changeStateLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			b.rejectLocked()
			return false
		}
		b.probing = true
		return true
	default:
		b.rollWindowLocked()
		return true
	}
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	b.rollWindowLocked()
	b.counts.Requests++
	if !success {
		b.counts.Failures++
	}
	if b.counts.Requests >= b.minRequests && b.counts.failureRatio() >= b.failureRatio {
		b.changeStateLocked(ctx, Open)
	}
}

// Release gives back an admitted request without an outcome, e.g. when the
// caller canceled before the gateway answered.
func (b *Breaker) Release(context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.probing = false
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns the tally of the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// WithTarget sets the dependency name used for metric labels and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.recordStateLocked()
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// WithWindow sets how long outcomes are counted before the tally resets.
func (b *Breaker) WithWindow(window time.Duration) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if window > 0 {
		b.window = window
	}
	return b
}

// WithClock replaces the time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

func (b *Breaker) rollWindowLocked() {
	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.counts = Counts{}
	}
}

func (b *Breaker) rejectLocked() {
	if BreakerRejected != nil {
		BreakerRejected.WithLabelValues(b.targetLabel()).Inc()
	}
}

func (b *Breaker) changeStateLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
		b.windowStart = time.Time{}
	}
	b.counts = Counts{}
	b.recordStateLocked()
	b.recordTransition(ctx, prev, next)
}

func (b *Breaker) recordStateLocked() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.targetLabel()).Set(float64(b.state))
}

func (b *Breaker) recordTransition(ctx context.Context, from, to State) {
	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, from.String(), to.String()).Inc()
	}
	if to == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.loggerFor(ctx).Warn()
	if to == Closed {
		evt = b.loggerFor(ctx).Info()
	}
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Str("target", label).
		Str("from_state", from.String()).
		Str("to_state", to.String()).
		Msg("breaker_transition")
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "gateway"
	}
	return b.target
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}
