// Package circuit implements the three-state (closed/open/half-open) breaker
// the discovery engine wraps around every ProviderClient call (one breaker
// per AWS service). The state machine and backoff schedule follow the
// same shape used for other outbound-call breakers, with the error-category
// split retargeted from a transient/rate-limit/invalid/fatal split onto a
// recoverable-error taxonomy:
// access-denied and fatal (e.g. invalid-credentials) failures never count
// toward tripping the breaker, a single throttling failure trips it open at
// once, transient failures trip it after FailureThreshold in a row, and a
// handful of AWS/graph-store signals (payload-too-large, resolver-code-size)
// never even reach the breaker because they are handled one layer up by the
// adaptive paginator.
package circuit

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrorCategory governs how RecordFailureWithCategory treats a failure.
type ErrorCategory int

const (
	// ErrorCategoryTransient is a retryable network/5xx-class error.
	ErrorCategoryTransient ErrorCategory = iota
	// ErrorCategoryThrottle is an AWS throttling signal; the SDK's own retry
	// budget should usually absorb these before they ever reach the breaker
	//, so seeing one here means the retry budget was exhausted.
	ErrorCategoryThrottle
	// ErrorCategoryAccessDenied is recoverable at the account/region/item
	// level and must never trip the breaker — the caller is
	// expected to record the access-denied outcome and move on to the next
	// item, not retry the same credentials.
	ErrorCategoryAccessDenied
	// ErrorCategoryFatal requires operator intervention (bad trust policy,
	// deleted role, malformed request) and won't succeed on retry.
	ErrorCategoryFatal
)

type Config struct {
	FailureThreshold int
	SuccessThreshold int
	InitialBackoff time.Duration
	MaxBackoff time.Duration
	BackoffMultiplier float64
	HalfOpenTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		InitialBackoff: time.Second,
		MaxBackoff: 2 * time.Minute,
		BackoffMultiplier: 2.0,
		HalfOpenTimeout: 30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern for a single logical
// downstream (one per ProviderClient service adapter).
type Breaker struct {
	mu sync.RWMutex

	config Config
	state State
	name string

	consecutiveFailures int
	consecutiveSuccesses int
	lastFailure time.Time
	lastSuccess time.Time
	lastError error

	currentBackoff time.Duration
	openedAt time.Time
	halfOpenProbeInFlight bool

	totalFailures int64
	totalSuccesses int64
	totalTrips int64

	onTrip func(err error)
}

func NewBreaker(name string, config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 2 * time.Minute
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.HalfOpenTimeout <= 0 {
		config.HalfOpenTimeout = 30 * time.Second
	}

	return &Breaker{
		config: config,
		state: StateClosed,
		name: name,
		currentBackoff: config.InitialBackoff,
	}
}

// SetOnTrip registers a callback invoked (in a new goroutine) whenever the
// breaker trips open.
func (b *Breaker) SetOnTrip(fn func(err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = fn
}

// Allow reports whether an operation may proceed, performing the
// open→half-open transition when the backoff window has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.currentBackoff {
			b.transitionTo(StateHalfOpen)
			b.halfOpenProbeInFlight = true
			log.Info().Str("breaker", b.name).Msg("circuit breaker probing half-open")
			return true
		}
		return false
	case StateHalfOpen:
		if b.halfOpenProbeInFlight {
			return false
		}
		b.halfOpenProbeInFlight = true
		return true
	default:
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSuccess = time.Now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses++
	b.totalSuccesses++

	if b.state == StateHalfOpen {
		b.halfOpenProbeInFlight = false
		if b.consecutiveSuccesses >= b.config.SuccessThreshold {
			b.transitionTo(StateClosed)
			b.currentBackoff = b.config.InitialBackoff
			log.Info().Str("breaker", b.name).Msg("circuit breaker closed")
		}
	}
}

func (b *Breaker) RecordFailure(err error) {
	b.RecordFailureWithCategory(err, ErrorCategoryTransient)
}

// RecordFailureWithCategory records a failure, tripping the breaker only for
// categories that represent a genuinely unhealthy downstream. Access-denied
// and fatal errors never count toward the trip threshold: treats
// access-denied as an item-level outcome, not a downstream health signal, and
// a fatal error (bad credentials) won't be fixed by backing off either.
func (b *Breaker) RecordFailureWithCategory(err error, category ErrorCategory) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	b.lastError = err
	b.consecutiveSuccesses = 0

	switch category {
	case ErrorCategoryAccessDenied, ErrorCategoryFatal:
		if b.state == StateHalfOpen {
			b.halfOpenProbeInFlight = false
		}
		return

	case ErrorCategoryThrottle:
		b.totalFailures++
		b.consecutiveFailures = b.config.FailureThreshold

	default:
		b.totalFailures++
		b.consecutiveFailures++
	}

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.tripCircuit(err)
		}
	case StateHalfOpen:
		b.halfOpenProbeInFlight = false
		b.currentBackoff = time.Duration(float64(b.currentBackoff) * b.config.BackoffMultiplier)
		if b.currentBackoff > b.config.MaxBackoff {
			b.currentBackoff = b.config.MaxBackoff
		}
		b.tripCircuit(err)
	}
}

func (b *Breaker) tripCircuit(err error) {
	b.transitionTo(StateOpen)
	b.openedAt = time.Now()
	b.halfOpenProbeInFlight = false
	b.totalTrips++

	log.Warn().
		Str("breaker", b.name).
		Dur("backoff", b.currentBackoff).
		Int("failures", b.consecutiveFailures).
		Err(err).
		Msg("circuit breaker tripped")

	if b.onTrip != nil {
		go b.onTrip(err)
	}
}

func (b *Breaker) transitionTo(newState State) {
	b.state = newState
}

func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == StateOpen
}

// Execute runs operation under the breaker, categorizing its error (if any)
// via CategorizeError before recording it.
func (b *Breaker) Execute(operation func() error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	err := operation()
	if err != nil {
		b.RecordFailureWithCategory(err, CategorizeError(err))
		return err
	}

	b.RecordSuccess()
	return nil
}

type circuitOpenError struct{}

func (e circuitOpenError) Error() string { return "circuit breaker is open" }

var ErrCircuitOpen error = circuitOpenError{}

func IsCircuitOpen(err error) bool {
	_, ok := err.(circuitOpenError)
	return ok
}

// CategorizeError maps a discoveryerrors.Kind (when present) onto an
// ErrorCategory, falling back to a substring sniff of the error text for
// errors that didn't pass through the typed taxonomy (e.g. raw smithy API
// errors from the AWS SDK before ProviderClient wraps them).
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryTransient
	}

	if kind, ok := discoveryerrors.AsKind(err); ok {
		switch kind {
		case discoveryerrors.KindAccessDenied:
			return ErrorCategoryAccessDenied
		case discoveryerrors.KindPayloadTooLarge, discoveryerrors.KindResolverCodeSize:
			return ErrorCategoryFatal
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "throttl") || strings.Contains(msg, "toomanyrequests") || strings.Contains(msg, "rate exceeded"):
		return ErrorCategoryThrottle
	case strings.Contains(msg, "accessdenied") || strings.Contains(msg, "unauthorizedaccess") || strings.Contains(msg, "access denied"):
		return ErrorCategoryAccessDenied
	case strings.Contains(msg, "invalidclienttoken") || strings.Contains(msg, "expiredtoken") || strings.Contains(msg, "signaturedoesnotmatch"):
		return ErrorCategoryFatal
	default:
		return ErrorCategoryTransient
	}
}
