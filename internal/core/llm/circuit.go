package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Threshold  int
	ResetAfter time.Duration
}

// CircuitBreaker suppresses enrichment calls after repeated failures.
type CircuitBreaker struct {
	provider            ProviderName
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	now                 func() time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
// A non-positive threshold disables the breaker.
func NewCircuitBreaker(provider ProviderName, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		provider:   provider,
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// CheckCircuit returns an error if the circuit is open.
func (cb *CircuitBreaker) CheckCircuit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", coreerrors.ErrCircuitBreakerOpen, cb.openUntil)
	}

	return nil
}

// RecordSuccess records a successful call and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	setCircuitOpen(cb.provider, false)
}

// RecordFailure records a failed call and opens the circuit if threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.threshold <= 0 || cb.consecutiveFailures < cb.threshold {
		return
	}

	cb.openUntil = cb.now().Add(cb.resetAfter)
	cb.consecutiveFailures = 0
	setCircuitOpen(cb.provider, true)

	if cb.logger != nil {
		cb.logger.Warn().
			Str(logKeyProvider, string(cb.provider)).
			Int("threshold", cb.threshold).
			Time("open_until", cb.openUntil).
			Msg("enrichment circuit breaker opened")
	}
}

// Reset resets the circuit breaker state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.openUntil = time.Time{}
	setCircuitOpen(cb.provider, false)
}
