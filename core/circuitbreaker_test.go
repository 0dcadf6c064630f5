package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCondition polls a condition function with timeout
func waitForCondition(t *testing.T, condition func() bool, timeout time.Duration, description string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}

		<-ticker.C
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for condition: %s (timeout: %v)", description, timeout)
		}
	}
}

func TestCircuitBreakerBasicFlow(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxFailures:         3,
		Timeout:             100 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	}

	cb, err := NewCircuitBreaker(config)
	require.NoError(t, err)

	assert.Equal(t, CircuitBreakerStateClosed, cb.State())

	// Failures below the threshold keep the circuit closed.
	for i := 0; i < 2; i++ {
		_, newState := cb.RecordFailure()
		assert.Equal(t, CircuitBreakerStateClosed, newState)
	}

	// The threshold failure opens it, and the transition is observable.
	oldState, newState := cb.RecordFailure()
	assert.Equal(t, CircuitBreakerStateClosed, oldState)
	assert.Equal(t, CircuitBreakerStateOpen, newState)

	assert.ErrorIs(t, cb.Allow(), ErrCircuitBreakerOpen)

	// After the timeout the circuit half-opens and admits a probe.
	startTime := time.Now()
	waitForCondition(t, func() bool {
		if time.Since(startTime) < 100*time.Millisecond {
			return false
		}
		return cb.Allow() == nil || cb.State() == CircuitBreakerStateHalfOpen
	}, 1*time.Second, "circuit breaker timeout to expire")

	assert.Equal(t, CircuitBreakerStateHalfOpen, cb.State())

	// A successful probe closes the circuit.
	oldState, newState = cb.RecordSuccess()
	assert.Equal(t, CircuitBreakerStateHalfOpen, oldState)
	assert.Equal(t, CircuitBreakerStateClosed, newState)
	assert.Equal(t, uint32(0), cb.Failures())
}

func TestCircuitBreakerHalfOpenProbeBudget(t *testing.T) {
	cb, err := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             50 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	})
	require.NoError(t, err)

	cb.RecordFailure()
	require.Equal(t, CircuitBreakerStateOpen, cb.State())

	startTime := time.Now()
	waitForCondition(t, func() bool {
		if time.Since(startTime) < 50*time.Millisecond {
			return false
		}
		return cb.Allow() == nil
	}, 1*time.Second, "transition to half-open")

	// The probe budget is spent; further requests are rejected.
	assert.ErrorIs(t, cb.Allow(), ErrTooManyRequests)

	// A failed probe reopens the circuit.
	oldState, newState := cb.RecordFailure()
	assert.Equal(t, CircuitBreakerStateHalfOpen, oldState)
	assert.Equal(t, CircuitBreakerStateOpen, newState)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := MustNewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         3,
		Timeout:             time.Second,
		MaxHalfOpenRequests: 1,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, uint32(0), cb.Failures())

	// The counter restarted, so two more failures do not open it.
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := MustNewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             time.Hour,
		MaxHalfOpenRequests: 1,
	})

	cb.RecordFailure()
	require.Equal(t, CircuitBreakerStateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitBreakerStateClosed, cb.State())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreakerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config CircuitBreakerConfig
	}{
		{"zero max failures", CircuitBreakerConfig{MaxFailures: 0, Timeout: time.Second, MaxHalfOpenRequests: 1}},
		{"zero timeout", CircuitBreakerConfig{MaxFailures: 1, Timeout: 0, MaxHalfOpenRequests: 1}},
		{"zero half-open budget", CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second, MaxHalfOpenRequests: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCircuitBreaker(tt.config)
			assert.ErrorIs(t, err, ErrInvalidCircuitBreakerConfig)
		})
	}
}
