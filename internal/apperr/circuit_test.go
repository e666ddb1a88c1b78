package apperr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithFailureThreshold(3), WithRecoveryThreshold(2), WithTimeout(20*time.Millisecond))

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls, "inner function must not be invoked while open")
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("vector", WithFailureThreshold(2), WithRecoveryThreshold(2), WithTimeout(10*time.Millisecond))

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	// One success alone must not close it (recoveryThreshold=2).
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("vector", WithFailureThreshold(1), WithRecoveryThreshold(1), WithTimeout(5*time.Millisecond))

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecuteWithResultFallback(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithFailureThreshold(1), WithTimeout(time.Hour))
	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	require.Equal(t, StateOpen, cb.State())

	result, err := ExecuteWithResult(cb, func() (int, error) {
		t.Fatal("fn must not run while circuit is open")
		return 0, nil
	}, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
