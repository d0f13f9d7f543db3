package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/pkg/retry"
)

// recordingSleep registra las esperas solicitadas sin dormir.
func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestDo_SiempreFallaIntentaExactamenteAttempts(t *testing.T) {
	var waits []time.Duration
	p := retry.Policy{Attempts: 4, InitialDelay: 100 * time.Millisecond, Factor: 2, Sleep: recordingSleep(&waits)}

	calls := 0
	var last error
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		last = fmt.Errorf("fallo %d", calls)
		return 0, last
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Same(t, last, err, "el error final es el último fallo subyacente")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, waits)
}

func TestDo_ExitoTrasFallosTransitorios(t *testing.T) {
	var waits []time.Duration
	p := retry.Policy{Attempts: 3, InitialDelay: time.Second, Factor: 3, Sleep: recordingSleep(&waits)}

	calls := 0
	v, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transitorio")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, waits)
}

func TestDo_ErrorNoReintentableCortaDeInmediato(t *testing.T) {
	permanent := errors.New("validación")
	p := retry.Policy{
		Attempts:  5,
		Retryable: func(err error) bool { return !errors.Is(err, permanent) },
		Sleep:     func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_JitterDentroDelRango(t *testing.T) {
	var waits []time.Duration
	p := retry.Policy{
		Attempts: 3, InitialDelay: time.Second, Factor: 2, Jitter: true,
		Rand:  func() float64 { return 0.5 },
		Sleep: recordingSleep(&waits),
	}

	_, _ = retry.Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, errors.New("x")
	})

	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, waits)
}

func TestDo_MaxDelayLimitaElCrecimiento(t *testing.T) {
	var waits []time.Duration
	p := retry.Policy{Attempts: 4, InitialDelay: time.Second, Factor: 10, MaxDelay: 5 * time.Second, Sleep: recordingSleep(&waits)}

	_, _ = retry.Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, errors.New("x")
	})

	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 5 * time.Second}, waits)
}

type rawModeKey struct{}

func TestDo_FallbackRedInalcanzableUnaSolaVez(t *testing.T) {
	unreachable := errors.New("network is unreachable")
	p := retry.Policy{
		Attempts:    3,
		Unreachable: func(err error) bool { return errors.Is(err, unreachable) },
		Fallback: func(ctx context.Context) context.Context {
			return context.WithValue(ctx, rawModeKey{}, true)
		},
		Sleep: func(context.Context, time.Duration) error { return nil },
	}

	var modes []bool
	v, err := retry.Do(context.Background(), p, func(ctx context.Context) (string, error) {
		raw, _ := ctx.Value(rawModeKey{}).(bool)
		modes = append(modes, raw)
		if raw {
			return "crudo", nil
		}
		return "", unreachable
	})

	require.NoError(t, err)
	assert.Equal(t, "crudo", v)
	assert.Equal(t, []bool{false, true}, modes)
}

func TestDo_FallbackFallidoContinuaConBackoff(t *testing.T) {
	unreachable := errors.New("unreachable")
	p := retry.Policy{
		Attempts:    2,
		Unreachable: func(err error) bool { return errors.Is(err, unreachable) },
		Fallback:    func(ctx context.Context) context.Context { return ctx },
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, unreachable
	})

	assert.ErrorIs(t, err, unreachable)
	assert.Equal(t, 3, calls, "2 intentos + 1 reemisión de fallback")
}

func TestDo_ContextoCanceladoDetieneReintentos(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Policy{Attempts: 5, InitialDelay: time.Hour, Factor: 1}

	calls := 0
	_, err := retry.Do(ctx, p, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("falla")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun(t *testing.T) {
	calls := 0
	err := retry.Run(context.Background(), retry.Policy{Attempts: 2, Sleep: func(context.Context, time.Duration) error { return nil }},
		func(context.Context) error {
			calls++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDefault(t *testing.T) {
	p := retry.Default()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 1500*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2.0, p.Factor)
}
