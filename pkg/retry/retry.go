// Package retry implementa la política única de reintentos con backoff exponencial
// usada por todas las operaciones de red del motor de sincronización.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy describe cuántas veces y con qué espera se reintenta una operación.
//
// Unreachable y Fallback forman la variante "red inalcanzable": cuando Unreachable(err)
// es verdadero y hay Fallback, la misma operación se reemite una sola vez con el contexto
// devuelto por Fallback (p. ej. timeout extendido y respuesta sin parseo estricto) antes de
// continuar con el backoff normal.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	Factor       float64
	Jitter       bool
	MaxDelay     time.Duration // 0 = sin tope

	// Retryable decide si un error merece otro intento. nil = todo error es reintentable.
	Retryable func(error) bool

	Unreachable func(error) bool
	Fallback    func(context.Context) context.Context

	// Sleep y Rand se inyectan en tests. nil = espera real respetando ctx / math/rand.
	Sleep func(context.Context, time.Duration) error
	Rand  func() float64
}

// Default devuelve la política de las sincronizaciones: 3 intentos, 1,5 s, factor 2.
func Default() Policy {
	return Policy{
		Attempts:     3,
		InitialDelay: 1500 * time.Millisecond,
		Factor:       2,
	}
}

// Do ejecuta op hasta Attempts veces. Tras agotar los intentos devuelve el último error
// tal cual (errors.Is/As siguen funcionando sobre él).
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 1
	}
	delay := p.InitialDelay
	fallbackUsed := false

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !fallbackUsed && p.Fallback != nil && p.Unreachable != nil && p.Unreachable(err) {
			fallbackUsed = true
			v, ferr := op(p.Fallback(ctx))
			if ferr == nil {
				return v, nil
			}
			lastErr = ferr
		}

		if ctx.Err() != nil || !p.retryable(lastErr) || attempt == attempts {
			break
		}
		wait := delay
		if p.Jitter && wait > 0 {
			wait = time.Duration(p.random() * float64(wait))
		}
		if err := p.sleep(ctx, wait); err != nil {
			return zero, lastErr
		}
		delay = time.Duration(float64(delay) * factor)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return zero, lastErr
}

// Run es Do para operaciones sin valor de retorno.
func Run(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) random() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
