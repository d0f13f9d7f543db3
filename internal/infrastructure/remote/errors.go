package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/pkg/config"
	"github.com/jhoicas/preventa/pkg/retry"
)

// ErrBodyTooLarge el servidor respondió con un cuerpo mayor al máximo aceptado.
var ErrBodyTooLarge = errors.New("respuesta demasiado grande")

// DecodeError la respuesta llegó pero no se pudo interpretar como JSON.
// En redes degradadas suele ser una página de portal cautivo o un cuerpo truncado.
type DecodeError struct {
	Op      string
	Snippet string // primeros bytes del cuerpo, para diagnóstico
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: respuesta ilegible: %v (cuerpo: %q)", e.Op, e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsUnreachable indica si err corresponde a red caída o respuesta ilegible: los casos en que
// vale la pena un reintento en modo crudo con timeout extendido.
func IsUnreachable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryPolicy política de reintentos de las llamadas al servidor central, con la variante
// "red inalcanzable" apuntando al modo crudo de este cliente.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	p := retry.Default()
	if cfg.Attempts > 0 {
		p.Attempts = cfg.Attempts
	}
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.Factor > 0 {
		p.Factor = cfg.Factor
	}
	p.Jitter = cfg.Jitter
	p.Retryable = domain.IsRetryable
	p.Unreachable = IsUnreachable
	p.Fallback = WithRawMode
	return p
}
