package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrUserNotFound     = errors.New("usuario no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrDuplicate        = errors.New("recurso duplicado")
	ErrUnauthorized     = errors.New("no autorizado")
	ErrConflict         = errors.New("conflicto con el estado actual")
	ErrNotInitialized   = errors.New("no hay base de datos de tenant abierta")
	ErrTenantBusy       = errors.New("otro tenant tiene la base de datos abierta")
	ErrOrderNotEditable = errors.New("el pedido no está pendiente y no admite cambios")
	ErrTokenExpired     = errors.New("credencial expirada")
)

// SchemaError falla al crear o evolucionar una tabla del almacén local.
type SchemaError struct {
	Table  string
	Column string // vacío si el fallo es de la tabla completa
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema %s.%s: %v", e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("schema %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NetworkError fallo de una operación contra el servidor central.
// Temporary indica si vale la pena reintentar (timeouts, 5xx, 429, red caída).
type NetworkError struct {
	Op         string
	StatusCode int // 0 si no hubo respuesta HTTP
	Temporary  bool
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError regla de negocio violada por una entrada. Nunca se reintenta.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para construir un *ValidationError.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation indica si err es (o envuelve) un error de validación.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrOrderNotEditable)
}

// IsRetryable decide si un error de red merece otro intento.
// Validaciones, credenciales rechazadas y respuestas 4xx permanentes no se reintentan.
func IsRetryable(err error) bool {
	if err == nil || IsValidation(err) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Temporary
	}
	return true
}
