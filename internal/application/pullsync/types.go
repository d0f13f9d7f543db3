package pullsync

import (
	"fmt"
	"strings"

	"github.com/jhoicas/preventa/internal/domain"
)

// EntityKind tipo de dato de referencia que se baja del servidor.
type EntityKind string

const (
	KindCompany     EntityKind = "company"
	KindParameter   EntityKind = "parameter"
	KindProduct     EntityKind = "product"
	KindClient      EntityKind = "client"
	KindSalesperson EntityKind = "salesperson"
	KindPaymentTerm EntityKind = "payment_term"
	KindRoute       EntityKind = "route"
	KindUser        EntityKind = "user"
)

// AllKinds todos los tipos en el orden en que se sincronizan: empresa y parámetros primero.
func AllKinds() []EntityKind {
	return []EntityKind{KindCompany, KindParameter, KindProduct, KindClient, KindSalesperson, KindPaymentTerm, KindRoute, KindUser}
}

// ParseKind acepta el nombre del tipo con guion o guion bajo ("payment-term").
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", domain.NewValidationError("kind", "tipo desconocido %q", s)
}

// ItemError fila remota rechazada o que no se pudo aplicar.
type ItemError struct {
	Key string
	Err error
}

func (e ItemError) Error() string { return fmt.Sprintf("%s: %v", e.Key, e.Err) }

// Result conteos de una sincronización de un tipo.
// Inserted + Updated + Skipped + Rejected == Total.
type Result struct {
	Kind     EntityKind
	Inserted int
	Updated  int
	Skipped  int
	Rejected int
	Total    int
	Errors   []ItemError
}

// KindFailure tipo abortado: la descarga falló tras los reintentos o la transacción se revirtió.
type KindFailure struct {
	Kind EntityKind
	Err  error
}

// Summary resultado de PullAll.
type Summary struct {
	Results  []Result
	Failures []KindFailure
}

// Failed indica si algún tipo quedó sin sincronizar.
func (s Summary) Failed() bool { return len(s.Failures) > 0 }

// Result devuelve el resultado de kind, si se sincronizó.
func (s Summary) Result(kind EntityKind) (Result, bool) {
	for _, r := range s.Results {
		if r.Kind == kind {
			return r, true
		}
	}
	return Result{}, false
}
