// Package events publica hechos de sincronización en NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/pkg/logger"
)

var (
	_ ports.EventPublisher = (*NATSPublisher)(nil)
	_ ports.EventPublisher = Nop{}
)

// Conn lo que el publicador necesita de *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Envelope cuerpo publicado en cada subject.
type Envelope struct {
	Event      string    `json:"event"`
	Tenant     string    `json:"tenant"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// NATSPublisher publica en <prefix>.<tenant>.<event>.
type NATSPublisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

// NewNATSPublisher construye el publicador sobre una conexión ya abierta.
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now}
}

// Connect abre la conexión NATS con reconexión automática.
func Connect(url, name string, log *logger.Logger) (*nats.Conn, error) {
	if log == nil {
		log = logger.Nop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS desconectado")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconectado")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("conectar a NATS: %w", err)
	}
	return nc, nil
}

// Subject subject de un evento.
func (p *NATSPublisher) Subject(tenant, event string) string {
	return p.prefix + "." + tenant + "." + event
}

func (p *NATSPublisher) Publish(ctx context.Context, event, tenant string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Envelope{Event: event, Tenant: tenant, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", event, err)
	}
	if err := p.conn.Publish(p.Subject(tenant, event), data); err != nil {
		return fmt.Errorf("publicar evento %s: %w", event, err)
	}
	return nil
}

// Nop publicador vacío cuando NATS no está configurado.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
