// Package remote implementa los puertos de salida hacia el servidor central (HTTP/JSON).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/pkg/config"
	"github.com/jhoicas/preventa/pkg/logger"
)

// Verificar en tiempo de compilación que Client implementa los puertos remotos.
var (
	_ ports.CatalogSource = (*Client)(nil)
	_ ports.OrderGateway  = (*Client)(nil)
	_ ports.ImageSource   = (*Client)(nil)
	_ ports.AuthGateway   = (*Client)(nil)
)

const (
	apiPrefix     = "/api/v1"
	maxBodyBytes  = 16 << 20
	maxImageBytes = 32 << 20
)

// Client adaptador HTTP del servidor central.
// Mantiene dos http.Client: el normal y el del modo crudo, con timeout extendido.
type Client struct {
	baseURL string
	http    *http.Client
	raw     *http.Client
	tokens  ports.TokenSource
	log     *logger.Logger
}

// NewClient construye el cliente. tokens puede ser nil (solo login).
func NewClient(cfg config.APIConfig, tokens ports.TokenSource, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	rawTimeout := cfg.RawTimeout
	if rawTimeout < cfg.Timeout {
		rawTimeout = cfg.Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		raw:     &http.Client{Timeout: rawTimeout},
		tokens:  tokens,
		log:     log.Component("remote"),
	}
}

type rawModeKey struct{}

// WithRawMode marca el contexto para que la siguiente llamada use timeout extendido
// y decodificación tolerante (ISO-8859-1, basura alrededor del JSON).
func WithRawMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, rawModeKey{}, true)
}

// IsRawMode indica si ctx pide el modo crudo.
func IsRawMode(ctx context.Context) bool {
	v, _ := ctx.Value(rawModeKey{}).(bool)
	return v
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	auth    bool
}

// do ejecuta la petición y decodifica la respuesta en out (si no es nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	raw := IsRawMode(ctx)

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: serializar request: %w", r.op, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + apiPrefix + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: crear HTTP request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.auth {
		if err := c.authorize(ctx, req); err != nil {
			return &domain.NetworkError{Op: r.op, Err: err}
		}
	}

	hc := c.http
	if raw {
		hc = c.raw
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("%s: %w", r.op, ctx.Err())
		}
		return &domain.NetworkError{Op: r.op, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	rawBody, truncated, err := readLimited(resp.Body, maxBodyBytes)
	if err != nil {
		return &domain.NetworkError{Op: r.op, StatusCode: resp.StatusCode, Temporary: true, Err: fmt.Errorf("leer respuesta: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(r.op, resp.StatusCode, rawBody)
	}
	if truncated {
		return tooLarge(r.op, resp.StatusCode, maxBodyBytes)
	}
	if out == nil || len(bytes.TrimSpace(rawBody)) == 0 {
		return nil
	}
	if raw {
		c.log.Debug().Str("op", r.op).Msg("decodificación tolerante")
		return decodeLenient(r.op, rawBody, out)
	}
	if err := json.Unmarshal(rawBody, out); err != nil {
		return &DecodeError{Op: r.op, Snippet: snippet(rawBody), Err: err}
	}
	return nil
}

// readLimited lee hasta limit bytes e indica si el cuerpo traía más.
func readLimited(r io.Reader, limit int64) (data []byte, truncated bool, err error) {
	data, err = io.ReadAll(io.LimitReader(r, limit+1))
	if int64(len(data)) > limit {
		return data[:limit], true, err
	}
	return data, false, err
}

// tooLarge error permanente: reintentar devolvería el mismo cuerpo.
func tooLarge(op string, status int, limit int64) error {
	return &domain.NetworkError{Op: op, StatusCode: status, Err: fmt.Errorf("%w: más de %d bytes", ErrBodyTooLarge, limit)}
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return domain.ErrUnauthorized
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// statusError traduce el código HTTP a un *domain.NetworkError que envuelve el sentinel adecuado.
func statusError(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er dto.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Message != "" {
		msg = er.Message
	}
	ne := &domain.NetworkError{Op: op, StatusCode: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		ne.Err = fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case status == http.StatusNotFound:
		ne.Err = fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case status == http.StatusConflict:
		ne.Err = fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		ne.Temporary = true
		ne.Err = fmt.Errorf("HTTP %d: %s", status, msg)
	default:
		ne.Err = fmt.Errorf("%w: HTTP %d: %s", domain.ErrInvalidInput, status, msg)
	}
	return ne
}

// jsonBlockRe captura desde el primer '{' o '[' hasta el último '}' o ']'.
var jsonBlockRe = regexp.MustCompile(`(?s)[\{\[].*[\}\]]`)

// decodeLenient decodifica cuerpos que el modo estricto rechaza: texto en ISO-8859-1
// o JSON rodeado de basura (BOM, HTML de un proxy, bytes sobrantes).
func decodeLenient(op string, body []byte, out any) error {
	text := body
	if !utf8.Valid(text) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(text)
		if err == nil {
			text = decoded
		}
	}
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "\ufeff")
	if json.Valid([]byte(s)) {
		return json.Unmarshal([]byte(s), out)
	}
	match := jsonBlockRe.FindString(s)
	if match == "" {
		return &DecodeError{Op: op, Snippet: snippet(body), Err: errors.New("sin bloque JSON")}
	}
	if err := json.Unmarshal([]byte(match), out); err != nil {
		return &DecodeError{Op: op, Snippet: snippet(body), Err: err}
	}
	return nil
}

func snippet(b []byte) string {
	if len(b) > 120 {
		b = b[:120]
	}
	return string(b)
}

func tenantPath(tenant, rest string) string {
	return "/tenants/" + url.PathEscape(tenant) + rest
}
