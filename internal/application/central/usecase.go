// Package central implementa el servidor central de referencia (catálogo, login, recepción de
// pedidos) contra el que sincronizan los dispositivos en desarrollo y en pruebas de punta a punta.
package central

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/pkg/jwt"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/taxid"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// TokenConfig emisión de JWT.
type TokenConfig struct {
	Secret     string
	Issuer     string
	Expiration int // minutos
}

// UseCase casos de uso del servidor central.
type UseCase struct {
	store  Store
	tokens TokenConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(store Store, tokens TokenConfig, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{store: store, tokens: tokens, log: log.Component("central"), now: time.Now}
}

// NormalizeTenant valida el tax id del path.
func NormalizeTenant(tenant string) (string, error) {
	id, err := taxid.Normalize(tenant)
	if err != nil {
		return "", domain.NewValidationError("tenant", "%v", err)
	}
	return id, nil
}

// Login valida usuario y contraseña del tenant y emite un JWT con tenant y vendedor.
func (uc *UseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	tenant, err := NormalizeTenant(in.Tenant)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.NewValidationError("username", "usuario y contraseña son requeridos")
	}
	var user dto.UserDTO
	found, err := uc.get(ctx, tenant, ResourceUsers, username, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != "" && user.Status != "active" {
		return nil, fmt.Errorf("usuario inactivo: %w", domain.ErrUnauthorized)
	}
	token, err := jwt.Generate(uc.tokens.Secret, user.Username, tenant, user.SalespersonCode, uc.tokens.Issuer, uc.tokens.Expiration)
	if err != nil {
		return nil, fmt.Errorf("generar token: %w", err)
	}
	user.PasswordHash = ""
	user.Token = ""
	uc.log.Info().Str("tenant", tenant).Str("username", user.Username).Msg("login")
	return &dto.LoginResponse{Token: token, ExpiresIn: uc.tokens.Expiration * 60, User: user}, nil
}

// Company empresa del tenant; domain.ErrNotFound si no se cargó.
func (uc *UseCase) Company(ctx context.Context, tenant string) (*dto.CompanyDTO, error) {
	var out dto.CompanyDTO
	found, err := uc.get(ctx, tenant, ResourceCompany, singletonKey, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &out, nil
}

// Parameters parámetros del tenant; domain.ErrNotFound si no se cargaron.
func (uc *UseCase) Parameters(ctx context.Context, tenant string) (*dto.ParameterDTO, error) {
	var out dto.ParameterDTO
	found, err := uc.get(ctx, tenant, ResourceParameters, singletonKey, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return &out, nil
}

// List página del recurso (page desde 1). Los documentos se devuelven tal como se guardaron.
func (uc *UseCase) List(ctx context.Context, tenant, resource string, page, limit int) ([]json.RawMessage, dto.PageResponse, error) {
	if !slices.Contains(ListResources(), resource) {
		return nil, dto.PageResponse{}, fmt.Errorf("recurso %q: %w", resource, domain.ErrNotFound)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	docs, err := uc.store.ListDocuments(ctx, tenant, resource, (page-1)*limit, limit)
	if err != nil {
		return nil, dto.PageResponse{}, err
	}
	total, err := uc.store.CountDocuments(ctx, tenant, resource)
	if err != nil {
		return nil, dto.PageResponse{}, err
	}
	items := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return items, dto.PageResponse{Page: page, Limit: limit, Total: total}, nil
}

// ImageManifest manifiesto completo de imágenes del tenant.
func (uc *UseCase) ImageManifest(ctx context.Context, tenant string) ([]dto.ImageEntryDTO, error) {
	docs, err := uc.store.ListDocuments(ctx, tenant, ResourceImages, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ImageEntryDTO, 0, len(docs))
	for _, d := range docs {
		var e dto.ImageEntryDTO
		if err := json.Unmarshal(d, &e); err != nil {
			return nil, fmt.Errorf("decode image entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SubmitOrder recibe un pedido de forma idempotente: reenviar el mismo pedido con la misma clave
// devuelve el recibo original (created=false); el mismo número con otra clave es domain.ErrConflict.
func (uc *UseCase) SubmitOrder(ctx context.Context, tenant string, documentNumber int64, idempotencyKey string,
	order dto.OrderSubmission) (receipt *dto.OrderReceipt, created bool, err error) {
	if documentNumber <= 0 || order.DocumentNumber != documentNumber {
		return nil, false, domain.NewValidationError("document_number", "el número del path (%d) no coincide con el del cuerpo (%d)",
			documentNumber, order.DocumentNumber)
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = order.SyncKey
	}
	if key == "" {
		return nil, false, domain.NewValidationError("idempotency_key", "Idempotency-Key o sync_key requerido")
	}
	if order.SyncKey == "" {
		order.SyncKey = key
	}
	if len(order.Lines) == 0 {
		return nil, false, domain.NewValidationError("lines", "el pedido no tiene líneas")
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, false, fmt.Errorf("encode order: %w", err)
	}

	stored := StoredOrder{DocumentNumber: documentNumber, SyncKey: key, NetTotal: order.NetTotal, Payload: payload, ReceivedAt: uc.now().UTC()}
	existing, err := uc.store.InsertOrder(ctx, tenant, stored)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.SyncKey != key {
			return nil, false, fmt.Errorf("pedido %d ya recibido con otra clave: %w", documentNumber, domain.ErrConflict)
		}
		uc.log.Debug().Str("tenant", tenant).Int64("document_number", documentNumber).Msg("pedido repetido")
		return toReceipt(existing), false, nil
	}
	uc.log.Info().Str("tenant", tenant).Int64("document_number", documentNumber).
		Str("net_total", order.NetTotal.String()).Int("lines", len(order.Lines)).Msg("pedido recibido")
	return toReceipt(&stored), true, nil
}

// GetOrder recibo de un pedido recibido; domain.ErrNotFound si no existe.
func (uc *UseCase) GetOrder(ctx context.Context, tenant string, documentNumber int64) (*dto.OrderReceipt, error) {
	o, err := uc.store.GetOrder(ctx, tenant, documentNumber)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return toReceipt(o), nil
}

// Notify registra una solicitud de aviso. La entrega no es parte del servidor de referencia.
func (uc *UseCase) Notify(ctx context.Context, tenant string, req dto.NotificationRequest) error {
	if strings.TrimSpace(req.Type) == "" {
		return domain.NewValidationError("type", "tipo de aviso requerido")
	}
	if err := uc.store.AddNotification(ctx, tenant, req, uc.now().UTC()); err != nil {
		return err
	}
	uc.log.Info().Str("tenant", tenant).Str("type", req.Type).Int64("document_number", req.DocumentNumber).Msg("aviso registrado")
	return nil
}

func (uc *UseCase) get(ctx context.Context, tenant, resource, key string, out any) (bool, error) {
	raw, err := uc.store.GetDocument(ctx, tenant, resource, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", resource, key, err)
	}
	return true, nil
}

func toReceipt(o *StoredOrder) *dto.OrderReceipt {
	return &dto.OrderReceipt{DocumentNumber: o.DocumentNumber, SyncKey: o.SyncKey, NetTotal: o.NetTotal, ReceivedAt: o.ReceivedAt}
}
