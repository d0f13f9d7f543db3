// Package auth inicia sesión en el dispositivo (contra los usuarios sincronizados o contra el
// servidor) y guarda la credencial del tenant usada por las llamadas remotas.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/application/ports"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
	"github.com/jhoicas/preventa/internal/domain/repository"
	"github.com/jhoicas/preventa/pkg/jwt"
	"github.com/jhoicas/preventa/pkg/logger"
)

var _ ports.TokenSource = (*Credentials)(nil)

// Credentials credencial del tenant guardada en la tabla config (auth.token / auth.username).
type Credentials struct {
	store repository.TenantStore
	now   func() time.Time
}

// NewCredentials construye el almacén de credenciales sobre la base del tenant.
func NewCredentials(store repository.TenantStore) *Credentials {
	return &Credentials{store: store, now: time.Now}
}

// Token devuelve el token vigente. Sin token: domain.ErrUnauthorized; vencido: domain.ErrTokenExpired.
// La firma no se verifica: el dispositivo no conoce el secret, solo mira la expiración.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	token, ok, err := c.store.Repos().Config.Get(ctx, repository.ConfigAuthToken)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("sin sesión: %w", domain.ErrUnauthorized)
	}
	exp, hasExp, err := jwt.ExpiresAt(token)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	if hasExp && !c.now().Before(exp) {
		return "", fmt.Errorf("token vencido el %s: %w", exp.Format(time.RFC3339), domain.ErrTokenExpired)
	}
	return token, nil
}

// Username usuario de la sesión actual ("" si no hay).
func (c *Credentials) Username(ctx context.Context) (string, error) {
	v, _, err := c.store.Repos().Config.Get(ctx, repository.ConfigAuthUsername)
	return v, err
}

// Save guarda token y usuario en una transacción.
func (c *Credentials) Save(ctx context.Context, username, token string) error {
	return c.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := r.Config.Set(ctx, repository.ConfigAuthToken, token); err != nil {
			return err
		}
		return r.Config.Set(ctx, repository.ConfigAuthUsername, username)
	})
}

// Clear cierra la sesión.
func (c *Credentials) Clear(ctx context.Context) error {
	return c.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := r.Config.Delete(ctx, repository.ConfigAuthToken); err != nil {
			return err
		}
		return r.Config.Delete(ctx, repository.ConfigAuthUsername)
	})
}

// UseCase casos de uso de autenticación del dispositivo.
type UseCase struct {
	store   repository.TenantStore
	gateway ports.AuthGateway
	creds   *Credentials
	log     *logger.Logger
}

// NewUseCase construye el caso de uso. gateway puede ser nil si solo se usa el login offline.
func NewUseCase(store repository.TenantStore, gateway ports.AuthGateway, creds *Credentials, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	if creds == nil {
		creds = NewCredentials(store)
	}
	return &UseCase{store: store, gateway: gateway, creds: creds, log: log.Component("auth").Tenant(store.Tenant())}
}

// Login verifica usuario y contraseña contra el hash bcrypt sincronizado y deja como credencial
// del tenant el token que el servidor emitió para ese usuario.
func (uc *UseCase) Login(ctx context.Context, username, password string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	user, err := uc.store.Repos().Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.PasswordHash == "" {
		return nil, fmt.Errorf("usuario %s sin contraseña sincronizada: %w", username, domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.StatusActive {
		return nil, fmt.Errorf("usuario %s inactivo: %w", username, domain.ErrUnauthorized)
	}
	if err := uc.creds.Save(ctx, user.Username, user.Token); err != nil {
		return nil, err
	}
	uc.log.Info().Str("username", user.Username).Msg("login offline")
	return user, nil
}

// OnlineLogin autentica contra el servidor y guarda el token devuelto. El usuario local se
// crea o se actualiza con el nuevo token.
func (uc *UseCase) OnlineLogin(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	if uc.gateway == nil {
		return nil, errors.New("auth: login remoto no configurado")
	}
	username = strings.TrimSpace(username)
	resp, err := uc.gateway.Login(ctx, dto.LoginRequest{Tenant: uc.store.Tenant(), Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: el servidor no devolvió token: %w", domain.ErrUnauthorized)
	}

	err = uc.store.RunInTx(ctx, func(r repository.Repositories) error {
		user, err := r.Users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return r.Users.Create(ctx, &entity.User{
				Username:        username,
				Name:            resp.User.Name,
				Token:           resp.Token,
				SalespersonCode: resp.User.SalespersonCode,
				Status:          entity.StatusActive,
			})
		}
		user.Token = resp.Token
		return r.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	if err := uc.creds.Save(ctx, username, resp.Token); err != nil {
		return nil, err
	}
	uc.log.Info().Str("username", username).Msg("login en línea")
	return resp, nil
}

// Logout borra la credencial del tenant.
func (uc *UseCase) Logout(ctx context.Context) error {
	return uc.creds.Clear(ctx)
}
