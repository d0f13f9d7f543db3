package central

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/pkg/jwt"
)

// SeedUser usuario de la semilla con contraseña en claro; se guarda solo el hash bcrypt
// junto con un token emitido para el usuario.
type SeedUser struct {
	dto.UserDTO
	Password string `json:"password"`
}

// Seed datos de catálogo de un tenant para cargar el servidor de referencia.
type Seed struct {
	Tenant       string               `json:"tenant"`
	Company      *dto.CompanyDTO      `json:"company"`
	Parameters   *dto.ParameterDTO    `json:"parameters"`
	Products     []dto.ProductDTO     `json:"products"`
	Clients      []dto.ClientDTO      `json:"clients"`
	Salespeople  []dto.SalespersonDTO `json:"salespeople"`
	PaymentTerms []dto.PaymentTermDTO `json:"payment_terms"`
	Routes       []dto.RouteDTO       `json:"routes"`
	Users        []SeedUser           `json:"users"`
	Images       []dto.ImageEntryDTO  `json:"images"`
}

// LoadSeeds lee un arreglo JSON de semillas.
func LoadSeeds(r io.Reader) ([]Seed, error) {
	var seeds []Seed
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return seeds, nil
}

// Seed carga (o reemplaza) el catálogo del tenant. Cada recurso se escribe en su propia transacción.
func (uc *UseCase) Seed(ctx context.Context, s Seed) error {
	tenant, err := NormalizeTenant(s.Tenant)
	if err != nil {
		return err
	}

	users := make([]dto.UserDTO, 0, len(s.Users))
	for _, u := range s.Users {
		if u.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password %s: %w", u.Username, err)
			}
			u.PasswordHash = string(hash)
		}
		// Token que el dispositivo usa tras un login offline.
		if u.Token == "" {
			token, err := jwt.Generate(uc.tokens.Secret, u.Username, tenant, u.SalespersonCode, uc.tokens.Issuer, uc.tokens.Expiration)
			if err != nil {
				return fmt.Errorf("token de %s: %w", u.Username, err)
			}
			u.Token = token
		}
		users = append(users, u.UserDTO)
	}

	steps := []seedStep{
		single(ResourceCompany, s.Company),
		single(ResourceParameters, s.Parameters),
		keyed(ResourceProducts, s.Products, func(p dto.ProductDTO) string { return p.Code }),
		keyed(ResourceClients, s.Clients, func(c dto.ClientDTO) string { return c.Code }),
		keyed(ResourceSalespeople, s.Salespeople, func(p dto.SalespersonDTO) string { return p.Code }),
		keyed(ResourcePaymentTerms, s.PaymentTerms, func(p dto.PaymentTermDTO) string { return p.Code }),
		keyed(ResourceRoutes, s.Routes, func(r dto.RouteDTO) string { return r.Code }),
		keyed(ResourceUsers, users, func(u dto.UserDTO) string { return u.Username }),
		keyed(ResourceImages, s.Images, func(e dto.ImageEntryDTO) string { return e.ProductCode }),
	}
	for _, st := range steps {
		if st.err != nil {
			return st.err
		}
		if len(st.docs) == 0 {
			continue
		}
		if err := uc.store.PutDocuments(ctx, tenant, st.resource, st.docs); err != nil {
			return fmt.Errorf("seed %s: %w", st.resource, err)
		}
	}
	uc.log.Info().Str("tenant", tenant).Int("products", len(s.Products)).Int("clients", len(s.Clients)).
		Int("users", len(users)).Msg("semilla cargada")
	return nil
}

type seedStep struct {
	resource string
	docs     map[string][]byte
	err      error
}

func single[T any](resource string, v *T) seedStep {
	st := seedStep{resource: resource}
	if v == nil {
		return st
	}
	raw, err := json.Marshal(v)
	if err != nil {
		st.err = fmt.Errorf("encode %s: %w", resource, err)
		return st
	}
	st.docs = map[string][]byte{singletonKey: raw}
	return st
}

func keyed[T any](resource string, items []T, key func(T) string) seedStep {
	st := seedStep{resource: resource, docs: make(map[string][]byte, len(items))}
	for _, it := range items {
		k := key(it)
		if k == "" {
			st.err = fmt.Errorf("seed %s: clave vacía", resource)
			return st
		}
		raw, err := json.Marshal(it)
		if err != nil {
			st.err = fmt.Errorf("encode %s/%s: %w", resource, k, err)
			return st
		}
		st.docs[k] = raw
	}
	return st
}
