package pullsync

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/domain/entity"
)

// sameText compara textos ignorando espacios de borde y mayúsculas (plegado Unicode).
func sameText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

func clean(s string) string { return strings.TrimSpace(s) }

func status(s string) string {
	if s = clean(s); s == "" {
		return entity.StatusActive
	}
	return strings.ToLower(s)
}

func requireCode(code string) error {
	if code == "" {
		return domain.NewValidationError("code", "código vacío")
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return domain.NewValidationError(field, "valor negativo %s", v.String())
	}
	return nil
}

func percent(field string, v decimal.Decimal) error {
	if err := nonNegative(field, v); err != nil {
		return err
	}
	if v.GreaterThan(decimal.NewFromInt(100)) {
		return domain.NewValidationError(field, "porcentaje mayor a 100: %s", v.String())
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ── Company ──────────────────────────────────────────────────────────────────

func companyFromDTO(d dto.CompanyDTO) *entity.Company {
	return &entity.Company{
		Code: clean(d.Code), Name: clean(d.Name), TradeName: clean(d.TradeName), TaxID: clean(d.TaxID),
		Address: clean(d.Address), City: clean(d.City), State: clean(d.State), Phone: clean(d.Phone),
		Email: clean(d.Email), Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateCompany(c *entity.Company) error {
	if c.Name == "" {
		return domain.NewValidationError("name", "empresa sin nombre")
	}
	return nil
}

func sameCompany(a, b *entity.Company) bool {
	return sameText(a.Code, b.Code) && sameText(a.Name, b.Name) && sameText(a.TradeName, b.TradeName) &&
		sameText(a.TaxID, b.TaxID) && sameText(a.Address, b.Address) && sameText(a.City, b.City) &&
		sameText(a.State, b.State) && sameText(a.Phone, b.Phone) && sameText(a.Email, b.Email) &&
		sameText(a.Status, b.Status)
}

// ── Parameter ────────────────────────────────────────────────────────────────

func parameterFromDTO(d dto.ParameterDTO) *entity.Parameter {
	return &entity.Parameter{
		ProductVersion: d.ProductVersion, ClientVersion: d.ClientVersion, SalespersonVersion: d.SalespersonVersion,
		PaymentTermVersion: d.PaymentTermVersion, RouteVersion: d.RouteVersion,
		DefaultSalesperson: clean(d.DefaultSalesperson), PriceDecimals: d.PriceDecimals,
		QuantityDecimals: d.QuantityDecimals, Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateParameter(p *entity.Parameter) error {
	if p.PriceDecimals < 0 || p.PriceDecimals > 6 {
		return domain.NewValidationError("price_decimals", "fuera de rango: %d", p.PriceDecimals)
	}
	if p.QuantityDecimals < 0 || p.QuantityDecimals > 6 {
		return domain.NewValidationError("quantity_decimals", "fuera de rango: %d", p.QuantityDecimals)
	}
	return nil
}

func sameParameter(a, b *entity.Parameter) bool {
	return a.ProductVersion == b.ProductVersion && a.ClientVersion == b.ClientVersion &&
		a.SalespersonVersion == b.SalespersonVersion && a.PaymentTermVersion == b.PaymentTermVersion &&
		a.RouteVersion == b.RouteVersion && sameText(a.DefaultSalesperson, b.DefaultSalesperson) &&
		a.PriceDecimals == b.PriceDecimals && a.QuantityDecimals == b.QuantityDecimals && sameText(a.Status, b.Status)
}

// ── Product ──────────────────────────────────────────────────────────────────

func productFromDTO(d dto.ProductDTO) *entity.Product {
	return &entity.Product{
		Code: clean(d.Code), Description: clean(d.Description), Unit: clean(d.Unit), Price: d.Price, Stock: d.Stock,
		DecimalPlaces: d.DecimalPlaces, MaxDiscountPct: d.MaxDiscountPct, CommissionPct: d.CommissionPct,
		Version: d.Version, Barcode: clean(d.Barcode), Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateProduct(p *entity.Product) error {
	var places error
	if p.DecimalPlaces < 0 {
		places = domain.NewValidationError("decimal_places", "valor negativo %d", p.DecimalPlaces)
	}
	return firstErr(requireCode(p.Code), nonNegative("price", p.Price), percent("max_discount_pct", p.MaxDiscountPct),
		percent("commission_pct", p.CommissionPct), places)
}

func sameProduct(a, b *entity.Product) bool {
	return sameText(a.Description, b.Description) && sameText(a.Unit, b.Unit) && a.Price.Equal(b.Price) &&
		a.Stock.Equal(b.Stock) && a.DecimalPlaces == b.DecimalPlaces && a.MaxDiscountPct.Equal(b.MaxDiscountPct) &&
		a.CommissionPct.Equal(b.CommissionPct) && a.Version == b.Version && sameText(a.Barcode, b.Barcode) &&
		sameText(a.Status, b.Status)
}

// ── Client ───────────────────────────────────────────────────────────────────

func clientFromDTO(d dto.ClientDTO) *entity.Client {
	return &entity.Client{
		Code: clean(d.Code), Name: clean(d.Name), TradeName: clean(d.TradeName), TaxID: clean(d.TaxID),
		Address: clean(d.Address), City: clean(d.City), State: clean(d.State), Phone: clean(d.Phone),
		Email: clean(d.Email), CreditLimit: d.CreditLimit, SalespersonCode: clean(d.SalespersonCode),
		RouteCode: clean(d.RouteCode), PaymentTermCode: clean(d.PaymentTermCode), Status: status(d.Status),
		RegisteredAt: d.RegisteredAt,
	}
}

func validateClient(c *entity.Client) error {
	return firstErr(requireCode(c.Code), nonNegative("credit_limit", c.CreditLimit))
}

func sameClient(a, b *entity.Client) bool {
	return sameText(a.Name, b.Name) && sameText(a.TradeName, b.TradeName) && sameText(a.TaxID, b.TaxID) &&
		sameText(a.Address, b.Address) && sameText(a.City, b.City) && sameText(a.State, b.State) &&
		sameText(a.Phone, b.Phone) && sameText(a.Email, b.Email) && a.CreditLimit.Equal(b.CreditLimit) &&
		sameText(a.SalespersonCode, b.SalespersonCode) && sameText(a.RouteCode, b.RouteCode) &&
		sameText(a.PaymentTermCode, b.PaymentTermCode) && sameText(a.Status, b.Status)
}

// ── Salesperson / Route ──────────────────────────────────────────────────────

func salespersonFromDTO(d dto.SalespersonDTO) *entity.Salesperson {
	return &entity.Salesperson{
		Code: clean(d.Code), Name: clean(d.Name), RouteCode: clean(d.RouteCode), Phone: clean(d.Phone),
		Email: clean(d.Email), Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateSalesperson(s *entity.Salesperson) error { return requireCode(s.Code) }

func sameSalesperson(a, b *entity.Salesperson) bool {
	return sameText(a.Name, b.Name) && sameText(a.RouteCode, b.RouteCode) && sameText(a.Phone, b.Phone) &&
		sameText(a.Email, b.Email) && sameText(a.Status, b.Status)
}

func routeFromDTO(d dto.RouteDTO) *entity.Route {
	return &entity.Route{
		Code: clean(d.Code), Description: clean(d.Description), SalespersonCode: clean(d.SalespersonCode),
		Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateRoute(r *entity.Route) error { return requireCode(r.Code) }

func sameRoute(a, b *entity.Route) bool {
	return sameText(a.Description, b.Description) && sameText(a.SalespersonCode, b.SalespersonCode) &&
		sameText(a.Status, b.Status)
}

// ── PaymentTerm ──────────────────────────────────────────────────────────────

func paymentTermFromDTO(d dto.PaymentTermDTO) *entity.PaymentTerm {
	return &entity.PaymentTerm{
		Code: clean(d.Code), Description: clean(d.Description), SurchargePct: d.SurchargePct,
		DiscountPct: d.DiscountPct, Installments: d.Installments, Status: status(d.Status),
		RegisteredAt: d.RegisteredAt,
	}
}

func validatePaymentTerm(p *entity.PaymentTerm) error {
	return firstErr(requireCode(p.Code), percent("surcharge_pct", p.SurchargePct), percent("discount_pct", p.DiscountPct))
}

func samePaymentTerm(a, b *entity.PaymentTerm) bool {
	return sameText(a.Description, b.Description) && a.SurchargePct.Equal(b.SurchargePct) &&
		a.DiscountPct.Equal(b.DiscountPct) && a.Installments == b.Installments && sameText(a.Status, b.Status)
}

// ── User ─────────────────────────────────────────────────────────────────────

func userFromDTO(d dto.UserDTO) *entity.User {
	return &entity.User{
		Username: clean(d.Username), Name: clean(d.Name), PasswordHash: d.PasswordHash, Token: d.Token,
		SalespersonCode: clean(d.SalespersonCode), Status: status(d.Status), RegisteredAt: d.RegisteredAt,
	}
}

func validateUser(u *entity.User) error {
	if u.Username == "" {
		return domain.NewValidationError("username", "usuario vacío")
	}
	return nil
}

// Hash y token se comparan exactos: no son texto de negocio.
func sameUser(a, b *entity.User) bool {
	return sameText(a.Name, b.Name) && a.PasswordHash == b.PasswordHash && a.Token == b.Token &&
		sameText(a.SalespersonCode, b.SalespersonCode) && sameText(a.Status, b.Status)
}
