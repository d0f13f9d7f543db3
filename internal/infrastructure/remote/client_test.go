package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/infrastructure/remote"
	"github.com/jhoicas/preventa/pkg/config"
	"github.com/jhoicas/preventa/pkg/logger"
	"github.com/jhoicas/preventa/pkg/retry"
)

const tenant = "12345678000199"

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newClient(t *testing.T, h http.Handler) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return remote.NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, RawTimeout: 10 * time.Second},
		staticToken("tok"), logger.Nop())
}

func TestFetchProducts_PaginaYCredencial(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tenants/"+tenant+"/products", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"code":"P1","description":"Café","price":"10.00","max_discount_pct":10}],"page":{"page":2,"limit":50}}`)
	}))

	items, err := c.FetchProducts(context.Background(), tenant, 2, 50)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "P1", items[0].Code)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, items[0].MaxDiscountPct.Equal(decimal.NewFromInt(10)))
}

func TestStatusHTTP_TraduccionDeErrores(t *testing.T) {
	cases := []struct {
		status    int
		sentinel  error
		retryable bool
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized, false},
		{http.StatusForbidden, domain.ErrUnauthorized, false},
		{http.StatusNotFound, domain.ErrNotFound, false},
		{http.StatusConflict, domain.ErrConflict, false},
		{http.StatusBadRequest, domain.ErrInvalidInput, false},
		{http.StatusServiceUnavailable, nil, true},
		{http.StatusTooManyRequests, nil, true},
	}
	for _, tc := range cases {
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"code":"x","message":"detalle"}`)
		}))
		_, err := c.FetchCompany(context.Background(), tenant)
		require.Error(t, err, tc.status)

		var ne *domain.NetworkError
		require.True(t, errors.As(err, &ne), tc.status)
		assert.Equal(t, tc.status, ne.StatusCode)
		if tc.sentinel != nil {
			assert.ErrorIs(t, err, tc.sentinel, tc.status)
		}
		assert.Contains(t, err.Error(), "detalle")
		assert.Equal(t, tc.retryable, domain.IsRetryable(err), tc.status)
		assert.False(t, remote.IsUnreachable(err), tc.status)
	}
}

func TestModoCrudo_DecodificaLatin1ConBasura(t *testing.T) {
	body := []byte("<html>proxy</html>\n" + `{"items":[{"code":"P1","description":"Caf` + "\xe9" + `","price":10}]}` + "\n--")
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))

	_, err := c.FetchProducts(context.Background(), tenant, 1, 10)
	var de *remote.DecodeError
	require.True(t, errors.As(err, &de), "modo estricto rechaza el cuerpo")
	assert.True(t, remote.IsUnreachable(err))

	items, err := c.FetchProducts(remote.WithRawMode(context.Background()), tenant, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café", items[0].Description)
}

func TestRetryPolicy_ReintentoCrudoUnaVez(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "\ufeff garbage "+`{"items":[{"code":"P1","price":1}]}`)
	}))

	p := remote.RetryPolicy(config.RetryConfig{Attempts: 3})
	p.Sleep = func(context.Context, time.Duration) error { return nil }

	items, err := retry.Do(context.Background(), p, func(ctx context.Context) ([]dto.ProductDTO, error) {
		return c.FetchProducts(ctx, tenant, 1, 10)
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), hits.Load(), "intento normal + reintento crudo")
}

func TestRetryPolicy_Valores(t *testing.T) {
	p := remote.RetryPolicy(config.RetryConfig{})
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 1500*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2.0, p.Factor)
	assert.NotNil(t, p.Fallback)
	assert.True(t, remote.IsRawMode(p.Fallback(context.Background())))
	assert.False(t, remote.IsRawMode(context.Background()))
}

func TestIsUnreachable_ServidorCaido(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := remote.NewClient(config.APIConfig{BaseURL: base, Timeout: time.Second}, staticToken("tok"), logger.Nop())
	_, err := c.FetchCompany(context.Background(), tenant)
	require.Error(t, err)
	assert.True(t, remote.IsUnreachable(err))
	assert.True(t, domain.IsRetryable(err))

	assert.False(t, remote.IsUnreachable(nil))
	assert.False(t, remote.IsUnreachable(errors.New("cualquier cosa")))
	assert.False(t, remote.IsUnreachable(context.Canceled))
}

func TestSubmitOrder_EnviaClaveDeIdempotencia(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/tenants/"+tenant+"/orders/7", r.URL.Path)
		assert.Equal(t, "k-7", r.Header.Get("Idempotency-Key"))
		var sub dto.OrderSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Len(t, sub.Lines, 1)
		_ = json.NewEncoder(w).Encode(dto.OrderReceipt{DocumentNumber: sub.DocumentNumber, SyncKey: sub.SyncKey, NetTotal: sub.NetTotal})
	}))

	receipt, err := c.SubmitOrder(context.Background(), tenant, dto.OrderSubmission{
		DocumentNumber: 7, SyncKey: "k-7", NetTotal: decimal.RequireFromString("18.00"),
		Lines: []dto.OrderLineDTO{{ProductCode: "P1"}},
	}, "k-7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.DocumentNumber)
	assert.True(t, receipt.NetTotal.Equal(decimal.NewFromInt(18)))
}

func TestSinCredencial_NoLlamaAlServidor(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	c := remote.NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, nil, logger.Nop())
	_, err := c.FetchCompany(context.Background(), tenant)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, hits.Load())
}

func TestDownload_URLRelativa(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/P1.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))

	data, err := c.Download(context.Background(), "files/P1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	_, err = c.Download(context.Background(), "/files/otro.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownload_ImagenMayorAlMaximoFalla(t *testing.T) {
	const limit = 32 << 20
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1<<20)
		for i := 0; i < 33; i++ {
			_, _ = w.Write(chunk)
		}
	}))

	data, err := c.Download(context.Background(), "files/grande.jpg")
	require.Error(t, err)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, remote.ErrBodyTooLarge)
	assert.False(t, domain.IsRetryable(err))
	assert.False(t, remote.IsUnreachable(err))

	exact := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, limit))
	}))
	data, err = exact.Download(context.Background(), "files/justo.jpg")
	require.NoError(t, err)
	assert.Len(t, data, limit)
}

func TestRespuestaJSONMayorAlMaximoFalla(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		chunk := make([]byte, 1<<20)
		for i := range chunk {
			chunk[i] = ' '
		}
		_, _ = w.Write([]byte(`{"items":[]`))
		for i := 0; i < 17; i++ {
			_, _ = w.Write(chunk)
		}
		_, _ = w.Write([]byte(`}`))
	}))

	_, err := c.FetchProducts(context.Background(), tenant, 1, 10)
	assert.ErrorIs(t, err, remote.ErrBodyTooLarge)
}
