package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jhoicas/preventa/internal/application/dto"
	"github.com/jhoicas/preventa/internal/domain"
)

// ImageManifest GET /tenants/{tenant}/images.
func (c *Client) ImageManifest(ctx context.Context, tenant string) ([]dto.ImageEntryDTO, error) {
	var out []dto.ImageEntryDTO
	err := c.do(ctx, request{op: "image manifest", method: http.MethodGet, path: tenantPath(tenant, "/images"), auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Download baja el archivo de imagen. Una URL relativa se resuelve contra la base del API.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u := rawURL
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(u, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("download: crear HTTP request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		return nil, &domain.NetworkError{Op: "download", Err: err}
	}

	hc := c.http
	if IsRawMode(ctx) {
		hc = c.raw
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("download: %w", ctx.Err())
		}
		return nil, &domain.NetworkError{Op: "download", Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	data, truncated, err := readLimited(resp.Body, maxImageBytes)
	if err != nil {
		return nil, &domain.NetworkError{Op: "download", StatusCode: resp.StatusCode, Temporary: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("download", resp.StatusCode, data)
	}
	if truncated {
		return nil, tooLarge("download", resp.StatusCode, maxImageBytes)
	}
	return data, nil
}
