package csqaq

// client.go — fuente de precios de referencia. Todas las llamadas pasan por
// el guard compartido: el límite del upstream es por credencial, no por scan.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ratelimit"
)

const (
	defaultBase = "https://api.csqaq.com"
	sourceID    = "csqaq"

	maxRetries    = 2
	baseRetryWait = 400 * time.Millisecond
)

// Client implementa ports.PriceProvider contra la API de referencia.
type Client struct {
	http   *http.Client
	base   string
	apiKey string
	guard  *ratelimit.Guard
}

// NewClient crea un Client. Si base está vacío usa el URL de producción.
func NewClient(base, apiKey string, guard *ratelimit.Guard) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:   &http.Client{Timeout: 10 * time.Second},
		base:   base,
		apiKey: apiKey,
		guard:  guard,
	}
}

// FetchPrice devuelve la muestra de precio/volumen de referencia del ítem.
func (c *Client) FetchPrice(ctx context.Context, catalogKey string) (domain.PriceSample, error) {
	if err := c.guard.Acquire(ctx); err != nil {
		return domain.PriceSample{}, fmt.Errorf("csqaq.FetchPrice: %w", err)
	}

	q := url.Values{}
	q.Set("market_hash_name", catalogKey)

	var resp goodPriceResponse
	if err := c.get(ctx, c.base+"/api/v1/goods/price?"+q.Encode(), &resp); err != nil {
		return domain.PriceSample{}, fmt.Errorf("csqaq.FetchPrice: %q: %w", catalogKey, err)
	}
	if resp.Code != 0 {
		return domain.PriceSample{}, fmt.Errorf("csqaq.FetchPrice: %q: api code %d: %s",
			catalogKey, resp.Code, resp.Msg)
	}

	return mapPriceSample(catalogKey, resp.Data), nil
}

// get hace un GET autenticado con retries para errores transitorios. Un 429
// actualiza el cooldown compartido y nunca se reintenta inline.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("ApiToken", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			window := c.guard.ReportRateLimited()
			slog.Warn("rate limited by reference source", "cooldown", window)
			return fmt.Errorf("csqaq: %w", domain.ErrRateLimited)
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		c.guard.ReportSuccess()
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
