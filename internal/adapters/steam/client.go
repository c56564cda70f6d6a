package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ratelimit"
)

const (
	defaultBase = "https://steamcommunity.com"

	// Páginas de búsqueda: límite propio, independiente del guard compartido.
	// El guard protege los endpoints sensibles (pricehistory) compartidos
	// con el cross-reference.
	searchRatePerSec = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client del marketplace primario con rate limiting y
// retries acotados. Implementa ports.ListingProvider y ports.HistoryProvider.
type Client struct {
	http          *http.Client
	base          string
	guard         *ratelimit.Guard
	searchLimiter *rate.Limiter
}

// NewClient crea un Client. Si base está vacío usa el URL de producción.
// El guard es el estado compartido de rate limiting del proceso.
func NewClient(base string, guard *ratelimit.Guard) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		base:          base,
		guard:         guard,
		searchLimiter: rate.NewLimiter(searchRatePerSec, 2),
	}
}

// get hace un GET con retries para errores transitorios. Un 429 actualiza el
// cooldown compartido y se devuelve inmediatamente, nunca se reintenta inline.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Timeout y fallo de conexión se tratan igual: transitorio
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			window := c.guard.ReportRateLimited()
			slog.Warn("rate limited by primary marketplace",
				"cooldown", window,
			)
			return fmt.Errorf("steam: %s: %w", url, domain.ErrRateLimited)
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

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
