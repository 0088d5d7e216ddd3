package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tickerboard/internal/domain"
	"tickerboard/internal/infra"

	"github.com/shopspring/decimal"
)

const maxAttempts = 3

// marketCoin is one row of the /coins/markets response.
type marketCoin struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Image         string   `json:"image"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	TotalVolume   decimal.NullDecimal `json:"total_volume"`
	MarketCapRank int                 `json:"market_cap_rank"`
}

// Client fetches the top crypto assets by market cap.
type Client struct {
	apiURL     string
	httpClient *http.Client
	retryDelay time.Duration // first backoff step, doubled per attempt
}

// NewClient creates a client for the markets endpoint. An empty apiURL uses the public API.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = infra.DefaultCatalogURL
	}
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelay: time.Second,
	}
}

// FetchTop returns the top n assets ordered by market cap, with 3 attempts and backoff (1s, 2s).
// Non-retriable failures (4xx other than 408/429, undecodable bodies) stop after one attempt.
func (c *Client) FetchTop(ctx context.Context, n int) ([]domain.CatalogEntry, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			delay := c.retryDelay << uint(i-1)
			slog.Info("Retrying catalog fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		entries, err := c.doFetch(ctx, n)
		if err == nil {
			return entries, nil
		}
		lastErr = err
		slog.Warn("Catalog fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
		if !domain.IsRetriable(err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, lastErr)
}

func (c *Client) doFetch(ctx context.Context, n int) ([]domain.CatalogEntry, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, domain.NewFatalNetworkError("parse url", err)
	}
	q := u.Query()
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(n))
	q.Set("page", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.NewFatalNetworkError("request", err)
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("read", err)
	}

	var coins []marketCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, domain.NewFatalNetworkError("decode", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err))
	}
	if len(coins) == 0 {
		return nil, domain.NewNetworkError("decode", errors.New("empty response from catalog API"))
	}

	entries := make([]domain.CatalogEntry, 0, len(coins))
	for _, coin := range coins {
		if e, ok := toEntry(coin); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// statusError classifies a non-200 reply. Rate limits, timeouts and 5xx are worth retrying.
func statusError(code int) error {
	err := fmt.Errorf("unexpected status code: %d", code)
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return domain.NewNetworkError("status", err)
	default:
		return domain.NewFatalNetworkError("status", err)
	}
}

// toEntry adapts a market row to a catalog entry ("btc" -> "BTC-USD").
// Rows without a symbol or a price are skipped.
func toEntry(m marketCoin) (domain.CatalogEntry, bool) {
	sym := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if sym == "" || !m.CurrentPrice.Valid {
		return domain.CatalogEntry{}, false
	}

	e := domain.CatalogEntry{
		Symbol: sym + "-USD",
		Name:   m.Name,
		Class:  domain.ClassCrypto,
		Price:  m.CurrentPrice.Decimal,
	}
	if m.TotalVolume.Valid {
		e.Volume = m.TotalVolume.Decimal
	}
	return e, true
}
