// Package coinmarketcap is a minimal client for the CoinMarketCap Pro API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMalformed is returned when the response decodes but lacks required data.
var ErrMalformed = errors.New("coinmarketcap: malformed response")

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LatestQuote fetches the latest quote of symbol converted to convert.
func (c *RESTClient) LatestQuote(ctx context.Context, symbol, convert string) (*Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("convert", convert)
	endpoint := c.baseURL + "/v1/cryptocurrency/quotes/latest?" + params.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rawResp QuotesLatestResponse
	decodeErr := json.Unmarshal(body, &rawResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && rawResp.Status.ErrorMessage != "" {
			return nil, fmt.Errorf("coinmarketcap error: status %d: %s", resp.StatusCode, rawResp.Status.ErrorMessage)
		}
		return nil, fmt.Errorf("coinmarketcap error: status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformed, decodeErr)
	}

	return parseQuote(rawResp, symbol, convert)
}

func parseQuote(rawResp QuotesLatestResponse, symbol, convert string) (*Quote, error) {
	raw, ok := rawResp.Data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no data for %s", ErrMalformed, symbol)
	}

	var coin cryptocurrency
	if err := json.Unmarshal(raw, &coin); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformed, symbol, err)
	}

	fields, ok := coin.Quote[convert]
	if !ok {
		return nil, fmt.Errorf("%w: no %s quote for %s", ErrMalformed, convert, symbol)
	}

	var missing []string
	if fields.Price == nil {
		missing = append(missing, "price")
	}
	if fields.PercentChange24h == nil {
		missing = append(missing, "percent_change_24h")
	}
	if fields.MarketCap == nil {
		missing = append(missing, "market_cap")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}

	quote := &Quote{
		Symbol:           symbol,
		Name:             coin.Name,
		Convert:          convert,
		Price:            *fields.Price,
		PercentChange24h: *fields.PercentChange24h,
		MarketCap:        *fields.MarketCap,
	}
	if t, err := time.Parse(time.RFC3339, fields.LastUpdated); err == nil {
		quote.LastUpdated = t
	}
	return quote, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
