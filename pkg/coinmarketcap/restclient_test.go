package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const dogeResponse = `{
  "status": {"error_code": 0, "error_message": null, "credit_count": 1},
  "data": {
    "DOGE": {
      "name": "Dogecoin",
      "symbol": "DOGE",
      "quote": {
        "USD": {
          "price": 0.1234567,
          "percent_change_24h": -2.5,
          "market_cap": 17900000000.5,
          "last_updated": "2024-05-01T12:00:00.000Z"
        }
      }
    }
  }
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/cryptocurrency/quotes/latest", r.URL.Path)
		require.Equal(t, "DOGE", r.URL.Query().Get("symbol"))
		require.Equal(t, "USD", r.URL.Query().Get("convert"))
		require.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// go test -v --run TestLatestQuote
func TestLatestQuote(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, dogeResponse)
	client := NewRESTClient(srv.URL+"/", "test-key", 5*time.Second)

	quote, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.NoError(t, err)
	require.Equal(t, "Dogecoin", quote.Name)
	require.InDelta(t, 0.1234567, quote.Price, 1e-12)
	require.InDelta(t, -2.5, quote.PercentChange24h, 1e-12)
	require.InDelta(t, 17900000000.5, quote.MarketCap, 1e-3)
	require.Equal(t, 2024, quote.LastUpdated.Year())
}

func TestLatestQuoteMissingField(t *testing.T) {
	body := `{"status":{"error_code":0},"data":{"DOGE":{"quote":{"USD":{"price":0.1}}}}}`
	srv := newTestServer(t, http.StatusOK, body)
	client := NewRESTClient(srv.URL, "test-key", 5*time.Second)

	_, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.ErrorIs(t, err, ErrMalformed)
	require.Contains(t, err.Error(), "percent_change_24h")
	require.Contains(t, err.Error(), "market_cap")
}

func TestLatestQuoteMissingSymbol(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"status":{"error_code":0},"data":{}}`)
	client := NewRESTClient(srv.URL, "test-key", 5*time.Second)

	_, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestLatestQuoteMalformedJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `<html>oops`)
	client := NewRESTClient(srv.URL, "test-key", 5*time.Second)

	_, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestLatestQuoteAPIError(t *testing.T) {
	body := `{"status":{"error_code":1002,"error_message":"API key missing."}}`
	srv := newTestServer(t, http.StatusUnauthorized, body)
	client := NewRESTClient(srv.URL, "test-key", 5*time.Second)

	_, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key missing.")
	require.NotErrorIs(t, err, ErrMalformed)
}

func TestLatestQuoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "test-key", 50*time.Millisecond)
	_, err := client.LatestQuote(context.Background(), "DOGE", "USD")
	require.Error(t, err)
}
