package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/config"
	"github.com/romanpTAMU/astro-llm/pkg/httputil"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
	"github.com/romanpTAMU/astro-llm/pkg/redis"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Timeout: 2 * time.Second},
		Quote: config.QuoteConfig{
			BaseURL:   server.URL,
			APIKey:    "secret",
			RateLimit: 100,
			CacheTTL:  time.Minute,
		},
	}
	rdb, err := redis.New(cfg)
	require.NoError(t, err)

	httpClient := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(httpClient, redis.NewCache(rdb, "astro"), cfg.Quote, logger.Nop()), &calls
}

func quoteHandler(prices map[string]float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.TrimPrefix(r.URL.Path, "/quote-short/")
		price, ok := prices[ticker]
		if !ok {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"symbol":%q,"price":%v,"volume":1000}]`, ticker, price)
	}
}

func TestGetCurrentPrice(t *testing.T) {
	var gotKey string
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		quoteHandler(map[string]float64{"AAPL": 201.25})(w, r)
	})

	price, err := client.GetCurrentPrice(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, 201.25, price)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGetCurrentPrice_WithoutCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		quoteHandler(map[string]float64{"NVDA": 120.5})(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		HTTP:  config.HTTPConfig{Timeout: 2 * time.Second},
		Quote: config.QuoteConfig{BaseURL: server.URL, RateLimit: 100},
	}
	client := NewClient(httputil.New(cfg, logger.Nop()).DisableRetry(), nil, cfg.Quote, logger.Nop())

	for i := 0; i < 2; i++ {
		price, err := client.GetCurrentPrice(context.Background(), "NVDA")
		require.NoError(t, err)
		assert.Equal(t, 120.5, price)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetCurrentPrice_SharedLimiterDisabled(t *testing.T) {
	client, calls := newTestClient(t, quoteHandler(map[string]float64{"MSFT": 410}))
	rdb, err := redis.New(&config.Config{})
	require.NoError(t, err)
	client.WithSharedLimiter(redis.NewRateLimiter(rdb, "astro"))

	price, err := client.GetCurrentPrice(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 410.0, price)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGetCurrentPrice_Missing(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty body", quoteHandler(nil)},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"zero price", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"symbol":"XYZ","price":0}]`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.GetCurrentPrice(context.Background(), "XYZ")
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrMissingInput))
		})
	}
}

func TestGetCurrentPrice_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetCurrentPrice(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, contracts.ErrMissingInput))

	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.NotContains(t, se.URL, "secret")
}
