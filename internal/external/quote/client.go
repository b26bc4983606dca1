package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/config"
	"github.com/romanpTAMU/astro-llm/pkg/httputil"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
	"github.com/romanpTAMU/astro-llm/pkg/redis"
)

// Client fetches last-trade prices from the quote API
// ⭐ SSOT: 시세 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	limiter    *rate.Limiter
	shared     *redis.RateLimiter // optional, cross-process quota
	cfg        config.QuoteConfig
	logger     *logger.Logger
}

// shortQuote is one element of the /quote-short response
type shortQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// NewClient creates a quote client. cache may be nil.
func NewClient(httpClient *httputil.Client, cache *redis.Cache, cfg config.QuoteConfig, log *logger.Logger) *Client {
	perSecond := cfg.RateLimit
	if perSecond <= 0 {
		perSecond = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = redis.TTLQuote
	}
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), perSecond),
		cfg:        cfg,
		logger:     log.WithComponent("quote"),
	}
}

// WithSharedLimiter adds a Redis-backed quota shared with other processes
func (c *Client) WithSharedLimiter(rl *redis.RateLimiter) *Client {
	c.shared = rl
	return c
}

// GetCurrentPrice implements contracts.PriceSource
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, fmt.Errorf("empty ticker: %w", contracts.ErrMissingInput)
	}

	if c.cache == nil {
		return c.limitedFetch(ctx, ticker)
	}

	key := redis.QuoteKey(ticker)
	var price float64
	err := c.cache.GetOrSet(ctx, key, &price, c.cfg.CacheTTL, func() (interface{}, error) {
		return c.limitedFetch(ctx, ticker)
	})
	if err != nil {
		return 0, err
	}
	if price > 0 {
		return price, nil
	}

	// 잘못 저장된 시세는 지우고 다시 조회
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.WithError(err).Warn("Failed to evict bad cached quote")
	}
	return c.limitedFetch(ctx, ticker)
}

// limitedFetch waits on the local and shared limiters before calling the API
func (c *Client) limitedFetch(ctx context.Context, ticker string) (float64, error) {
	// 프로세스 내 토큰 버킷 (Redis 분산 리밋과 별개)
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("quote rate limit wait failed: %w", err)
	}
	if c.shared != nil {
		if err := c.shared.Wait(ctx, redis.QuoteRateLimit(c.cfg.RateLimit)); err != nil {
			return 0, fmt.Errorf("shared quote rate limit wait failed: %w", err)
		}
	}
	return c.fetch(ctx, ticker)
}

func (c *Client) fetch(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/quote-short/%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(ticker))
	if c.cfg.APIKey != "" {
		endpoint += "?" + url.Values{"apikey": {c.cfg.APIKey}}.Encode()
	}

	var quotes []shortQuote
	if err := c.httpClient.GetJSON(ctx, endpoint, &quotes); err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return 0, fmt.Errorf("no quote for %s: %w", ticker, contracts.ErrMissingInput)
		}
		return 0, fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
	}

	for _, q := range quotes {
		if strings.EqualFold(q.Symbol, ticker) && q.Price > 0 {
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"price":  q.Price,
			}).Debug("Quote fetched")
			return q.Price, nil
		}
	}

	return 0, fmt.Errorf("no quote for %s: %w", ticker, contracts.ErrMissingInput)
}

var _ contracts.PriceSource = (*Client)(nil)
