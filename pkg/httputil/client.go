package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/bandmap/pkg/buildinfo"
	"github.com/matzehuels/bandmap/pkg/cache"
	"github.com/matzehuels/bandmap/pkg/observability"
)

// ErrNetwork marks transport failures and unexpected status codes.
var ErrNetwork = cache.ErrNetwork

// Defaults for ClientOptions.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
	// maxBodySize bounds a single data file.
	maxBodySize = 64 << 20
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Cache stores response bodies. Nil disables caching.
	Cache cache.Cache
	Keyer cache.Keyer
	// TTL of cached bodies. Zero means cache.TTLHTTP.
	TTL time.Duration
	// Refresh ignores cached bodies but still stores fresh ones.
	Refresh bool

	Headers    map[string]string
	HTTPClient *http.Client
	Attempts   int
	RetryDelay time.Duration
}

// Client performs cached, retried GET requests.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	refresh bool
	headers map[string]string

	attempts int
	delay    time.Duration
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.TTLHTTP
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		http:     opts.HTTPClient,
		cache:    opts.Cache,
		keyer:    opts.Keyer,
		ttl:      opts.TTL,
		refresh:  opts.Refresh,
		headers:  opts.Headers,
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
	}
}

// Fetch returns the body at url, from the cache when possible.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := c.keyer.HTTPKey("data", url)
	if !c.refresh {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "http")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	var body []byte
	err := Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		body, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, body, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "http", len(body))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "bandmap/"+buildinfo.Version)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errNotFound
	case code >= 500, code == http.StatusTooManyRequests:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
