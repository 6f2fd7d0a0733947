// Package httpcache provides cached, rate-limited HTTP fetching for evidence collectors.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/persist/localfs"
)

// UserAgent is sent with every request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

const (
	defaultTimeout  = 8 * time.Second
	defaultMaxBytes = 2 << 20
	cacheName       = "sivaguard"
)

// Cacher allows external cache implementations to be shared between collectors.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for HTTP response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a Cache persisted under the user cache directory.
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, cacheName))
}

// NewWithPath creates a Cache persisted at cachePath.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte](cacheName, cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// URLToKey converts a URL to a cache key.
func URLToKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// HTTPError is a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// ErrCachedNetwork wraps network failures replayed from the cache.
var ErrCachedNetwork = errors.New("cached network error")

// Stats tracks cache hit/miss counts for a Client.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Response is a fetched body and whether it came from the cache.
type Response struct {
	Body   []byte
	Cached bool
}

// Client fetches URLs through an optional cache with per-host rate limiting.
type Client struct {
	http         *http.Client
	cache        Cacher
	limiter      *domainRateLimiter
	logger       *slog.Logger
	timeout      time.Duration
	maxBytes     int64
	allowPrivate bool
	hits         atomic.Int64
	misses       atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(c Cacher) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// WithTimeout bounds each fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithMinDelay sets the minimum spacing between requests to one host.
func WithMinDelay(d time.Duration) Option {
	return func(cl *Client) { cl.limiter = newDomainRateLimiter(d) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.http = hc }
}

// WithMaxBytes caps how much of a response body is read.
func WithMaxBytes(n int64) Option {
	return func(cl *Client) { cl.maxBytes = n }
}

// WithPrivateHosts allows fetching loopback and private-network addresses.
// Only tests and trusted deployments should enable it.
func WithPrivateHosts(allow bool) Option {
	return func(cl *Client) { cl.allowPrivate = allow }
}

// NewClient returns a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		logger:   slog.Default(),
		timeout:  defaultTimeout,
		maxBytes: defaultMaxBytes,
		limiter:  newDomainRateLimiter(time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Stats returns the Client's cache statistics.
func (c *Client) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Get fetches rawURL with the given Accept header. Non-200 responses are
// returned as *HTTPError and cached so failing hosts are not hammered.
func (c *Client) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	if err := c.checkURL(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	if c.cache == nil {
		c.misses.Add(1)
		body, err := c.doFetch(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{Body: body}, nil
	}

	var fetched bool
	data, err := c.cache.GetSet(ctx, URLToKey(rawURL), func(ctx context.Context) ([]byte, error) {
		fetched = true
		c.misses.Add(1)
		c.logger.DebugContext(ctx, "cache miss", "url", rawURL)
		body, fetchErr := c.doFetch(ctx, req)
		if fetchErr == nil {
			return body, nil
		}
		var httpErr *HTTPError
		switch {
		case errors.As(fetchErr, &httpErr):
			return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
		case errors.Is(fetchErr, context.Canceled), errors.Is(fetchErr, context.DeadlineExceeded):
			return nil, fetchErr
		default:
			return fmt.Appendf(nil, "NETERR:%s", fetchErr.Error()), nil
		}
	}, c.cache.TTL())
	if err != nil {
		return nil, err
	}
	if !fetched {
		c.hits.Add(1)
		c.logger.DebugContext(ctx, "cache hit", "url", rawURL)
	}

	s := string(data)
	if code, found := strings.CutPrefix(s, "ERROR:"); found {
		status, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: status, URL: rawURL}
	}
	if msg, found := strings.CutPrefix(s, "NETERR:"); found {
		return nil, fmt.Errorf("%w: %s", ErrCachedNetwork, msg)
	}
	return &Response{Body: data, Cached: !fetched}, nil
}

func (c *Client) doFetch(ctx context.Context, req *http.Request) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			if err := c.limiter.Wait(ctx, req.URL.Host, c.logger); err != nil {
				return nil, err
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			}
			return io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			c.logger.DebugContext(ctx, "retrying HTTP request", "attempt", n+1, "url", req.URL.String(), "error", err)
		}),
	)
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, ErrBlocked) || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}

// ErrorKind maps a fetch error to a short code for evidence records, such
// as "http_404" or "timeout".
func ErrorKind(err error) string {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	default:
		return "network"
	}
}
