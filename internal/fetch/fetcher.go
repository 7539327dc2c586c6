// Package fetch downloads and decodes the web pages and metadata documents
// the resolvers work on.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// DefaultCharset is assumed when neither the response headers nor the
// document declare one.
const DefaultCharset = "iso-8859-1"

var metaCharsetRe = regexp.MustCompile(`(?i)<meta [^>]*?charset="(.*?)"`)

// PageFetcher returns the decoded body of a URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Options configures a Fetcher
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	CacheTTL          time.Duration // 0 disables caching
	RequestsPerSecond int           // 0 is unlimited
	Client            *http.Client
}

// Fetcher is the HTTP client shared by all resolvers and the built-in
// HTTP backends.
type Fetcher struct {
	client    *http.Client
	userAgent string
	cache     *cache.Cache
	limiter   ratelimit.Limiter
	logger    *zap.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RequestsPerSecond > 0 {
		limiter = ratelimit.New(opts.RequestsPerSecond)
	}

	f := &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		limiter:   limiter,
		logger:    logger,
	}
	if opts.CacheTTL > 0 {
		f.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return f
}

// Fetch downloads a page and decodes it into a string. A missing scheme
// defaults to http and the fragment is dropped.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	target := NormalizeURL(rawURL)

	if f.cache != nil {
		if cached, ok := f.cache.Get(target); ok {
			f.logger.Debug("Page served from cache", zap.String("url", target))
			return cached.(string), nil
		}
	}

	resp, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", target, err)
	}

	page := decodeBody(body, resp.Header.Get("Content-Type"))

	if f.cache != nil {
		f.cache.Set(target, page, cache.DefaultExpiration)
	}

	return page, nil
}

// Open starts a raw download and returns the undecoded body
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, NormalizeURL(rawURL))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	f.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", target, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.Debug("Fetching", zap.String("url", target))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", target, resp.StatusCode)
	}

	return resp, nil
}

// decodeBody decodes a response body using the charset from the
// Content-Type header, the document's meta tag, or DefaultCharset, in that
// order. Undecodable bytes are replaced.
func decodeBody(body []byte, contentType string) string {
	label := charsetFromContentType(contentType)
	if label == "" {
		if m := metaCharsetRe.FindSubmatch(body); m != nil {
			label = string(m[1])
		}
	}
	if label == "" {
		label = DefaultCharset
	}

	enc, _ := charset.Lookup(label)
	if enc == nil {
		enc, _ = charset.Lookup(DefaultCharset)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "\uFFFD")
	}
	return string(decoded)
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
