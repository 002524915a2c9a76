// Package fetcher implements the resilient page-fetch pipeline: progressive
// request escalation, explicit redirect following under policy constraints,
// bot-protection classification and bounded redirect caching.
package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"linktagger/internal/observability/metrics"
)

// Browser-emulating headers for the escalated second attempt. The minimal
// first attempt sends none of these.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" +
		" (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Referer":                   "https://www.google.com/",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Outcome is a completed retrieval: a response arrived with some HTTP
// status. 4xx/5xx completions are still outcomes; downstream classification
// decides what to do with them. Outcome values are ephemeral, owned by the
// Fetch call that produced them.
type Outcome struct {
	// FinalURL is the URL that actually answered, after any redirects.
	// Markdown links must always cite the user's original URL, never this.
	FinalURL   string
	Body       []byte
	StatusCode int
	// Redirected reports whether FinalURL differs from the requested URL.
	Redirected bool
}

// Options controls pipeline behavior. Values come from validated settings.
type Options struct {
	FollowRedirects bool
	MaxRedirects    int
	Timeout         time.Duration
	MaxBodySize     int64
}

// Pipeline retrieves URL content, escalating request complexity and
// following redirects explicitly so policy violations (downgrades, cycles,
// hop limits) can be reported precisely.
type Pipeline struct {
	client *http.Client
	opts   Options
	cache  *RedirectCache
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a fetch pipeline. The redirect cache is injected by the
// caller so tests can substitute an empty or pre-seeded cache.
func New(opts Options, cache *RedirectCache, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 10 * 1024 * 1024
	}

	// Redirects are walked manually; the client must hand back 3xx
	// responses untouched.
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Pipeline{
		client: client,
		opts:   opts,
		cache:  cache,
		logger: logger,
	}
}

// Fetch retrieves the content behind rawURL.
//
// The pipeline consults the redirect cache first and fetches the previously
// resolved target when one is known. Identical concurrent URLs collapse into
// a single network call. After a successful fetch that redirected and was
// not already cache-resident, the original→final mapping is recorded.
func (p *Pipeline) Fetch(ctx context.Context, rawURL string) (*Outcome, error) {
	start := time.Now()

	if err := validateURL(rawURL); err != nil {
		metrics.RecordFetch("invalid_url", time.Since(start))
		return nil, err
	}

	target := rawURL
	cacheHit := false
	if p.cache != nil {
		if resolved, ok := p.cache.Get(rawURL); ok {
			target = resolved
			cacheHit = true
		}
		metrics.RecordCacheLookup(cacheHit)
	}

	v, err, _ := p.group.Do(target, func() (interface{}, error) {
		return p.followChain(ctx, target)
	})
	if err != nil {
		metrics.RecordFetch("network_error", time.Since(start))
		return nil, err
	}

	outcome := v.(*Outcome)
	result := "ok"
	if outcome.StatusCode >= 400 {
		result = "http_error"
	}
	metrics.RecordFetch(result, time.Since(start))

	if p.cache != nil && outcome.Redirected && !cacheHit {
		p.cache.Put(rawURL, outcome.FinalURL)
	}

	return outcome, nil
}

// followChain walks redirects with an explicit loop, visited set and hop
// counter. Recursion is deliberately avoided: pathological chains must not
// consume call depth.
func (p *Pipeline) followChain(ctx context.Context, startURL string) (*Outcome, error) {
	current := startURL
	visited := map[string]bool{current: true}
	chain := []string{current}

	for hop := 0; ; hop++ {
		resp, err := p.attempt(ctx, current)
		if err != nil {
			return nil, err
		}

		if !isRedirect(resp.StatusCode) {
			body, err := p.readBody(resp)
			if err != nil {
				return nil, err
			}
			return &Outcome{
				FinalURL:   current,
				Body:       body,
				StatusCode: resp.StatusCode,
				Redirected: current != startURL,
			}, nil
		}

		location := resp.Header.Get("Location")
		drain(resp)

		if !p.opts.FollowRedirects {
			return nil, fmt.Errorf("%w: target %s", ErrRedirectNotFollowed, location)
		}
		if location == "" {
			return nil, fmt.Errorf("%w: %s returned %d", ErrMissingLocation, current, resp.StatusCode)
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			return nil, err
		}

		if isInsecureDowngrade(current, next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInsecureRedirect, current, next)
		}
		if visited[next] {
			return nil, fmt.Errorf("%w: %s already visited in chain %v", ErrCircularRedirect, next, chain)
		}
		if hop+1 > p.opts.MaxRedirects {
			return nil, fmt.Errorf("%w: limit %d exceeded, chain %v", ErrTooManyRedirects, p.opts.MaxRedirects, append(chain, next))
		}

		visited[next] = true
		chain = append(chain, next)
		p.logger.Debug("following redirect",
			slog.String("from", current),
			slog.String("to", next),
			slog.Int("hop", hop+1))
		current = next
	}
}

// attempt performs the progressive-complexity request for one URL: a minimal
// header-free GET first, escalating to browser-emulating headers only when
// the minimal attempt fails at the transport level. Any response carrying an
// HTTP status, including 4xx/5xx, is a completed attempt.
func (p *Pipeline) attempt(ctx context.Context, target string) (*http.Response, error) {
	resp, minimalErr := p.doGet(ctx, target, false)
	if minimalErr == nil {
		return resp, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
	}

	p.logger.Debug("minimal fetch failed, escalating to browser headers",
		slog.String("url", target),
		slog.Any("error", minimalErr))

	resp, browserErr := p.doGet(ctx, target, true)
	if browserErr != nil {
		return nil, fmt.Errorf("%w: minimal: %v; browser: %v", ErrNetwork, minimalErr, browserErr)
	}
	return resp, nil
}

func (p *Pipeline) doGet(ctx context.Context, target string, browser bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if browser {
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}
	}
	return p.client.Do(req)
}

// readBody reads the response body under the configured size cap.
func (p *Pipeline) readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	limited := io.LimitReader(resp.Body, p.opts.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if int64(len(body)) > p.opts.MaxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, p.opts.MaxBodySize)
	}
	return body, nil
}

// validateURL rejects malformed URLs before any network call.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}
	return nil
}

// resolveLocation resolves a Location header value, which may be a relative
// reference, against the URL that produced the redirect.
func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	next, err := baseURL.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: bad Location %q: %v", ErrInvalidURL, location, err)
	}
	return next.String(), nil
}

// isInsecureDowngrade reports whether a redirect moves from a secure to an
// insecure scheme.
func isInsecureDowngrade(from, to string) bool {
	return strings.HasPrefix(from, "https://") && strings.HasPrefix(to, "http://")
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// drain discards a redirect response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
