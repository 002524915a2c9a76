package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"linktagger/internal/resilience/circuitbreaker"
	"linktagger/internal/resilience/retry"
	"linktagger/internal/usecase/fallback"
)

// DefaultProxyEndpoint is the rendering-proxy metadata endpoint.
const DefaultProxyEndpoint = "https://api.microlink.io"

// Error codes returned in the rendering-proxy JSON body.
const (
	proxyCodeRateLimit   = "ERATE_LIMIT"
	proxyCodeProRequired = "EPRO_REQUIRED"
)

// markdownLinkRe matches embedded markdown link syntax inside a returned
// title; the label replaces the whole link.
var markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

// ProxyConfig configures the rendering-proxy provider.
type ProxyConfig struct {
	Enabled  bool
	Endpoint string
	// APIKey is the optional bearer-style credential; empty means
	// anonymous access.
	APIKey  string
	Timeout time.Duration
}

// RenderProxyProvider resolves titles through a third-party rendering proxy
// that fetches pages with a real browser and returns page metadata as JSON.
type RenderProxyProvider struct {
	cfg      ProxyConfig
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	logger   *slog.Logger
}

// proxyResponse is the rendering-proxy reply envelope.
type proxyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title string `json:"title"`
	} `json:"data"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRenderProxyProvider creates the rendering-proxy provider.
func NewRenderProxyProvider(cfg ProxyConfig, logger *slog.Logger) *RenderProxyProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultProxyEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderProxyProvider{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  circuitbreaker.New(circuitbreaker.RenderProxyConfig()),
		retryCfg: retry.RenderProxyConfig(),
		logger:   logger,
	}
}

// Name implements fallback.Provider.
func (p *RenderProxyProvider) Name() string { return "proxy" }

// Enabled implements fallback.Provider.
func (p *RenderProxyProvider) Enabled() bool { return p.cfg.Enabled }

// Resolve asks the rendering proxy for the page's metadata and extracts the
// title. HTTP 429 and the provider's rate-limit error code both map to the
// rate-limited failure kind; the "needs pro tier" code maps to a distinct
// tier-insufficient kind.
func (p *RenderProxyProvider) Resolve(ctx context.Context, pageURL string) (*fallback.Result, error) {
	requestURL := p.cfg.Endpoint + "?url=" + url.QueryEscape(pageURL)

	var title string
	err := retry.WithBackoff(ctx, p.retryCfg, func() error {
		result, err := p.breaker.Execute(func() (interface{}, error) {
			return p.doRequest(ctx, requestURL)
		})
		if err != nil {
			return err
		}
		title = result.(string)
		return nil
	})
	if err != nil {
		var perr *fallback.ProviderError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, &fallback.ProviderError{
			Kind:     fallback.KindUnavailable,
			Provider: p.Name(),
			Message:  "rendering proxy unavailable",
			Err:      err,
		}
	}

	return &fallback.Result{Title: title, Provider: p.Name()}, nil
}

// doRequest performs one metadata request and maps the response envelope to
// a title or a typed provider failure.
func (p *RenderProxyProvider) doRequest(ctx context.Context, requestURL string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("x-api-key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &fallback.ProviderError{
			Kind:     fallback.KindRateLimited,
			Provider: p.Name(),
			Message:  "rendering proxy rate limit reached",
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed proxyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 500 {
			return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "rendering proxy error"}
		}
		return nil, fmt.Errorf("unparseable rendering proxy response: %w", err)
	}

	if parsed.Status == "fail" {
		switch parsed.Code {
		case proxyCodeRateLimit:
			return nil, &fallback.ProviderError{
				Kind:     fallback.KindRateLimited,
				Provider: p.Name(),
				Message:  parsed.Message,
			}
		case proxyCodeProRequired:
			return nil, &fallback.ProviderError{
				Kind:     fallback.KindTierInsufficient,
				Provider: p.Name(),
				Message:  "rendering proxy requires a higher service tier for this URL",
			}
		default:
			return nil, &fallback.ProviderError{
				Kind:     fallback.KindGeneric,
				Provider: p.Name(),
				Message:  parsed.Message,
			}
		}
	}

	title := strings.TrimSpace(stripMarkdownLinks(parsed.Data.Title))
	if title == "" {
		return nil, &fallback.ProviderError{
			Kind:     fallback.KindGeneric,
			Provider: p.Name(),
			Message:  "rendering proxy returned no title",
		}
	}
	return title, nil
}

// stripMarkdownLinks replaces any embedded [label](target) syntax in a title
// with just the label, so the final markdown link cannot be corrupted by a
// nested link.
func stripMarkdownLinks(title string) string {
	return markdownLinkRe.ReplaceAllString(title, "$1")
}
