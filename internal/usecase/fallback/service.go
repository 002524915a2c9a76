// Package fallback orchestrates alternate content sources consulted when a
// direct fetch is classified as blocked by bot protection. Providers are
// tried in configured priority order; rate limiting is an advisory event,
// not a terminal failure.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"linktagger/internal/config"
	"linktagger/internal/infra/notifier"
	"linktagger/internal/observability/logging"
	"linktagger/internal/observability/metrics"
)

// Result is a title resolved by a fallback provider, with provenance.
type Result struct {
	Title    string
	Provider string
}

// Provider is one alternate content source. Implementations handle their own
// transport resilience (retry, circuit breaking); the orchestrator handles
// ordering and failure accounting.
type Provider interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string

	// Enabled reports whether configuration allows this provider.
	Enabled() bool

	// Resolve produces a title for the blocked URL, or a *ProviderError.
	Resolve(ctx context.Context, pageURL string) (*Result, error)
}

// Order arranges the archive and proxy providers according to the configured
// priority. The priority only matters when both are enabled; disabled
// providers are filtered by the service at resolve time.
func Order(priority config.Priority, archive, proxy Provider) []Provider {
	if priority == config.ProxyFirst {
		return []Provider{proxy, archive}
	}
	return []Provider{archive, proxy}
}

// Service tries providers in order until one yields a title.
type Service struct {
	providers []Provider
	notify    notifier.Notifier
}

// NewService creates a fallback orchestrator over the given ordered
// providers.
func NewService(providers []Provider, notify notifier.Notifier) *Service {
	if notify == nil {
		notify = notifier.NewNoopNotifier()
	}
	return &Service{providers: providers, notify: notify}
}

// Resolve consults each enabled provider in priority order.
//
// On success the provider's title is returned immediately with its name
// recorded for observability. A rate-limited provider triggers a user-facing
// advisory and the next provider is tried. With no provider enabled,
// ErrNoFallback is returned; when every provider fails, the aggregate error
// cites the last provider's message.
//
// Log entries use the logger carried by ctx, so a resolution started by a
// tagging batch keeps its batch ID.
func (s *Service) Resolve(ctx context.Context, pageURL string) (*Result, error) {
	logger := logging.FromContext(ctx)

	var enabled []Provider
	for _, p := range s.providers {
		if p != nil && p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, ErrNoFallback
	}

	var lastErr error
	for _, p := range enabled {
		result, err := p.Resolve(ctx, pageURL)
		if err == nil {
			metrics.RecordFallback(p.Name(), "ok")
			logger.Info("fallback provider resolved title",
				slog.String("provider", p.Name()),
				slog.String("url", pageURL))
			return result, nil
		}

		if IsRateLimited(err) {
			metrics.RecordFallback(p.Name(), "rate_limited")
			s.notify.Warn(fmt.Sprintf("%s is rate limited, trying next fallback", p.Name()))
		} else {
			metrics.RecordFallback(p.Name(), "error")
		}

		logger.Warn("fallback provider failed",
			slog.String("provider", p.Name()),
			slog.String("url", pageURL),
			slog.Any("error", err))
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}
