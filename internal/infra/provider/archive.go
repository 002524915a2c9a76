// Package provider implements the fallback content providers consulted when
// a direct fetch is blocked by bot protection: an archival-snapshot service
// and a rendering-proxy metadata service.
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
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"linktagger/internal/parser"
	"linktagger/internal/resilience/circuitbreaker"
	"linktagger/internal/resilience/retry"
	"linktagger/internal/usecase/fallback"
)

// DefaultArchiveLookupURL is the snapshot availability endpoint.
const DefaultArchiveLookupURL = "https://archive.org/wayback/available"

// ArchiveConfig configures the archival-snapshot provider.
type ArchiveConfig struct {
	Enabled     bool
	LookupURL   string
	Timeout     time.Duration
	MaxBodySize int64
}

// ArchiveProvider resolves titles from the nearest archived copy of a URL.
// Lookup and snapshot fetches run through a circuit breaker and retry with
// backoff, since the archive is shared, best-effort infrastructure.
type ArchiveProvider struct {
	cfg      ArchiveConfig
	client   *http.Client
	titles   *parser.Parser
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	logger   *slog.Logger
}

// availabilityResponse is the archive lookup reply. Absence of closest.url
// means no snapshot exists.
type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest struct {
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// NewArchiveProvider creates the archival-snapshot provider.
func NewArchiveProvider(cfg ArchiveConfig, titles *parser.Parser, logger *slog.Logger) *ArchiveProvider {
	if cfg.LookupURL == "" {
		cfg.LookupURL = DefaultArchiveLookupURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveProvider{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		titles:   titles,
		breaker:  circuitbreaker.New(circuitbreaker.ArchiveProviderConfig()),
		retryCfg: retry.ArchiveLookupConfig(),
		logger:   logger,
	}
}

// Name implements fallback.Provider.
func (a *ArchiveProvider) Name() string { return "archive" }

// Enabled implements fallback.Provider.
func (a *ArchiveProvider) Enabled() bool { return a.cfg.Enabled }

// Resolve looks up the nearest snapshot of pageURL, fetches the archived
// copy and extracts its title.
func (a *ArchiveProvider) Resolve(ctx context.Context, pageURL string) (*fallback.Result, error) {
	snapshotURL, err := a.lookup(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	// Snapshot URLs are frequently returned with a plain-http scheme.
	snapshotURL = upgradeScheme(snapshotURL)

	body, err := a.fetchSnapshot(ctx, snapshotURL)
	if err != nil {
		return nil, err
	}

	title, err := a.titles.Parse(snapshotURL, body)
	if err != nil {
		return nil, &fallback.ProviderError{
			Kind:     fallback.KindGeneric,
			Provider: a.Name(),
			Message:  "no title in archived snapshot",
			Err:      err,
		}
	}

	return &fallback.Result{Title: title, Provider: a.Name()}, nil
}

// lookup queries the availability endpoint for the nearest archived copy.
func (a *ArchiveProvider) lookup(ctx context.Context, pageURL string) (string, error) {
	lookupURL := a.cfg.LookupURL + "?url=" + url.QueryEscape(pageURL)

	var parsed availabilityResponse
	err := retry.WithBackoff(ctx, a.retryCfg, func() error {
		_, err := a.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
			if err != nil {
				return nil, err
			}
			resp, err := a.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			if resp.StatusCode != http.StatusOK {
				return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "archive lookup failed"}
			}

			data, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxBodySize))
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &parsed); err != nil {
				return nil, fmt.Errorf("unparseable archive lookup response: %w", err)
			}
			return nil, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) {
			a.logger.Warn("archive circuit breaker open, request rejected",
				slog.String("url", pageURL))
		}
		return err
	})
	if err != nil {
		return "", &fallback.ProviderError{
			Kind:     fallback.KindUnavailable,
			Provider: a.Name(),
			Message:  "archive lookup unavailable",
			Err:      err,
		}
	}

	if parsed.ArchivedSnapshots.Closest.URL == "" {
		return "", &fallback.ProviderError{
			Kind:     fallback.KindNoSnapshot,
			Provider: a.Name(),
			Message:  "no archived snapshot for this URL",
		}
	}
	return parsed.ArchivedSnapshots.Closest.URL, nil
}

// fetchSnapshot retrieves the archived copy itself. Any non-200 answer is a
// provider failure; the snapshot either exists or it does not.
func (a *ArchiveProvider) fetchSnapshot(ctx context.Context, snapshotURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapshotURL, nil)
	if err != nil {
		return nil, &fallback.ProviderError{
			Kind: fallback.KindGeneric, Provider: a.Name(),
			Message: "bad snapshot URL", Err: err,
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &fallback.ProviderError{
			Kind: fallback.KindUnavailable, Provider: a.Name(),
			Message: "snapshot fetch failed", Err: err,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &fallback.ProviderError{
			Kind: fallback.KindUnavailable, Provider: a.Name(),
			Message: fmt.Sprintf("snapshot fetch returned HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxBodySize))
	if err != nil {
		return nil, &fallback.ProviderError{
			Kind: fallback.KindUnavailable, Provider: a.Name(),
			Message: "reading snapshot body failed", Err: err,
		}
	}
	return body, nil
}

// upgradeScheme rewrites an insecure archive snapshot URL to https. The
// availability endpoint historically returns snapshot URLs with a plain-http
// scheme even though the archive serves https.
func upgradeScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://web.archive.org/") {
		return "https://" + strings.TrimPrefix(rawURL, "http://")
	}
	return rawURL
}
