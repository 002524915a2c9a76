// Command tagger scans a text block for bare URLs, resolves each one to its
// page title and rewrites it as a [Title](URL) markdown link.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linktagger/internal/config"
	"linktagger/internal/infra/fetcher"
	"linktagger/internal/infra/notifier"
	"linktagger/internal/infra/provider"
	"linktagger/internal/infra/textsource"
	"linktagger/internal/observability/logging"
	"linktagger/internal/parser"
	"linktagger/internal/usecase/fallback"
	"linktagger/internal/usecase/tagging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML settings file (optional)")
	inPath := flag.String("in", "-", "input text file, - for stdin")
	outPath := flag.String("o", "-", "output file, - for stdout")
	textLog := flag.Bool("text-log", false, "human-readable log output instead of JSON")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address while the batch runs (optional)")
	flag.Parse()

	logger := initLogger(*textLog)
	settings := loadSettings(logger, *configPath)

	if *metricsAddr != "" {
		startMetricsServer(logger, *metricsAddr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc := buildService(settings, logger)
	source := textsource.NewFileSource(*inPath, *outPath)

	report, err := svc.Run(ctx, source)
	if err != nil {
		logger.Error("tagging failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("tagging finished",
		slog.String("batch_id", report.BatchID),
		slog.Int("candidates", report.Candidates),
		slog.Int("tagged", report.Tagged),
		slog.Int("failed", report.Failed))
}

// initLogger builds the process logger and installs it as the slog default.
func initLogger(textLog bool) *slog.Logger {
	var logger *slog.Logger
	if textLog {
		logger = logging.NewTextLogger()
	} else {
		logger = logging.NewLogger()
	}
	slog.SetDefault(logger)
	return logger
}

// loadSettings loads the YAML settings file when one is given, otherwise the
// validated defaults. A broken settings file is fatal.
func loadSettings(logger *slog.Logger, path string) config.Settings {
	if path == "" {
		settings := config.Default()
		if err := settings.Validate(); err != nil {
			logger.Error("default settings invalid", slog.Any("error", err))
			os.Exit(1)
		}
		return settings
	}

	settings, err := config.Load(path)
	if err != nil {
		logger.Error("failed to load settings", slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("settings loaded",
		slog.String("path", path),
		slog.String("fallback_priority", string(settings.FallbackPriority)),
		slog.Bool("archive_enabled", settings.ArchiveEnabled),
		slog.Bool("proxy_enabled", settings.ProxyEnabled))
	return settings
}

// buildService wires the full pipeline: redirect-caching fetcher, title
// parser, fallback providers in configured priority order, and the tagging
// coordinator on top.
func buildService(settings config.Settings, logger *slog.Logger) *tagging.Service {
	cache := fetcher.NewRedirectCache(settings.CacheCapacity)
	pipeline := fetcher.New(fetcher.Options{
		FollowRedirects: settings.FollowRedirects,
		MaxRedirects:    settings.MaxRedirects,
		Timeout:         settings.FetchTimeout,
		MaxBodySize:     settings.MaxBodySize,
	}, cache, logger)

	titles := parser.New(settings.SiteRules, logger)

	archive := provider.NewArchiveProvider(provider.ArchiveConfig{
		Enabled:     settings.ArchiveEnabled,
		Timeout:     settings.FetchTimeout,
		MaxBodySize: settings.MaxBodySize,
	}, titles, logger)
	proxy := provider.NewRenderProxyProvider(provider.ProxyConfig{
		Enabled: settings.ProxyEnabled,
		APIKey:  settings.ProxyAPIKey,
		Timeout: settings.FetchTimeout,
	}, logger)

	notify := notifier.NewSlogNotifier(logger)
	fb := fallback.NewService(fallback.Order(settings.FallbackPriority, archive, proxy), notify)

	return tagging.NewService(settings, pipeline, titles, fb, notify, logger)
}

// startMetricsServer exposes the Prometheus registry for long-running
// invocations, e.g. when the tagger is driven by a watch loop.
func startMetricsServer(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server started", slog.String("addr", addr))
}
