// Package tagging coordinates a whole link-tagging batch: scanning the input
// text for candidate URLs, resolving each candidate to a page title through
// the fetch pipeline and fallback providers, and substituting markdown links
// back into the original text.
package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"linktagger/internal/config"
	"linktagger/internal/domain/entity"
	"linktagger/internal/infra/fetcher"
	"linktagger/internal/infra/notifier"
	"linktagger/internal/observability/logging"
	"linktagger/internal/observability/metrics"
	"linktagger/internal/parser"
	"linktagger/internal/scan"
	"linktagger/internal/usecase/fallback"
)

// TextSource is the surface holding the text to tag. Implementations read the
// current selection and write the tagged result back.
type TextSource interface {
	// ReadSelection returns the text block to scan for candidate URLs.
	ReadSelection(ctx context.Context) (string, error)

	// ReplaceSelection overwrites the previously read block with the
	// tagged result.
	ReplaceSelection(ctx context.Context, text string) error
}

// Fetcher retrieves the content behind a URL. *fetcher.Pipeline is the
// production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Outcome, error)
}

// FallbackResolver produces a title for a URL whose direct fetch was blocked.
// *fallback.Service is the production implementation.
type FallbackResolver interface {
	Resolve(ctx context.Context, pageURL string) (*fallback.Result, error)
}

// Report summarizes one tagging batch.
type Report struct {
	// BatchID correlates all log entries of this batch.
	BatchID string

	// Candidates is the number of URL spans found in the input.
	Candidates int

	// Tagged is the number of candidates replaced with markdown links.
	Tagged int

	// Failed is the number of candidates left as literal URL text.
	Failed int

	// Failures records why each failed candidate could not be resolved.
	Failures []*ResolveError
}

// Service runs tagging batches. Candidates are resolved sequentially with a
// configurable pacing delay between resolutions, so a text block full of URLs
// from one host does not hammer that host or the fallback providers.
type Service struct {
	settings config.Settings
	fetch    Fetcher
	titles   *parser.Parser
	fallback FallbackResolver
	notify   notifier.Notifier
	logger   *slog.Logger
}

// NewService creates a tagging coordinator.
func NewService(
	settings config.Settings,
	fetch Fetcher,
	titles *parser.Parser,
	fb FallbackResolver,
	notify notifier.Notifier,
	logger *slog.Logger,
) *Service {
	if notify == nil {
		notify = notifier.NewNoopNotifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settings: settings,
		fetch:    fetch,
		titles:   titles,
		fallback: fb,
		notify:   notify,
		logger:   logger,
	}
}

// Run reads the text block from source, tags it and writes the result back.
// The report is returned even when tagging partially failed.
func (s *Service) Run(ctx context.Context, source TextSource) (*Report, error) {
	text, err := source.ReadSelection(ctx)
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}

	tagged, report, err := s.TagText(ctx, text)
	if err != nil {
		return report, err
	}

	if err := source.ReplaceSelection(ctx, tagged); err != nil {
		return report, fmt.Errorf("replace selection: %w", err)
	}
	return report, nil
}

// TagText resolves every candidate URL in text and returns the text with
// resolved candidates rewritten as [Title](URL) markdown links.
//
// The URL pattern is compiled per batch: an invalid pattern is a
// configuration error that aborts the whole batch and returns the input
// unchanged, because no candidate from a broken pattern can be trusted.
// Every other failure is per-candidate: the candidate stays literal URL text
// and the batch continues. The link target is always the URL exactly as it
// appeared in the input, never a redirect target.
func (s *Service) TagText(ctx context.Context, text string) (string, *Report, error) {
	report := &Report{BatchID: uuid.NewString()}
	log := logging.WithBatchID(s.logger, report.BatchID)
	// Downstream collaborators (the fallback orchestrator in particular)
	// pick the batch logger up from the context.
	ctx = logging.WithLogger(ctx, log)

	matcher, err := scan.NewMatcher(s.settings.URLPattern)
	if err != nil {
		metrics.RecordBatchAborted()
		s.notify.Error(fmt.Sprintf("link tagging aborted: %v", err))
		log.Error("batch aborted", slog.Any("error", err))
		return text, report, err
	}

	candidates := matcher.FindCandidates(text)
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		s.notify.Info("no URLs found to tag")
		return text, report, nil
	}

	log.Info("tagging batch started", slog.Int("candidates", len(candidates)))

	titles := s.resolveAll(ctx, log, report, candidates)

	// Re-scan the original text so substitution offsets are computed fresh
	// against exactly the text being rewritten.
	var segments []entity.Segment
	for _, cand := range matcher.FindCandidates(text) {
		title, ok := titles[cand.Text]
		if !ok {
			continue
		}
		segments = append(segments, entity.Segment{
			Start:       cand.Start,
			End:         cand.End,
			Replacement: fmt.Sprintf("[%s](%s)", title, cand.Text),
		})
	}

	// Counts are per occurrence: one URL appearing twice is two tagged
	// links, even though it was resolved once.
	report.Tagged = len(segments)
	report.Failed = report.Candidates - report.Tagged

	result, err := scan.Apply(text, segments)
	if err != nil {
		metrics.RecordBatchAborted()
		s.notify.Error(fmt.Sprintf("link tagging aborted: %v", err))
		log.Error("substitution failed", slog.Any("error", err))
		return text, report, err
	}

	metrics.RecordBatch(report.Tagged, report.Failed)
	s.notify.Info(batchSummary(report))
	log.Info("tagging batch finished",
		slog.Int("tagged", report.Tagged),
		slog.Int("failed", report.Failed))

	return result, report, nil
}

// resolveAll resolves each distinct candidate URL once, sequentially, pacing
// between resolutions. It returns the URL-to-title map for the successes and
// records resolution failures on the report. The substitution pass tags every
// occurrence of a resolved URL.
func (s *Service) resolveAll(
	ctx context.Context,
	log *slog.Logger,
	report *Report,
	candidates []entity.Candidate,
) map[string]string {
	var limiter *rate.Limiter
	if s.settings.PacingDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.settings.PacingDelay), 1)
	}

	titles := make(map[string]string)
	seen := make(map[string]bool)

	for _, cand := range candidates {
		if !cand.IsValid() || seen[cand.Text] {
			continue
		}
		seen[cand.Text] = true

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				log.Warn("pacing interrupted, stopping batch early",
					slog.Any("error", err))
				break
			}
		}

		start := time.Now()
		title, rerr := s.resolveTitle(ctx, cand.Text)
		if rerr != nil {
			report.Failures = append(report.Failures, rerr)
			log.Warn("candidate degraded to literal URL",
				slog.String("url", cand.Text),
				slog.String("stage", string(rerr.Stage)),
				slog.Any("error", rerr.Err))
			continue
		}

		titles[cand.Text] = title
		log.Info("candidate resolved",
			slog.String("url", cand.Text),
			slog.String("title", title),
			slog.Duration("took", time.Since(start)))
	}

	return titles
}

// resolveTitle runs one candidate through the pipeline: direct fetch,
// bot-protection classification, fallback on block, title parsing. The title
// is always parsed against the final URL so site override rules see the page
// that actually answered, even though the link will cite the original URL.
func (s *Service) resolveTitle(ctx context.Context, rawURL string) (string, *ResolveError) {
	outcome, err := s.fetch.Fetch(ctx, rawURL)
	if err != nil {
		return "", &ResolveError{Stage: StageFetch, URL: rawURL, Err: err}
	}

	if fetcher.Classify(outcome) == fetcher.Blocked {
		result, err := s.fallback.Resolve(ctx, rawURL)
		if err != nil {
			return "", &ResolveError{Stage: StageFallback, URL: rawURL, Err: err}
		}
		return result.Title, nil
	}

	title, err := s.titles.Parse(outcome.FinalURL, outcome.Body)
	if err != nil {
		return "", &ResolveError{Stage: StageParse, URL: rawURL, Err: err}
	}
	return title, nil
}

func batchSummary(r *Report) string {
	if r.Failed == 0 {
		return fmt.Sprintf("tagged %d link(s)", r.Tagged)
	}
	return fmt.Sprintf("tagged %d link(s), %d failed", r.Tagged, r.Failed)
}
