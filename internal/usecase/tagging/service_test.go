package tagging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"linktagger/internal/config"
	"linktagger/internal/infra/fetcher"
	"linktagger/internal/infra/notifier"
	"linktagger/internal/parser"
	"linktagger/internal/scan"
	"linktagger/internal/usecase/fallback"
)

type stubFallback struct {
	result *fallback.Result
	err    error
	calls  int
}

func (s *stubFallback) Resolve(ctx context.Context, pageURL string) (*fallback.Result, error) {
	s.calls++
	return s.result, s.err
}

type recordingNotifier struct {
	infos  []string
	warns  []string
	errors []string
}

func (r *recordingNotifier) Info(msg string)  { r.infos = append(r.infos, msg) }
func (r *recordingNotifier) Warn(msg string)  { r.warns = append(r.warns, msg) }
func (r *recordingNotifier) Error(msg string) { r.errors = append(r.errors, msg) }

func testSettings() config.Settings {
	s := config.Default()
	s.PacingDelay = 0
	s.ArchiveEnabled = false
	s.ProxyEnabled = false
	return s
}

func newService(t *testing.T, settings config.Settings, fb FallbackResolver, notify notifier.Notifier) *Service {
	t.Helper()
	pipeline := fetcher.New(fetcher.Options{
		FollowRedirects: settings.FollowRedirects,
		MaxRedirects:    settings.MaxRedirects,
		Timeout:         5 * time.Second,
		MaxBodySize:     settings.MaxBodySize,
	}, fetcher.NewRedirectCache(settings.CacheCapacity), nil)

	if fb == nil {
		fb = &stubFallback{err: fallback.ErrNoFallback}
	}
	return NewService(settings, pipeline, parser.New(settings.SiteRules, nil), fb, notify, nil)
}

func TestTagText_ResolvesTitleIntoMarkdownLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>Example Page</title></head><body></body></html>")
	}))
	defer server.Close()

	notify := &recordingNotifier{}
	svc := newService(t, testSettings(), nil, notify)

	text := "See " + server.URL + "/page for details"
	got, report, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}

	want := "See [Example Page](" + server.URL + "/page) for details"
	if got != want {
		t.Errorf("TagText() = %q, want %q", got, want)
	}
	if report.Tagged != 1 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(notify.infos) == 0 || !strings.Contains(notify.infos[len(notify.infos)-1], "tagged 1 link(s)") {
		t.Errorf("infos = %v, want tagged summary", notify.infos)
	}
}

func TestTagText_AlreadyLinkedURLIsSkipped(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	svc := newService(t, testSettings(), nil, nil)

	text := "already [done](" + server.URL + "/page) here"
	got, report, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}
	if got != text {
		t.Errorf("TagText() changed already-linked text: %q", got)
	}
	if report.Candidates != 0 {
		t.Errorf("Candidates = %d, want 0", report.Candidates)
	}
	if requests.Load() != 0 {
		t.Errorf("server received %d requests, want 0", requests.Load())
	}
}

func TestTagText_BlockedPageUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "<html><body>Checking your browser before accessing</body></html>")
	}))
	defer server.Close()

	fb := &stubFallback{result: &fallback.Result{Title: "Rescued Title", Provider: "archive"}}
	svc := newService(t, testSettings(), fb, nil)

	text := "blocked: " + server.URL + "/wall"
	got, report, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}

	want := "blocked: [Rescued Title](" + server.URL + "/wall)"
	if got != want {
		t.Errorf("TagText() = %q, want %q", got, want)
	}
	if fb.calls != 1 {
		t.Errorf("fallback called %d times, want 1", fb.calls)
	}
	if report.Tagged != 1 {
		t.Errorf("Tagged = %d, want 1", report.Tagged)
	}
}

func TestTagText_FailedCandidateDegradesToLiteralURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>no title anywhere</body></html>")
	}))
	defer server.Close()

	notify := &recordingNotifier{}
	svc := newService(t, testSettings(), nil, notify)

	text := "see " + server.URL + "/untitled please"
	got, report, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}
	if got != text {
		t.Errorf("TagText() = %q, want unchanged text", got)
	}
	if report.Failed != 1 || report.Tagged != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Stage != StageParse {
		t.Errorf("Failures = %+v, want one parse-stage failure", report.Failures)
	}
	if len(notify.infos) == 0 || !strings.Contains(notify.infos[len(notify.infos)-1], "1 failed") {
		t.Errorf("infos = %v, want failure count in summary", notify.infos)
	}
}

func TestTagText_LinkTargetIsOriginalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>Moved Page</title></head></html>")
	})

	svc := newService(t, testSettings(), nil, nil)

	text := "link " + server.URL + "/old end"
	got, _, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}

	want := "link [Moved Page](" + server.URL + "/old) end"
	if got != want {
		t.Errorf("TagText() = %q, want original URL as link target", got)
	}
}

func TestTagText_InvalidPatternAbortsBatch(t *testing.T) {
	settings := testSettings()
	settings.URLPattern = "https?://(unclosed"

	notify := &recordingNotifier{}
	svc := newService(t, settings, nil, notify)

	text := "see https://example.com here"
	got, _, err := svc.TagText(context.Background(), text)
	if !errors.Is(err, scan.ErrInvalidPattern) {
		t.Fatalf("TagText() error = %v, want ErrInvalidPattern", err)
	}
	if got != text {
		t.Errorf("TagText() = %q, want input unchanged on abort", got)
	}
	if len(notify.errors) != 1 {
		t.Errorf("errors = %v, want one abort notice", notify.errors)
	}
}

func TestTagText_DuplicateURLResolvedOnceTaggedTwice(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, "<html><head><title>Shared</title></head></html>")
	}))
	defer server.Close()

	svc := newService(t, testSettings(), nil, nil)

	url := server.URL + "/p"
	text := url + " and again " + url
	got, report, err := svc.TagText(context.Background(), text)
	if err != nil {
		t.Fatalf("TagText() error = %v", err)
	}

	want := "[Shared](" + url + ") and again [Shared](" + url + ")"
	if got != want {
		t.Errorf("TagText() = %q, want %q", got, want)
	}
	if requests.Load() != 1 {
		t.Errorf("server received %d requests, want 1", requests.Load())
	}
	if report.Candidates != 2 || report.Tagged != 2 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestTagText_PacingDelaysBetweenResolutions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>Paced</title></head></html>")
	}))
	defer server.Close()

	settings := testSettings()
	settings.PacingDelay = 40 * time.Millisecond
	svc := newService(t, settings, nil, nil)

	text := server.URL + "/a then " + server.URL + "/b"
	start := time.Now()
	if _, _, err := svc.TagText(context.Background(), text); err != nil {
		t.Fatalf("TagText() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("batch finished in %v, want at least one pacing delay", elapsed)
	}
}

func TestRun_WritesTaggedTextBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>Written Back</title></head></html>")
	}))
	defer server.Close()

	src := &memorySource{text: "x " + server.URL + "/p y"}
	svc := newService(t, testSettings(), nil, nil)

	report, err := svc.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Tagged != 1 {
		t.Errorf("Tagged = %d, want 1", report.Tagged)
	}
	want := "x [Written Back](" + server.URL + "/p) y"
	if src.text != want {
		t.Errorf("source text = %q, want %q", src.text, want)
	}
}

type memorySource struct {
	text string
}

func (m *memorySource) ReadSelection(ctx context.Context) (string, error) {
	return m.text, nil
}

func (m *memorySource) ReplaceSelection(ctx context.Context, text string) error {
	m.text = text
	return nil
}
