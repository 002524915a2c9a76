package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"linktagger/internal/parser"
	"linktagger/internal/usecase/fallback"
)

// newArchiveTestServer serves both the availability lookup and the snapshot
// content from one mux, so the provider's two hops can be exercised without
// real archive infrastructure.
func newArchiveTestServer(t *testing.T, snapshotHTML string, hasSnapshot bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/wayback/available", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if !hasSnapshot {
			fmt.Fprint(w, `{"archived_snapshots":{}}`)
			return
		}
		fmt.Fprintf(w, `{"archived_snapshots":{"closest":{"url":%q,"timestamp":"20240101000000"}}}`,
			server.URL+"/snapshot")
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, snapshotHTML)
	})

	return server
}

func TestArchiveProvider_ResolvesTitleFromSnapshot(t *testing.T) {
	server := newArchiveTestServer(t, "<html><head><title>Archived Page</title></head></html>", true)

	p := NewArchiveProvider(ArchiveConfig{
		Enabled:   true,
		LookupURL: server.URL + "/wayback/available",
	}, parser.New(nil, nil), nil)

	result, err := p.Resolve(context.Background(), "https://blocked.example/page")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Title != "Archived Page" {
		t.Errorf("Title = %q, want %q", result.Title, "Archived Page")
	}
	if result.Provider != "archive" {
		t.Errorf("Provider = %q", result.Provider)
	}
}

func TestArchiveProvider_NoSnapshot(t *testing.T) {
	server := newArchiveTestServer(t, "", false)

	p := NewArchiveProvider(ArchiveConfig{
		Enabled:   true,
		LookupURL: server.URL + "/wayback/available",
	}, parser.New(nil, nil), nil)

	_, err := p.Resolve(context.Background(), "https://blocked.example/page")
	var perr *fallback.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ProviderError", err)
	}
	if perr.Kind != fallback.KindNoSnapshot {
		t.Errorf("Kind = %v, want KindNoSnapshot", perr.Kind)
	}
}

func TestArchiveProvider_LookupUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	p := NewArchiveProvider(ArchiveConfig{
		Enabled:   true,
		LookupURL: server.URL + "/wayback/available",
	}, parser.New(nil, nil), nil)

	_, err := p.Resolve(context.Background(), "https://blocked.example/page")
	var perr *fallback.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ProviderError", err)
	}
	if perr.Kind != fallback.KindUnavailable {
		t.Errorf("Kind = %v, want KindUnavailable", perr.Kind)
	}
}

func TestArchiveProvider_UnparseableLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not json")
	}))
	defer server.Close()

	p := NewArchiveProvider(ArchiveConfig{
		Enabled:   true,
		LookupURL: server.URL,
	}, parser.New(nil, nil), nil)

	if _, err := p.Resolve(context.Background(), "https://blocked.example"); err == nil {
		t.Fatal("Resolve() expected error for unparseable lookup response")
	}
}

func TestArchiveProvider_SnapshotWithoutTitle(t *testing.T) {
	server := newArchiveTestServer(t, "<html><body>nothing here</body></html>", true)

	p := NewArchiveProvider(ArchiveConfig{
		Enabled:   true,
		LookupURL: server.URL + "/wayback/available",
	}, parser.New(nil, nil), nil)

	_, err := p.Resolve(context.Background(), "https://blocked.example/page")
	var perr *fallback.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ProviderError", err)
	}
	if perr.Kind != fallback.KindGeneric {
		t.Errorf("Kind = %v, want KindGeneric", perr.Kind)
	}
}

func TestUpgradeScheme(t *testing.T) {
	if got := upgradeScheme("http://web.archive.org/web/1/x"); got != "https://web.archive.org/web/1/x" {
		t.Errorf("upgradeScheme() = %q", got)
	}
	if got := upgradeScheme("https://already.secure/x"); got != "https://already.secure/x" {
		t.Errorf("upgradeScheme() changed a secure URL: %q", got)
	}
	if got := upgradeScheme("http://127.0.0.1:8080/x"); got != "http://127.0.0.1:8080/x" {
		t.Errorf("upgradeScheme() rewrote a non-archive host: %q", got)
	}
}
