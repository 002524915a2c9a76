package parser

import (
	"errors"
	"testing"

	"linktagger/internal/domain/entity"
)

func TestParse_TitleElement(t *testing.T) {
	p := New(nil, nil)
	body := []byte(`<html><head><title>Example Page</title></head><body></body></html>`)

	got, err := p.Parse("https://example.com/page", body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "Example Page" {
		t.Errorf("Parse() = %q, want %q", got, "Example Page")
	}
}

func TestParse_SiteRuleWins(t *testing.T) {
	rules := []entity.SiteRule{
		{URLSubstring: "example.com", TitlePattern: `<h1 class="post">(.*?)</h1>`},
	}
	p := New(rules, nil)
	body := []byte(`<html><head><title>Generic</title></head>` +
		`<body><h1 class="post">Override Title</h1></body></html>`)

	got, err := p.Parse("https://example.com/post/1", body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "Override Title" {
		t.Errorf("Parse() = %q, want site override to win", got)
	}
}

func TestParse_SiteRuleOnlyForMatchingHost(t *testing.T) {
	rules := []entity.SiteRule{
		{URLSubstring: "other.com", TitlePattern: `<h1>(.*?)</h1>`},
	}
	p := New(rules, nil)
	body := []byte(`<html><head><title>Generic</title></head><body><h1>Nope</h1></body></html>`)

	got, err := p.Parse("https://example.com/x", body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "Generic" {
		t.Errorf("Parse() = %q, rule for other host must not apply", got)
	}
}

func TestParse_InvalidRuleIsSkipped(t *testing.T) {
	rules := []entity.SiteRule{
		{URLSubstring: "example.com", TitlePattern: `<h1>(broken`},
		{URLSubstring: "example.com", TitlePattern: `<h2>(.*?)</h2>`},
	}
	p := New(rules, nil)
	body := []byte(`<html><body><h2>Second Rule</h2></body></html>`)

	got, err := p.Parse("https://example.com/x", body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "Second Rule" {
		t.Errorf("Parse() = %q, invalid rule should be skipped, next rule tried", got)
	}
}

func TestParse_OpenGraphFallback(t *testing.T) {
	p := New(nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"property then content", `<html><head><meta property="og:title" content="OG Title"></head></html>`},
		{"content then property", `<html><head><meta content="OG Title" property="og:title"></head></html>`},
		{"loose adjacency", `<html><head><meta property="og:title" data-x="1" content="OG Title"></head></html>`},
		{"empty title element", `<html><head><title>  </title><meta property="og:title" content="OG Title"></head></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse("https://example.com", []byte(tt.body))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != "OG Title" {
				t.Errorf("Parse() = %q, want %q", got, "OG Title")
			}
		})
	}
}

func TestParse_NothingFound(t *testing.T) {
	p := New(nil, nil)
	_, err := p.Parse("https://example.com", []byte(`<html><body><p>no title here</p></body></html>`))
	if !errors.Is(err, ErrTitleNotFound) {
		t.Errorf("Parse() error = %v, want ErrTitleNotFound", err)
	}
}

func TestParse_CollapsesWhitespace(t *testing.T) {
	p := New(nil, nil)
	body := []byte("<html><head><title>\n  Spread \t Out\n  Title  </title></head></html>")

	got, err := p.Parse("https://example.com", body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "Spread Out Title" {
		t.Errorf("Parse() = %q", got)
	}
}
