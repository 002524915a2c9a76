// Package parser extracts page titles from HTML documents, applying
// site-specific override rules before generic title parsing, and decodes
// HTML character references in the result.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"linktagger/internal/domain/entity"
)

// ErrTitleNotFound indicates that no title could be extracted from an
// otherwise successfully fetched document.
var ErrTitleNotFound = errors.New("title not found")

// Open Graph title patterns, tried against the raw body when the document
// carries no usable <title> element and structured parsing found no og:title.
// The four variants tolerate both attribute orders with strict and loose
// adjacency.
var ogTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<meta\s+property=["']og:title["']\s+content=["']([^"']+)["']`),
	regexp.MustCompile(`(?is)<meta\s+property=["']og:title["'][^>]*?\scontent=["']([^"']+)["']`),
	regexp.MustCompile(`(?is)<meta\s+content=["']([^"']+)["']\s+property=["']og:title["']`),
	regexp.MustCompile(`(?is)<meta\s+content=["']([^"']+)["'][^>]*?\sproperty=["']og:title["']`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Parser extracts titles using an ordered list of site override rules.
type Parser struct {
	rules  []entity.SiteRule
	logger *slog.Logger
}

// New creates a Parser with the given override rules. A nil logger falls
// back to slog.Default().
func New(rules []entity.SiteRule, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{rules: rules, logger: logger}
}

// Parse extracts a title for the document fetched from pageURL.
//
// Precedence:
//  1. the first site override rule whose URL substring matches pageURL and
//     whose pattern captures a non-empty group
//  2. the HTML <title> element
//  3. og:title metadata, tolerating attribute-order variation
//
// An invalid override pattern is reported and skipped; it never aborts
// parsing. If no tier yields a title, ErrTitleNotFound is returned.
func (p *Parser) Parse(pageURL string, body []byte) (string, error) {
	if title, ok := p.fromSiteRules(pageURL, body); ok {
		return finish(title)
	}

	if title, ok := fromDocument(body); ok {
		return finish(title)
	}

	for _, re := range ogTitlePatterns {
		if m := re.FindSubmatch(body); m != nil && len(bytes.TrimSpace(m[1])) > 0 {
			return finish(string(m[1]))
		}
	}

	return "", ErrTitleNotFound
}

// fromSiteRules tries each configured override rule in order.
func (p *Parser) fromSiteRules(pageURL string, body []byte) (string, bool) {
	for _, rule := range p.rules {
		if rule.URLSubstring == "" || !strings.Contains(pageURL, rule.URLSubstring) {
			continue
		}

		re, err := regexp.Compile("(?is)" + rule.TitlePattern)
		if err != nil {
			p.logger.Warn("skipping invalid site override pattern",
				slog.String("url_substring", rule.URLSubstring),
				slog.Any("error", err))
			continue
		}

		m := re.FindSubmatch(body)
		if m == nil || len(m) < 2 || len(bytes.TrimSpace(m[1])) == 0 {
			continue
		}
		return string(m[1]), true
	}
	return "", false
}

// fromDocument extracts <title> or og:title through goquery. Structured
// parsing is inherently tolerant of attribute order, so this covers the
// common cases before the raw-byte pattern fallback runs.
func fromDocument(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, true
	}

	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if content = strings.TrimSpace(content); content != "" {
			return content, true
		}
	}

	return "", false
}

// finish collapses whitespace and decodes character references in the
// extracted title.
func finish(title string) (string, error) {
	title = whitespaceRe.ReplaceAllString(strings.TrimSpace(title), " ")
	title = DecodeEntities(title)
	if title == "" {
		return "", fmt.Errorf("%w: empty after decoding", ErrTitleNotFound)
	}
	return title, nil
}
