// Package scan finds candidate URL spans in free text and applies
// position-anchored replacements back onto the original text.
package scan

import (
	"errors"
	"fmt"
	"regexp"

	"linktagger/internal/domain/entity"
)

// ErrInvalidPattern indicates the user-supplied URL pattern does not compile.
// This is a configuration error: the whole batch is aborted and the input
// text returned unchanged, because no candidate produced by a broken pattern
// can be trusted.
var ErrInvalidPattern = errors.New("invalid URL pattern")

// Matcher locates candidate URLs in a text block using a configurable
// pattern. Matching is case-insensitive and scans the whole text.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles the user-supplied pattern. Matching is always
// case-insensitive; the pattern is wrapped in a non-capturing group so its
// own inline flags and group constructs stay local to it.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	re, err := regexp.Compile("(?i)(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Matcher{re: re}, nil
}

// FindCandidates returns every match of the pattern that is not already the
// URL part of a markdown link. A span is considered linked when the two
// characters immediately preceding it are "](".
//
// Offsets in the returned candidates refer to the original input text.
func (m *Matcher) FindCandidates(text string) []entity.Candidate {
	var candidates []entity.Candidate

	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start >= 2 && text[start-2:start] == "](" {
			continue
		}
		candidates = append(candidates, entity.Candidate{
			Start: start,
			End:   end,
			Text:  text[start:end],
		})
	}

	return candidates
}
