// Package entity defines the core domain objects for link tagging: candidate
// URL spans found in text, site-specific title extraction rules, and the
// positioned replacement segments produced by a tagging batch.
package entity

// Candidate represents a raw, not-yet-linked URL span found in input text.
// Start and End are byte offsets into the ORIGINAL input text; they must
// never be interpreted against a partially substituted copy.
type Candidate struct {
	Start int
	End   int
	Text  string
}

// IsValid reports whether the candidate describes a non-empty span with
// sane offsets.
func (c Candidate) IsValid() bool {
	return c.Start >= 0 && c.End > c.Start && c.Text != ""
}

// Segment is a positioned replacement computed for one candidate.
// Segments are applied to the original text in reverse position order so
// earlier offsets stay valid. Naive substring replacement is forbidden:
// two candidate URLs may be literal prefixes of each other.
type Segment struct {
	Start       int
	End         int
	Replacement string
}

// SiteRule is a per-site title extraction override. When URLSubstring occurs
// in the resolved URL, TitlePattern (a regular expression with one capture
// group) is tried against the page body before generic title parsing.
type SiteRule struct {
	URLSubstring string `yaml:"url_substring"`
	TitlePattern string `yaml:"title_pattern"`
}
