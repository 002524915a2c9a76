package scan

import (
	"errors"
	"fmt"
	"sort"

	"linktagger/internal/domain/entity"
)

// ErrBadSegment indicates a replacement segment is out of range or overlaps
// another segment. Substitution is all-or-nothing: a bad segment set leaves
// the text untouched.
var ErrBadSegment = errors.New("invalid replacement segment")

// Apply substitutes every segment into text in one pass, back-to-front by
// offset, so earlier offsets remain valid while later spans are rewritten.
//
// Segments must reference the original text. Replacement is strictly
// offset-based; substring search-and-replace is never used because two
// candidate URLs may be literal prefixes of each other.
func Apply(text string, segments []entity.Segment) (string, error) {
	if len(segments) == 0 {
		return text, nil
	}

	ordered := make([]entity.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	// Validate before mutating anything.
	for i, seg := range ordered {
		if seg.Start < 0 || seg.End > len(text) || seg.Start >= seg.End {
			return text, fmt.Errorf("%w: [%d,%d) out of range", ErrBadSegment, seg.Start, seg.End)
		}
		if i > 0 && seg.End > ordered[i-1].Start {
			return text, fmt.Errorf("%w: [%d,%d) overlaps [%d,%d)",
				ErrBadSegment, seg.Start, seg.End, ordered[i-1].Start, ordered[i-1].End)
		}
	}

	out := text
	for _, seg := range ordered {
		out = out[:seg.Start] + seg.Replacement + out[seg.End:]
	}
	return out, nil
}
