package parser

import (
	"regexp"
	"strconv"
	"unicode/utf8"
)

// namedEntities is the fixed table of HTML character references decoded in
// extracted titles. Numeric decimal and hexadecimal references are handled
// separately; everything outside this table passes through untouched.
var namedEntities = map[string]string{
	"&amp;":    "&",
	"&lt;":     "<",
	"&gt;":     ">",
	"&quot;":   `"`,
	"&#39;":    "'",
	"&apos;":   "'",
	"&nbsp;":   " ",
	"&lsquo;":  "‘",
	"&rsquo;":  "’",
	"&ldquo;":  "“",
	"&rdquo;":  "”",
	"&ndash;":  "–",
	"&mdash;":  "—",
	"&hellip;": "…",
	"&bull;":   "•",
}

// entityRe matches one complete character reference, named or numeric. Both
// forms are resolved in a single scan so the text produced by one
// substitution is never re-examined.
var entityRe = regexp.MustCompile(`&(?:#[xX]?[0-9a-fA-F]+|[a-zA-Z]+);`)

// DecodeEntities substitutes the fixed named-entity table plus numeric
// decimal (&#NNN;) and hexadecimal (&#xHH;) character references. Decoding
// is a single left-to-right pass: an escaped reference such as "&amp;#39;"
// decodes to the literal text "&#39;", never to "'".
func DecodeEntities(s string) string {
	return entityRe.ReplaceAllStringFunc(s, func(ref string) string {
		if literal, ok := namedEntities[ref]; ok {
			return literal
		}
		if ref[1] == '#' {
			return decodeNumeric(ref)
		}
		return ref
	})
}

// decodeNumeric resolves one "&#NNN;" or "&#xHH;" reference, returning the
// reference unchanged when it does not denote a valid code point.
func decodeNumeric(ref string) string {
	body := ref[2 : len(ref)-1]
	base := 10
	if body[0] == 'x' || body[0] == 'X' {
		base = 16
		body = body[1:]
	}
	code, err := strconv.ParseInt(body, base, 32)
	if err != nil || code <= 0 || code > utf8.MaxRune {
		return ref
	}
	return string(rune(code))
}
