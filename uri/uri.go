// Package uri manipulates hierarchical concept URIs such as
// "/c/en/dog". A URI is a slash-separated path whose pieces identify,
// in order, the namespace, the language, the term, and optionally a
// sense disambiguation.
package uri

import "strings"

// PrefixPieces is the number of pieces retained when reducing a URI to
// its concept prefix (namespace, language, term).
const PrefixPieces = 3

// Split breaks a URI into its pieces, dropping the leading empty
// segment produced by the leading slash.
func Split(uri string) []string {
	return strings.Split(strings.TrimPrefix(uri, "/"), "/")
}

// Join assembles pieces back into a URI with a leading slash.
func Join(pieces ...string) string {
	return "/" + strings.Join(pieces, "/")
}

// Prefix reduces a URI to at most n leading pieces.
func Prefix(uri string, n int) string {
	pieces := Split(uri)
	if len(pieces) > n {
		pieces = pieces[:n]
	}
	return Join(pieces...)
}

// Normalize canonicalizes a label into the form used at insertion
// time: a leading slash, ASCII letters lowercased, and spaces
// replaced by underscores. Reconstruction re-applies it to labels
// inverted from file paths, because the file system may drift from
// the canonical form (case-insensitive volumes, for example).
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label) + 1)
	if !strings.HasPrefix(label, "/") {
		b.WriteByte('/')
	}
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsBad reports whether a concept is unlikely to be useful: a colon is
// probably wiki detritus, three or more underscores an overly specific
// mis-parsed phrase, and assertion ("/a/") or negated ("/neg") URIs do
// not name concepts at all.
func IsBad(uri string) bool {
	return strings.Contains(uri, ":") ||
		strings.Count(uri, "_") >= 3 ||
		strings.HasPrefix(uri, "/a/") ||
		strings.HasSuffix(uri, "/neg")
}

// Generalized returns the URIs a concept should be counted under: the
// concept prefix always, plus the full URI when it carries sense
// information (five or more pieces).
func Generalized(uri string) []string {
	pieces := Split(uri)
	if len(pieces) >= 5 {
		return []string{uri, Join(pieces[:PrefixPieces]...)}
	}
	if len(pieces) > PrefixPieces {
		pieces = pieces[:PrefixPieces]
	}
	return []string{Join(pieces...)}
}
