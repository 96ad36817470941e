// Package shard maps concept labels to bounded-fanout file system
// paths and back.
//
// A corpus can contain millions of distinct terms; placing them all in
// one directory degrades most file systems. The scheme bounds
// per-directory fanout by interposing one single-character directory
// per leading term character between the label's hierarchy segments
// and the final file stem:
//
//	/c/en/dog  ->  c/en/d/o/g/dog.vec
//
// The forward and inverse mappings live together in this package and
// are tested as a round-trip pair: reconstruction of an existing store
// depends entirely on the inverse staying in sync with the forward
// mapping.
package shard

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/hupe1980/oocvec/uri"
)

const (
	// DefaultDepth is the number of single-character shard levels.
	DefaultDepth = 3

	// Ext is the extension of every vector file.
	Ext = ".vec"

	// Placeholder substitutes characters that are unsafe as directory
	// names and pads terms shorter than the shard depth.
	Placeholder = '_'
)

// Scheme computes shard paths for one store. The zero value is not
// valid; use New.
type Scheme struct {
	depth int
}

// New creates a Scheme with the given shard depth. Depths < 1 fall
// back to DefaultDepth.
func New(depth int) Scheme {
	if depth < 1 {
		depth = DefaultDepth
	}
	return Scheme{depth: depth}
}

// Depth returns the number of shard levels.
func (s Scheme) Depth() int { return s.depth }

// PathRoot returns the slash-separated relative path for label,
// without extension. It is deterministic, pure, and total for any
// non-empty label.
func (s Scheme) PathRoot(label string) string {
	pieces := uri.Split(label)
	term := pieces[len(pieces)-1]
	parts := make([]string, 0, len(pieces)+s.depth)
	parts = append(parts, pieces[:len(pieces)-1]...)

	runes := []rune(term)
	for i := 0; i < s.depth; i++ {
		c := Placeholder
		if i < len(runes) {
			c = sanitize(runes[i])
		}
		parts = append(parts, string(c))
	}
	parts = append(parts, term)
	return path.Join(parts...)
}

// FilePath returns the canonical vector file path for label.
func (s Scheme) FilePath(label string) string {
	return s.PathRoot(label) + Ext
}

// Label inverts a relative vector file path back to its label. The
// path must have the extension Ext, at least depth+1 components, and
// shard directories consistent with the term; the recovered label is
// re-normalized because raw path segments are not guaranteed to be in
// canonical form.
func (s Scheme) Label(relpath string) (string, error) {
	base := path.Base(relpath)
	term, ok := strings.CutSuffix(base, Ext)
	if !ok {
		return "", fmt.Errorf("shard: %q is not a vector file", relpath)
	}

	dir := path.Dir(relpath)
	var components []string
	if dir != "." {
		components = strings.Split(dir, "/")
	}
	if len(components) < s.depth {
		return "", fmt.Errorf("shard: path %q is too shallow for depth %d", relpath, s.depth)
	}

	hierarchy := components[:len(components)-s.depth]
	levels := components[len(components)-s.depth:]
	runes := []rune(term)
	for i, level := range levels {
		want := Placeholder
		if i < len(runes) {
			want = sanitize(runes[i])
		}
		if level != string(want) {
			return "", fmt.Errorf("shard: path %q does not shard to term %q", relpath, term)
		}
	}

	return uri.Normalize(uri.Join(append(hierarchy, term)...)), nil
}

// SplitSuffix splits a disambiguating numeric suffix off a file stem:
// "dog.1" yields ("dog", 1, true), "dog" yields ("dog", 0, false).
func SplitSuffix(stem string) (base string, suffix int, ok bool) {
	i := strings.LastIndexByte(stem, '.')
	if i < 0 {
		return stem, 0, false
	}
	n, err := strconv.Atoi(stem[i+1:])
	if err != nil || n < 0 {
		return stem, 0, false
	}
	return stem[:i], n, true
}

func sanitize(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '#':
		return r
	default:
		return Placeholder
	}
}
