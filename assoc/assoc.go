// Package assoc filters a co-occurrence association table, removing
// uncommon concepts and concepts unlikely to be useful before the
// table feeds a vector space build.
//
// The input is tab-separated lines of
//
//	left<TAB>right<TAB>value<TAB>dataset<TAB>relation
//
// Filtering is a two-pass stream: the first pass counts how often each
// generalized concept occurs, the second emits only pairs whose
// concepts meet the occurrence cutoff. Counts are kept per interned
// concept id and the retained set is a roaring bitmap, so memory stays
// proportional to the number of distinct concepts, not to the table
// size.
package assoc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/oocvec/uri"
)

// DefaultCutoff is the minimum occurrence count for a concept to be
// retained.
const DefaultCutoff = 4

// Options configures Reduce.
type Options struct {
	// Cutoff applies to non-English concepts. <= 0 means DefaultCutoff.
	Cutoff int
	// EnCutoff applies to English ("/c/en/") concepts. <= 0 means
	// DefaultCutoff.
	EnCutoff int
}

// Reduce filters the association table at inputPath into outputPath.
// The input is read twice, once per pass.
func Reduce(inputPath, outputPath string, o Options) error {
	if o.Cutoff <= 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.EnCutoff <= 0 {
		o.EnCutoff = DefaultCutoff
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	retained, intern, err := countConcepts(in, o)
	in.Close()
	if err != nil {
		return err
	}

	in, err = os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := writeFiltered(in, out, retained, intern); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// countConcepts runs the first pass: count generalized-concept
// occurrences and build the retained set.
func countConcepts(r io.Reader, o Options) (*roaring.Bitmap, map[string]uint32, error) {
	intern := make(map[string]uint32)
	var counts []uint32

	id := func(concept string) uint32 {
		if n, ok := intern[concept]; ok {
			return n
		}
		n := uint32(len(counts))
		intern[concept] = n
		counts = append(counts, 0)
		return n
	}

	scanner := newLineScanner(r)
	for scanner.Scan() {
		left, right, _, ok := splitLine(scanner.Text())
		if !ok {
			continue
		}
		for _, gleft := range uri.Generalized(left) {
			for _, gright := range uri.Generalized(right) {
				counts[id(gleft)]++
				counts[id(gright)]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	retained := roaring.New()
	for concept, n := range intern {
		count := int(counts[n])
		if count >= o.EnCutoff ||
			(!strings.HasPrefix(concept, "/c/en/") && count >= o.Cutoff) {
			retained.Add(n)
		}
	}
	return retained, intern, nil
}

// writeFiltered runs the second pass: drop bad concepts, zero values,
// and pairs outside the retained set; emit surviving generalized
// pairs.
func writeFiltered(r io.Reader, w io.Writer, retained *roaring.Bitmap, intern map[string]uint32) error {
	bw := bufio.NewWriterSize(w, 256*1024)
	scanner := newLineScanner(r)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 5)
		if len(fields) < 5 {
			continue
		}
		left, right, value, dataset, rel := fields[0], fields[1], fields[2], fields[3], fields[4]
		if uri.IsBad(left) || uri.IsBad(right) {
			continue
		}
		fvalue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("assoc: malformed value %q: %w", value, err)
		}
		if fvalue == 0 {
			continue
		}
		for _, gleft := range uri.Generalized(left) {
			for _, gright := range uri.Generalized(right) {
				if !contains(retained, intern, gleft) || !contains(retained, intern, gright) {
					continue
				}
				line := strings.Join([]string{gleft, gright, value, dataset, rel}, "\t")
				if _, err := io.WriteString(bw, line+"\n"); err != nil {
					return err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

func contains(retained *roaring.Bitmap, intern map[string]uint32, concept string) bool {
	n, ok := intern[concept]
	return ok && retained.Contains(n)
}

func splitLine(line string) (left, right, rest string, ok bool) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) < 2 {
		return "", "", "", false
	}
	if len(fields) == 3 {
		rest = fields[2]
	}
	return fields[0], fields[1], rest, true
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	return scanner
}
