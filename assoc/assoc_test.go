package assoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runReduce(t *testing.T, input string, o Options) []string {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "assoc.tsv")
	out := filepath.Join(dir, "reduced.tsv")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))
	require.NoError(t, Reduce(in, out, o))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func line(left, right, value string) string {
	return strings.Join([]string{left, right, value, "/d/test", "/r/RelatedTo"}, "\t")
}

func TestReduce_CutoffFilters(t *testing.T) {
	// "/c/en/dog" and "/c/en/cat" co-occur four times, meeting the
	// cutoff; "/c/en/rare" appears once and is dropped.
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString(line("/c/en/dog", "/c/en/cat", "1.0") + "\n")
	}
	b.WriteString(line("/c/en/dog", "/c/en/rare", "1.0") + "\n")

	lines := runReduce(t, b.String(), Options{})
	require.Len(t, lines, 4)
	for _, l := range lines {
		require.True(t, strings.HasPrefix(l, "/c/en/dog\t/c/en/cat\t"))
	}
}

func TestReduce_DropsBadConcepts(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString(line("/c/en/wiki:page", "/c/en/cat", "1.0") + "\n")
		b.WriteString(line("/c/en/dog", "/c/en/cat", "1.0") + "\n")
	}

	lines := runReduce(t, b.String(), Options{})
	for _, l := range lines {
		require.NotContains(t, l, "wiki:page")
	}
	require.Len(t, lines, 4)
}

func TestReduce_DropsZeroValues(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString(line("/c/en/dog", "/c/en/cat", "0") + "\n")
	}

	lines := runReduce(t, b.String(), Options{})
	require.Empty(t, lines)
}

func TestReduce_GeneralizesSenses(t *testing.T) {
	// Sense-tagged URIs are counted and emitted both as themselves and
	// as their concept prefix.
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteString(line("/c/en/dog/n/animal", "/c/en/cat", "1.0") + "\n")
	}

	lines := runReduce(t, b.String(), Options{})
	require.Len(t, lines, 8)

	var sensed, general int
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "/c/en/dog/n/animal\t"):
			sensed++
		case strings.HasPrefix(l, "/c/en/dog\t"):
			general++
		}
	}
	require.Equal(t, 4, sensed)
	require.Equal(t, 4, general)
}

func TestReduce_NonEnglishCutoff(t *testing.T) {
	// Non-English concepts get their own cutoff.
	var b strings.Builder
	for i := 0; i < 2; i++ {
		b.WriteString(line("/c/de/hund", "/c/de/katze", "1.0") + "\n")
	}

	lines := runReduce(t, b.String(), Options{Cutoff: 2, EnCutoff: 10})
	require.Len(t, lines, 2)
}
