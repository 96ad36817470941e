package formats

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/oocvec"
)

func TestConvert_FastTextPipeline(t *testing.T) {
	// Bare labels get the language prefix punched on; "dog" repeats and
	// is merged by weighted average before normalization.
	input := "3 2\ndog 2.0 0.0\ncat 0.0 2.0\ndog 4.0 0.0\n"

	st, err := oocvec.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	require.NoError(t, Convert(st, strings.NewReader(input), ConvertOptions{
		Format:   FormatFastText,
		Language: "en",
	}))

	require.Equal(t, oocvec.PhaseFrozen, st.Phase())
	require.Equal(t, 2, st.Len())

	// Weights 1, 1/2, 1/3: dog = (2*1 + 4/3) / (1 + 1/3) = 2.5, then
	// L1 columns make each column sum to 1 and L2 rows leave the
	// resulting axis-aligned unit vectors unchanged.
	dog, err := st.Lookup("/c/en/dog")
	require.NoError(t, err)
	require.InDelta(t, 1.0, dog[0], 1e-5)
	require.InDelta(t, 0.0, dog[1], 1e-5)

	cat, err := st.Lookup("/c/en/cat")
	require.NoError(t, err)
	require.InDelta(t, 0.0, cat[0], 1e-5)
	require.InDelta(t, 1.0, cat[1], 1e-5)
}

func TestConvert_RequirePrefix(t *testing.T) {
	input := "/c/en/dog 1.0 2.0\nchien 3.0 4.0\n"

	st, err := oocvec.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	require.NoError(t, Convert(st, strings.NewReader(input), ConvertOptions{
		Format:        FormatGloVe,
		Language:      "en",
		RequirePrefix: true,
	}))

	require.Equal(t, 1, st.Len())
	_, err = st.Lookup("/c/en/dog")
	require.NoError(t, err)
}

func TestConvert_MaxRows(t *testing.T) {
	input := "a 1.0 1.0\nb 2.0 1.0\nc 3.0 1.0\n"

	st, err := oocvec.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	require.NoError(t, Convert(st, strings.NewReader(input), ConvertOptions{
		Format:   FormatGloVe,
		Language: "en",
		MaxRows:  2,
	}))

	require.Equal(t, 2, st.Len())
}

func TestConvert_StandardizesLabels(t *testing.T) {
	input := "/c/en/Dog/n/animal 1.0 1.0\n"

	st, err := oocvec.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	require.NoError(t, Convert(st, strings.NewReader(input), ConvertOptions{
		Format:   FormatGloVe,
		Language: "en",
	}))

	labels, err := st.Labels()
	require.NoError(t, err)
	require.Equal(t, []string{"/c/en/dog"}, labels)
}

func TestConvert_BadLanguage(t *testing.T) {
	st, err := oocvec.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	require.Error(t, Convert(st, strings.NewReader(""), ConvertOptions{
		Format:   FormatGloVe,
		Language: "english",
	}))
}
