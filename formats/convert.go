package formats

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/oocvec"
	"github.com/hupe1980/oocvec/uri"
)

// Format identifies a supported source format.
type Format string

const (
	FormatGloVe    Format = "glove"
	FormatFastText Format = "fasttext"
	FormatWord2Vec Format = "word2vec"
)

// ConvertOptions configures Convert.
type ConvertOptions struct {
	// Format selects the decoder.
	Format Format

	// Language is the two-letter language code. Rows are namespaced
	// under "/c/<lang>/".
	Language string

	// MaxRows caps the number of accepted rows. <= 0 means no limit.
	MaxRows int

	// RequirePrefix drops rows whose labels lack the language prefix.
	// When false, the prefix is punched onto bare labels instead.
	RequirePrefix bool
}

// errStop aborts decoding once MaxRows accepted rows were inserted.
var errStop = errors.New("row limit reached")

// Convert streams rows from r into st and then runs the fixed
// pipeline: combine weights, L1-normalize columns, L2-normalize rows.
//
// The i-th accepted row is inserted with weight 1/(i+1), so later
// repeats of a label contribute progressively less to the combined
// average. Labels are standardized (normalized and reduced to the
// concept prefix) before insertion.
func Convert(st *oocvec.Store, r io.Reader, o ConvertOptions) error {
	if len(o.Language) != 2 {
		return fmt.Errorf("formats: unsupported language %q", o.Language)
	}
	prefix := "/c/" + o.Language + "/"

	accepted := 0
	row := func(label string, vec []float32) error {
		if o.MaxRows > 0 && accepted >= o.MaxRows {
			return errStop
		}
		if !strings.HasPrefix(label, prefix) {
			if o.RequirePrefix {
				return nil
			}
			label = prefix + label
		}
		label = uri.Prefix(uri.Normalize(label), uri.PrefixPieces)
		if err := st.Insert(label, vec, 1.0/float64(accepted+1)); err != nil {
			return err
		}
		accepted++
		return nil
	}

	var err error
	switch o.Format {
	case FormatGloVe:
		err = ReadGloVe(r, 0, row)
	case FormatFastText:
		err = ReadFastText(r, 0, row)
	case FormatWord2Vec:
		err = ReadWord2VecBin(r, 0, row)
	default:
		return fmt.Errorf("formats: unknown format %q", o.Format)
	}
	if err != nil && !errors.Is(err, errStop) {
		return err
	}

	if err := st.CombineWeights(); err != nil {
		return err
	}
	if err := st.L1NormalizeColumns(); err != nil {
		return err
	}
	return st.L2NormalizeRows()
}
