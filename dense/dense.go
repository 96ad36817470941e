// Package dense holds a labeled vector matrix fully in memory, for
// data sets small enough to skip the out-of-core store, and provides
// the consolidated-file interchange formats: a binary matrix file
// (optionally lz4-compressed), a labels text file, and a
// fastText-style text export.
package dense

import (
	"fmt"

	"github.com/hupe1980/oocvec"
)

// Matrix is an in-memory labeled vector space. Labels[i] names
// Data[i]; all rows share one dimensionality.
type Matrix struct {
	Labels []string
	Data   [][]float32

	byLabel map[string]int
}

// New creates a Matrix from parallel label and row slices.
func New(labels []string, data [][]float32) (*Matrix, error) {
	if len(labels) != len(data) {
		return nil, fmt.Errorf("dense: %d labels for %d rows", len(labels), len(data))
	}
	return &Matrix{Labels: labels, Data: data}, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Data) }

// Dim returns the row dimensionality, 0 for an empty matrix.
func (m *Matrix) Dim() int {
	if len(m.Data) == 0 {
		return 0
	}
	return len(m.Data[0])
}

// Row returns the i-th vector.
func (m *Matrix) Row(i int) []float32 { return m.Data[i] }

// Lookup returns the vector stored under label.
func (m *Matrix) Lookup(label string) ([]float32, bool) {
	if m.byLabel == nil {
		m.byLabel = make(map[string]int, len(m.Labels))
		for i, l := range m.Labels {
			m.byLabel[l] = i
		}
	}
	i, ok := m.byLabel[label]
	if !ok {
		return nil, false
	}
	return m.Data[i], true
}

// FromStore materializes a frozen store into memory by enumerating its
// index and reading each vector file. This is the bulk loader the
// store itself deliberately does not provide.
func FromStore(st *oocvec.Store) (*Matrix, error) {
	labels, err := st.Labels()
	if err != nil {
		return nil, err
	}
	data := make([][]float32, len(labels))
	for i, label := range labels {
		vec, err := st.Lookup(label)
		if err != nil {
			return nil, err
		}
		data[i] = vec
	}
	return &Matrix{Labels: labels, Data: data}, nil
}
