package shard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheme_PathRoot(t *testing.T) {
	s := New(3)

	tests := []struct {
		label string
		want  string
	}{
		{"/c/en/dog", "c/en/d/o/g/dog"},
		{"/c/en/dog_house", "c/en/d/o/g/dog_house"},
		{"/c/en/ox", "c/en/o/x/_/ox"},
		{"/c/en/a", "c/en/a/_/_/a"},
		{"/c/en/#1", "c/en/#/1/_/#1"},
		{"/c/fr/été", "c/fr/_/t/_/été"},
		{"/c/en/u.s.", "c/en/u/_/s/u.s."},
		{"/c/en/3,5", "c/en/3/_/5/3,5"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, s.PathRoot(tt.label), "label %q", tt.label)
	}
}

func TestScheme_PathRoot_Deterministic(t *testing.T) {
	s := New(3)
	require.Equal(t, s.PathRoot("/c/en/dog"), s.PathRoot("/c/en/dog"))
}

func TestScheme_RoundTrip(t *testing.T) {
	s := New(3)

	labels := []string{
		"/c/en/dog",
		"/c/en/ox",
		"/c/en/a",
		"/c/de/hund",
		"/c/en/dog_house",
		"/c/en/#1",
		"/c/fr/été",
	}
	for _, label := range labels {
		got, err := s.Label(s.FilePath(label))
		require.NoError(t, err, "label %q", label)
		require.Equal(t, label, got)
	}
}

func TestScheme_RoundTrip_Depth5(t *testing.T) {
	s := New(5)
	require.Equal(t, "c/en/d/o/g/_/_/dog", s.PathRoot("/c/en/dog"))

	got, err := s.Label(s.FilePath("/c/en/dog"))
	require.NoError(t, err)
	require.Equal(t, "/c/en/dog", got)
}

func TestScheme_Label_Renormalizes(t *testing.T) {
	s := New(3)
	// A case-insensitive volume may hand back drifted segments; the
	// recovered label must be canonical again.
	got, err := s.Label("c/en/D/O/G/DOG" + Ext)
	require.NoError(t, err)
	require.Equal(t, "/c/en/dog", got)
}

func TestScheme_Label_Rejects(t *testing.T) {
	s := New(3)

	_, err := s.Label("c/en/d/o/g/dog.txt")
	require.Error(t, err, "wrong extension")

	_, err = s.Label("dog" + Ext)
	require.Error(t, err, "too shallow")

	_, err = s.Label("c/en/x/y/z/dog" + Ext)
	require.Error(t, err, "shard levels inconsistent with term")
}

func TestSplitSuffix(t *testing.T) {
	base, suffix, ok := SplitSuffix("dog.1")
	require.True(t, ok)
	require.Equal(t, "dog", base)
	require.Equal(t, 1, suffix)

	_, _, ok = SplitSuffix("dog")
	require.False(t, ok)

	_, _, ok = SplitSuffix("u.s")
	require.False(t, ok)
}
