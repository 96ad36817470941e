package oocvec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/oocvec/internal/fs"
	"github.com/hupe1980/oocvec/shard"
	"github.com/hupe1980/oocvec/uri"
	"github.com/hupe1980/oocvec/vecfile"
)

// Phase identifies the store lifecycle state.
type Phase int

const (
	// PhaseWritable permits insertions; combination has not run yet.
	PhaseWritable Phase = iota
	// PhaseFrozen forbids insertions; the label index is available and
	// normalization passes are permitted.
	PhaseFrozen
)

func (p Phase) String() string {
	switch p {
	case PhaseWritable:
		return "writable"
	case PhaseFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Store is an out-of-core vector store rooted at a directory tree.
// See the package documentation for the lifecycle.
//
// A Store is safe for concurrent insertion only through BulkInsert,
// which partitions labels so no two goroutines touch one shard file.
// All other methods expect a single caller.
type Store struct {
	path   string
	scheme shard.Scheme
	fsys   fs.FileSystem
	logger *slog.Logger

	mu       sync.Mutex
	phase    Phase
	dim      int
	inserted []string           // insertion-order labels, duplicates included
	labels   []string           // distinct labels, set on freeze
	suffixes map[string]int     // path-root -> max allocated suffix
	weights  map[string]float64 // shard file (relative) -> weight
}

// Open creates or reopens a store at path.
//
// A non-existent path (or an existing empty directory) yields a
// Writable store. A directory holding a valid finalized layout yields
// a Frozen store whose index is reconstructed by walking the tree and
// inverting the sharding scheme; the enumeration order is the
// traversal order, not the original insertion order. Any other content
// at path yields ErrStoreExists.
func Open(storePath string, opts ...Option) (*Store, error) {
	o := &options{
		shardDepth: shard.DefaultDepth,
		fsys:       fs.Default,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		path:     storePath,
		scheme:   shard.New(o.shardDepth),
		fsys:     o.fsys,
		logger:   o.logger,
		suffixes: make(map[string]int),
		weights:  make(map[string]float64),
	}

	info, err := s.fsys.Stat(storePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.fsys.MkdirAll(storePath, 0o755); err != nil {
			return nil, err
		}
		s.logger.Debug("opened writable store", "path", storePath)
		return s, nil
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStoreExists, storePath)
	}

	if err := s.reconstruct(); err != nil {
		return nil, err
	}
	if len(s.labels) == 0 {
		// Existing but empty directory: nothing to reconstruct, treat
		// as a fresh writable store.
		s.logger.Debug("opened writable store", "path", storePath)
		return s, nil
	}

	s.phase = PhaseFrozen
	s.suffixes, s.weights = nil, nil
	s.logger.Info("reconstructed frozen store",
		"path", storePath, "labels", len(s.labels), "dim", s.dim)
	return s, nil
}

// Path returns the store's root directory.
func (s *Store) Path() string { return s.path }

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Dim returns the vector dimensionality, 0 if nothing was inserted.
func (s *Store) Dim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// Len returns the number of distinct labels. It is 0 until the store
// is Frozen.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.labels)
}

// Insert persists one vector for label with the given weight.
//
// The label is canonicalized first, so "/c/en/DOG" and "/c/en/dog"
// share one shard file; reconstruction applies the same rule when
// inverting paths. The first vector for a path-root goes to the
// canonical file; repeats are written under monotonically increasing
// numeric suffixes and merged later by CombineWeights. Vector
// dimensionality across the store is the caller's responsibility and
// is not validated per call.
func (s *Store) Insert(label string, vec []float32, weight float64) error {
	label = uri.Normalize(label)
	fname, err := s.allocate(label, vec, weight)
	if err != nil {
		return err
	}
	if err := vecfile.Write(s.fsys, s.abs(fname), vec); err != nil {
		return err
	}
	s.logger.Debug("inserted vector", "label", label, "file", fname, "weight", weight)
	return nil
}

// allocate performs the phase check and suffix allocation under the
// store lock, leaving the file write to the caller so partitioned bulk
// insertion can overlap disk I/O.
func (s *Store) allocate(label string, vec []float32, weight float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseWritable {
		return "", fmt.Errorf("%w: insert on %s store", ErrInvalidState, s.phase)
	}
	if !(weight > 0) || math.IsInf(weight, 1) {
		return "", fmt.Errorf("%w: got %v", ErrInvalidWeight, weight)
	}

	root := s.scheme.PathRoot(label)
	fname := root + shard.Ext
	if s.fileExists(fname) {
		// Counters are monotonic and never reused, even if files
		// disappear outside the normal flow.
		next := s.suffixes[root] + 1
		s.suffixes[root] = next
		fname = fmt.Sprintf("%s.%d%s", root, next, shard.Ext)
		if s.fileExists(fname) {
			return "", &DuplicateFileError{Path: fname}
		}
	}

	s.weights[fname] = weight
	s.inserted = append(s.inserted, label)
	if s.dim == 0 {
		s.dim = len(vec)
	}
	return fname, nil
}

// CombineWeights merges every path-root that received more than one
// insertion into a single weighted-average vector, then freezes the
// store. It must be called exactly once, after all insertions.
func (s *Store) CombineWeights() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseWritable {
		return fmt.Errorf("%w: combine on %s store", ErrInvalidState, s.phase)
	}
	if len(s.inserted) == 0 {
		return ErrEmptyStore
	}

	buf := make([]float32, s.dim)
	for root, maxSuffix := range s.suffixes {
		agg := make([]float32, s.dim)
		var weightSum float32
		for i := 0; i <= maxSuffix; i++ {
			fname := root + shard.Ext
			if i > 0 {
				fname = fmt.Sprintf("%s.%d%s", root, i, shard.Ext)
			}
			w, ok := s.weights[fname]
			if !ok {
				return fmt.Errorf("no recorded weight for shard file %s", fname)
			}
			if err := vecfile.ReadInto(s.fsys, s.abs(fname), buf); err != nil {
				return err
			}
			fw := float32(w)
			for j := range agg {
				agg[j] += buf[j] * fw
			}
			weightSum += fw
		}
		for j := range agg {
			agg[j] /= weightSum
		}
		if err := vecfile.Write(s.fsys, s.abs(root+shard.Ext), agg); err != nil {
			return err
		}
		for i := 1; i <= maxSuffix; i++ {
			if err := s.fsys.Remove(s.abs(fmt.Sprintf("%s.%d%s", root, i, shard.Ext))); err != nil {
				return err
			}
		}
	}

	// Deduplicate the index, preserving first-occurrence order.
	seen := make(map[string]struct{}, len(s.inserted))
	for _, label := range s.inserted {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		s.labels = append(s.labels, label)
	}

	combined := len(s.suffixes)
	s.phase = PhaseFrozen
	s.suffixes, s.weights, s.inserted = nil, nil, nil
	s.logger.Info("combined weights", "labels", len(s.labels), "merged_roots", combined)
	return nil
}

// L1NormalizeColumns rescales the corpus so every column (dimension)
// sums to 1. It makes two full sweeps over the stored vectors: one to
// accumulate the column sums, one to rewrite each file in place.
//
// Run it before L2NormalizeRows: the row pass destroys the column
// magnitudes this pass depends on.
func (s *Store) L1NormalizeColumns() error {
	if err := s.requireFrozen("l1 normalize columns"); err != nil {
		return err
	}

	colSums := make([]float32, s.dim)
	buf := make([]float32, s.dim)
	for _, label := range s.labels {
		if err := vecfile.ReadInto(s.fsys, s.abs(s.scheme.FilePath(label)), buf); err != nil {
			return err
		}
		for j := range colSums {
			colSums[j] += buf[j]
		}
	}
	for j, sum := range colSums {
		if sum == 0 {
			return fmt.Errorf("%w: column %d sums to zero", ErrDegenerateVector, j)
		}
	}

	for _, label := range s.labels {
		fname := s.scheme.FilePath(label)
		if err := vecfile.ReadInto(s.fsys, s.abs(fname), buf); err != nil {
			return err
		}
		for j := range buf {
			buf[j] /= colSums[j]
		}
		if err := vecfile.Write(s.fsys, s.abs(fname), buf); err != nil {
			return err
		}
	}

	s.logger.Info("l1 normalized columns", "labels", len(s.labels), "dim", s.dim)
	return nil
}

// L2NormalizeRows rewrites every stored vector as a unit vector in one
// sweep. A zero vector cannot be normalized and fails with
// ErrDegenerateVector instead of propagating Inf or NaN.
func (s *Store) L2NormalizeRows() error {
	if err := s.requireFrozen("l2 normalize rows"); err != nil {
		return err
	}

	buf := make([]float32, s.dim)
	for _, label := range s.labels {
		fname := s.scheme.FilePath(label)
		if err := vecfile.ReadInto(s.fsys, s.abs(fname), buf); err != nil {
			return err
		}
		var sumsq float64
		for _, v := range buf {
			sumsq += float64(v) * float64(v)
		}
		if sumsq == 0 {
			return fmt.Errorf("%w: %s", ErrDegenerateVector, label)
		}
		norm := float32(math.Sqrt(sumsq))
		for j := range buf {
			buf[j] /= norm
		}
		if err := vecfile.Write(s.fsys, s.abs(fname), buf); err != nil {
			return err
		}
	}

	s.logger.Info("l2 normalized rows", "labels", len(s.labels))
	return nil
}

// Labels returns the distinct labels of a Frozen store, one entry per
// surviving vector file. The slice is a copy.
func (s *Store) Labels() ([]string, error) {
	if err := s.requireFrozen("enumerate labels"); err != nil {
		return nil, err
	}
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out, nil
}

// Lookup re-derives the file path for label and reads its vector. The
// label is canonicalized the same way Insert does it.
func (s *Store) Lookup(label string) ([]float32, error) {
	if err := s.requireFrozen("lookup"); err != nil {
		return nil, err
	}
	label = uri.Normalize(label)
	vec, err := vecfile.Read(s.fsys, s.abs(s.scheme.FilePath(label)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return vec, err
}

func (s *Store) requireFrozen(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFrozen {
		return fmt.Errorf("%w: %s on %s store", ErrInvalidState, op, s.phase)
	}
	return nil
}

// abs converts a slash-separated store-relative path to a platform
// path under the store root.
func (s *Store) abs(rel string) string {
	return filepath.Join(s.path, filepath.FromSlash(rel))
}

func (s *Store) fileExists(rel string) bool {
	info, err := s.fsys.Stat(s.abs(rel))
	return err == nil && !info.IsDir()
}

// reconstruct walks the directory tree, inverts every vector file path
// back to a label, and populates the index in traversal order. Any
// file that does not belong to a finalized layout (foreign files,
// leftover suffixed shards) fails with ErrStoreExists.
func (s *Store) reconstruct() error {
	var files []string
	var walk func(rel string) error
	walk = func(rel string) error {
		entries, err := s.fsys.ReadDir(s.abs(rel))
		if err != nil {
			return err
		}
		for _, e := range entries {
			child := path.Join(rel, e.Name())
			if e.IsDir() {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			files = append(files, child)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return err
	}

	for _, f := range files {
		stem, ok := strings.CutSuffix(path.Base(f), shard.Ext)
		if !ok {
			return fmt.Errorf("%w: unexpected file %s", ErrStoreExists, f)
		}
		// A term may itself end in ".<digits>". Suffixes are only ever
		// allocated after the canonical file exists and combination
		// rewrites the canonical before deleting them, so a genuine
		// leftover always has its base file alongside.
		if base, _, suffixed := shard.SplitSuffix(stem); suffixed {
			if s.fileExists(path.Join(path.Dir(f), base+shard.Ext)) {
				return fmt.Errorf("%w: leftover suffixed shard file %s", ErrStoreExists, f)
			}
		}
		label, err := s.scheme.Label(f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreExists, err)
		}
		if s.dim == 0 {
			dim, err := vecfile.Dim(s.fsys, s.abs(f))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreExists, err)
			}
			s.dim = dim
		}
		s.labels = append(s.labels, label)
	}
	return nil
}
