// Package oocvec builds large semantic vector spaces out of core: a
// disk-backed, sharded repository of labeled dense vectors that can be
// filled incrementally and queried later without ever holding the full
// matrix in memory.
//
// A store moves through a two-phase lifecycle. While Writable it
// accepts (label, vector, weight) insertions; repeated labels are kept
// as separate shard files. CombineWeights merges the duplicates into
// weighted averages and freezes the store. Once Frozen the label index
// is available, individual vectors can be looked up by label, and the
// two corpus-wide normalization passes may run:
//
//	st, err := oocvec.Open("./space")
//	...
//	st.Insert("/c/en/cat", []float32{1, 1}, 1.0)
//	st.Insert("/c/en/cat", []float32{3, 1}, 2.0)
//	...
//	st.CombineWeights()       // "/c/en/cat" -> weighted average
//	st.L1NormalizeColumns()   // every column sums to 1
//	st.L2NormalizeRows()      // every row has unit norm
//
// Column normalization must run before row normalization: the row pass
// destroys the column magnitudes the column pass depends on.
//
// Opening a path that already holds a finalized store reconstructs the
// index from the directory tree and yields a Frozen store directly.
// Memory stays bounded to a handful of vectors regardless of corpus
// size; the only in-core state is the label index.
//
// The store owns its directory exclusively during the write phase.
// There is no transactional log: an interrupted write phase leaves the
// directory in a partial state that must be discarded and rebuilt.
package oocvec
