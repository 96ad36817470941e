package oocvec

import (
	"context"
	"hash/fnv"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/oocvec/uri"
)

// Entry is one producer triple fed to the store during the write
// phase.
type Entry struct {
	Label  string
	Vector []float32
	Weight float64
}

// BulkInsert inserts entries using up to workers goroutines.
//
// Entries are partitioned by path-root, so no two workers ever write
// to the same shard file and suffix allocation for one root stays
// sequential. CombineWeights remains the single-threaded
// synchronization barrier after the write phase.
//
// The first failed insertion cancels the remaining work.
func (s *Store) BulkInsert(ctx context.Context, entries []Entry, workers int) error {
	if workers < 1 {
		workers = 1
	}

	// Bucket by the canonicalized path-root: Insert normalizes labels,
	// so two spellings of one label must land in the same bucket.
	buckets := make([][]Entry, workers)
	for _, e := range entries {
		h := fnv.New32a()
		h.Write([]byte(s.scheme.PathRoot(uri.Normalize(e.Label))))
		b := int(h.Sum32() % uint32(workers))
		buckets[b] = append(buckets[b], e)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		bucket := bucket
		g.Go(func() error {
			for _, e := range bucket {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.Insert(e.Label, e.Vector, e.Weight); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
