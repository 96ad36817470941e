package oocvec

import (
	"io"
	"log/slog"

	"github.com/hupe1980/oocvec/internal/fs"
)

type options struct {
	shardDepth int
	fsys       fs.FileSystem
	logger     *slog.Logger
}

// Option configures Open behavior.
type Option func(*options)

// WithShardDepth sets the number of single-character shard levels the
// path scheme inserts between hierarchy segments and the file stem.
// Stores must be reopened with the depth they were written with.
func WithShardDepth(depth int) Option {
	return func(o *options) {
		o.shardDepth = depth
	}
}

// WithFileSystem injects a file system implementation. Primarily used
// by tests for fault injection. If nil is passed, the local file
// system is used.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

// WithLogger sets the structured logger used for phase transitions and
// sweep progress. By default logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		o.logger = logger
	}
}
