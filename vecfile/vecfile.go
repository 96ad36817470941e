// Package vecfile reads and writes the single-vector binary files the
// store keeps on disk.
//
// Layout (little-endian): a 16-byte header {magic, version, dimension,
// CRC32-IEEE of the payload} followed by dimension float32 values.
// The checksum detects accidental corruption only; it is not a
// tamper-detection mechanism.
//
// Writes go through a temp file in the target directory and an atomic
// rename, so an interrupted rewrite never leaves a torn vector behind.
package vecfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hupe1980/oocvec/internal/fs"
)

const (
	// Magic identifies vector files (ASCII "OOCV").
	Magic = 0x4f4f4356
	// Version is the current file format version.
	Version = 1

	headerSize = 16
)

var (
	ErrInvalidMagic   = errors.New("vecfile: invalid magic number")
	ErrInvalidVersion = errors.New("vecfile: unsupported version")
)

// ChecksumError is returned when a payload fails checksum
// verification.
type ChecksumError struct {
	Path     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("vecfile: checksum mismatch in %s: expected 0x%08x, got 0x%08x",
		e.Path, e.Expected, e.Actual)
}

// Write persists vec to path atomically, creating parent directories
// as needed.
func Write(fsys fs.FileSystem, path string, vec []float32) error {
	if fsys == nil {
		fsys = fs.Default
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	payload := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(vec)))
	binary.LittleEndian.PutUint32(header[12:], crc32.ChecksumIEEE(payload))

	// Write to a temp file in the same directory so the rename is atomic.
	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(header); err != nil {
		f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}

// Read loads the vector stored at path.
func Read(fsys fs.FileSystem, path string) ([]float32, error) {
	_, vec, err := read(fsys, path, nil)
	return vec, err
}

// ReadInto loads the vector stored at path into buf, which must have
// the stored dimensionality. It avoids per-read allocations during
// streaming sweeps.
func ReadInto(fsys fs.FileSystem, path string, buf []float32) error {
	dim, _, err := read(fsys, path, buf)
	if err != nil {
		return err
	}
	if dim != len(buf) {
		return fmt.Errorf("vecfile: dimension mismatch in %s: file has %d, buffer has %d",
			path, dim, len(buf))
	}
	return nil
}

// Dim returns the dimensionality recorded in the header at path
// without reading the payload.
func Dim(fsys fs.FileSystem, path string) (int, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dim, _, err := readHeader(f, path)
	return dim, err
}

func read(fsys fs.FileSystem, path string, buf []float32) (int, []float32, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	dim, checksum, err := readHeader(f, path)
	if err != nil {
		return 0, nil, err
	}

	payload := make([]byte, dim*4)
	if _, err := io.ReadFull(f, payload); err != nil {
		return 0, nil, fmt.Errorf("vecfile: short payload in %s: %w", path, err)
	}
	if actual := crc32.ChecksumIEEE(payload); actual != checksum {
		return 0, nil, &ChecksumError{Path: path, Expected: checksum, Actual: actual}
	}

	vec := buf
	if vec == nil || len(vec) != dim {
		vec = make([]float32, dim)
	}
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return dim, vec, nil
}

func readHeader(r io.Reader, path string) (dim int, checksum uint32, err error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, 0, fmt.Errorf("vecfile: short header in %s: %w", path, err)
	}
	if magic := binary.LittleEndian.Uint32(header[0:]); magic != Magic {
		return 0, 0, fmt.Errorf("%w: got 0x%08x in %s", ErrInvalidMagic, magic, path)
	}
	if version := binary.LittleEndian.Uint32(header[4:]); version != Version {
		return 0, 0, fmt.Errorf("%w: got %d in %s", ErrInvalidVersion, version, path)
	}
	return int(binary.LittleEndian.Uint32(header[8:])), binary.LittleEndian.Uint32(header[12:]), nil
}
