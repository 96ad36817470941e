package dense

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

const (
	// Magic identifies consolidated matrix files (ASCII "OOCM").
	Magic = 0x4f4f434d
	// Version is the current matrix file format version.
	Version = 1

	headerSize = 20

	// maxMatrixBytes caps the payload size a header may declare. The
	// dimensions are read before any integrity check can run, so a
	// corrupt header must not drive the allocation.
	maxMatrixBytes = 1 << 32
)

var (
	ErrInvalidMagic   = errors.New("dense: invalid magic number")
	ErrInvalidVersion = errors.New("dense: unsupported version")
	ErrChecksum       = errors.New("dense: checksum mismatch")
)

// Save writes the matrix to a single binary file. Paths ending in
// ".lz4" are compressed with an lz4 frame. The write is atomic via a
// temp file and rename.
func Save(path string, m *Matrix) error {
	rows, cols := m.Len(), m.Dim()
	payload := make([]byte, rows*cols*4)
	for i, row := range m.Data {
		for j, v := range row {
			binary.LittleEndian.PutUint32(payload[(i*cols+j)*4:], math.Float32bits(v))
		}
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	binary.LittleEndian.PutUint32(header[8:], uint32(rows))
	binary.LittleEndian.PutUint32(header[12:], uint32(cols))
	binary.LittleEndian.PutUint32(header[16:], crc32.ChecksumIEEE(payload))

	return saveToFile(path, func(w io.Writer) error {
		if strings.HasSuffix(path, ".lz4") {
			zw := lz4.NewWriter(w)
			if _, err := zw.Write(header); err != nil {
				return err
			}
			if _, err := zw.Write(payload); err != nil {
				return err
			}
			return zw.Close()
		}
		if _, err := w.Write(header); err != nil {
			return err
		}
		_, err := w.Write(payload)
		return err
	})
}

// Load reads a matrix file written by Save. Labels are not part of the
// file; pair it with LoadLabels.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if strings.HasSuffix(path, ".lz4") {
		r = lz4.NewReader(r)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("dense: short header in %s: %w", path, err)
	}
	if magic := binary.LittleEndian.Uint32(header[0:]); magic != Magic {
		return nil, fmt.Errorf("%w: got 0x%08x in %s", ErrInvalidMagic, magic, path)
	}
	if version := binary.LittleEndian.Uint32(header[4:]); version != Version {
		return nil, fmt.Errorf("%w: got %d in %s", ErrInvalidVersion, version, path)
	}
	rows := int(binary.LittleEndian.Uint32(header[8:]))
	cols := int(binary.LittleEndian.Uint32(header[12:]))
	checksum := binary.LittleEndian.Uint32(header[16:])

	// Division form so the check itself cannot overflow.
	if rows > 0 && int64(cols) > (maxMatrixBytes/4)/int64(rows) {
		return nil, fmt.Errorf("dense: implausible matrix size %dx%d in %s", rows, cols, path)
	}
	payload := make([]byte, rows*cols*4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("dense: short payload in %s: %w", path, err)
	}
	if actual := crc32.ChecksumIEEE(payload); actual != checksum {
		return nil, fmt.Errorf("%w in %s: expected 0x%08x, got 0x%08x",
			ErrChecksum, path, checksum, actual)
	}

	data := make([][]float32, rows)
	for i := range data {
		row := make([]float32, cols)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[(i*cols+j)*4:]))
		}
		data[i] = row
	}
	return &Matrix{Data: data}, nil
}

// SaveWithLabels writes the matrix and its labels as a file pair, the
// interchange format for spaces that fit in memory.
func SaveWithLabels(labelsPath, matrixPath string, m *Matrix) error {
	if err := SaveLabels(labelsPath, m.Labels); err != nil {
		return err
	}
	return Save(matrixPath, m)
}

// LoadWithLabels reads a matrix/labels file pair written by
// SaveWithLabels.
func LoadWithLabels(labelsPath, matrixPath string) (*Matrix, error) {
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	m, err := Load(matrixPath)
	if err != nil {
		return nil, err
	}
	if len(labels) != m.Len() {
		return nil, fmt.Errorf("dense: %d labels for %d rows", len(labels), m.Len())
	}
	m.Labels = labels
	return m, nil
}

// SaveLabels writes one label per line, UTF-8.
func SaveLabels(path string, labels []string) error {
	return saveToFile(path, func(w io.Writer) error {
		for _, label := range labels {
			if _, err := io.WriteString(w, label+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLabels reads a labels file written by SaveLabels.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	return labels, scanner.Err()
}

// ExportText writes the matrix in the fastText text format: a
// "rows cols" header line, then one "label v1 v2 ..." row per vector
// with %4.4f cells. When lang is non-empty only labels under
// "/c/<lang>/" are exported, with that prefix stripped. Wrap w in a
// gzip writer for compressed output.
func ExportText(w io.Writer, m *Matrix, lang string) error {
	prefix := ""
	if lang != "" {
		prefix = "/c/" + lang + "/"
	}

	rows := 0
	for _, label := range m.Labels {
		if prefix == "" || strings.HasPrefix(label, prefix) {
			rows++
		}
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	if _, err := fmt.Fprintf(bw, "%d %d\n", rows, m.Dim()); err != nil {
		return err
	}
	for i, label := range m.Labels {
		if prefix != "" {
			if !strings.HasPrefix(label, prefix) {
				continue
			}
			label = label[len(prefix):]
		}
		if _, err := io.WriteString(bw, label); err != nil {
			return err
		}
		for _, v := range m.Data[i] {
			if _, err := fmt.Fprintf(bw, " %4.4f", v); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// saveToFile writes through a temp file in the target directory so the
// rename into place is atomic.
func saveToFile(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""
	return nil
}
