// Package formats decodes the source formats semantic vector spaces
// are distributed in (GloVe, fastText, word2vec) and streams their
// rows into a store without materializing the matrix.
package formats

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxLineSize bounds a single text row: label plus a few thousand
// float cells.
const maxLineSize = 1 << 20

// RowFunc receives one decoded (label, vector) row. Returning an error
// aborts the stream.
type RowFunc func(label string, vec []float32) error

// OpenMaybeGzip opens path, transparently decompressing when it ends
// in ".gz".
func OpenMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// ReadGloVe decodes the GloVe text format: one space-separated row per
// line, no header. At most maxRows rows are decoded; maxRows <= 0
// means no limit.
func ReadGloVe(r io.Reader, maxRows int, fn RowFunc) error {
	scanner := newRowScanner(r)
	rows := 0
	for scanner.Scan() {
		if maxRows > 0 && rows >= maxRows {
			break
		}
		label, vec, err := parseTextRow(scanner.Text())
		if err != nil {
			return err
		}
		if err := fn(label, vec); err != nil {
			return err
		}
		rows++
	}
	return scanner.Err()
}

// ReadFastText decodes the fastText text format, which is GloVe's
// format preceded by a "rows cols" header line.
func ReadFastText(r io.Reader, maxRows int, fn RowFunc) error {
	scanner := newRowScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return fmt.Errorf("formats: missing fasttext header")
	}
	rows, _, err := parseHeader(scanner.Text())
	if err != nil {
		return err
	}
	if maxRows <= 0 || rows < maxRows {
		maxRows = rows
	}

	decoded := 0
	for scanner.Scan() {
		if decoded >= maxRows {
			break
		}
		label, vec, err := parseTextRow(scanner.Text())
		if err != nil {
			return err
		}
		if err := fn(label, vec); err != nil {
			return err
		}
		decoded++
	}
	return scanner.Err()
}

// ReadWord2VecBin decodes word2vec's binary format: a "rows cols" text
// header, then records of a space-terminated label followed by cols
// raw little-endian float32s. The "</s>" sentence-boundary marker is
// skipped; it corresponds to nothing in other data.
func ReadWord2VecBin(r io.Reader, maxRows int, fn RowFunc) error {
	br := bufio.NewReaderSize(r, 1<<16)
	header, err := br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("formats: missing word2vec header: %w", err)
	}
	rows, cols, err := parseHeader(strings.TrimSpace(header))
	if err != nil {
		return err
	}
	if maxRows <= 0 || rows < maxRows {
		maxRows = rows
	}

	raw := make([]byte, cols*4)
	for decoded := 0; decoded < maxRows; {
		label, err := readUntilSpace(br)
		if err == io.EOF && label == "" {
			break
		}
		if err != nil {
			return err
		}
		if _, err := io.ReadFull(br, raw); err != nil {
			return fmt.Errorf("formats: short vector for %q: %w", label, err)
		}
		if label == "</s>" {
			continue
		}
		vec := make([]float32, cols)
		for i := range vec {
			vec[i] = float32frombytes(raw[i*4:])
		}
		if err := fn(label, vec); err != nil {
			return err
		}
		decoded++
	}
	return nil
}

func newRowScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

func parseHeader(line string) (rows, cols int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("formats: malformed header %q", line)
	}
	rows, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("formats: malformed header %q: %w", line, err)
	}
	cols, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("formats: malformed header %q: %w", line, err)
	}
	return rows, cols, nil
}

func parseTextRow(line string) (string, []float32, error) {
	items := strings.Split(strings.TrimRight(line, " \r\n"), " ")
	if len(items) < 2 {
		return "", nil, fmt.Errorf("formats: malformed row %q", truncate(line))
	}
	vec := make([]float32, len(items)-1)
	for i, item := range items[1:] {
		v, err := strconv.ParseFloat(item, 32)
		if err != nil {
			return "", nil, fmt.Errorf("formats: malformed cell in row %q: %w", truncate(line), err)
		}
		vec[i] = float32(v)
	}
	return items[0], vec, nil
}

// readUntilSpace reads the next space-terminated token, skipping any
// leading whitespace left over from the previous record.
func readUntilSpace(br *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return b.String(), err
		}
		switch c {
		case ' ':
			if b.Len() == 0 {
				continue
			}
			return b.String(), nil
		case '\n', '\r':
			if b.Len() == 0 {
				continue
			}
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
}

func float32frombytes(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func truncate(line string) string {
	if len(line) > 64 {
		return line[:64] + "..."
	}
	return line
}
