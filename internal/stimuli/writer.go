package stimuli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"
)

// Writer emits a stimuli file: one header comment line, then one record
// line per stimulus. The output path's suffix selects an optional
// compression codec (.gz, .zst, .lz4; anything else is plain text). All
// payload bytes are teed through an xxh3 hasher so Close can report a
// content digest for integrity logging.
type Writer struct {
	f       *os.File
	codec   io.WriteCloser // nil for plain text
	buf     *bufio.Writer
	hash    *xxh3.Hasher
	records int
	bytes   int64
}

// NewWriter creates the output file. Open or codec failure is returned
// before anything is written; the caller treats it as fatal.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create stimuli file: %w", err)
	}

	w := &Writer{f: f, hash: xxh3.New()}
	var sink io.Writer = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		w.codec = gzip.NewWriter(f)
		sink = w.codec
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		w.codec = enc
		sink = enc
	case strings.HasSuffix(path, ".lz4"):
		w.codec = lz4.NewWriter(f)
		sink = w.codec
	}
	w.buf = bufio.NewWriter(sink)

	if err := w.writeLine(Header); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeLine(line string) error {
	n, err := w.buf.WriteString(line + "\n")
	if err != nil {
		return fmt.Errorf("write stimuli line: %w", err)
	}
	w.hash.WriteString(line + "\n")
	w.bytes += int64(n)
	return nil
}

// WriteRecord appends one stimulus line.
func (w *Writer) WriteRecord(r Record) error {
	if err := w.writeLine(r.Line()); err != nil {
		return err
	}
	w.records++
	return nil
}

// Records returns the number of stimulus lines written so far.
func (w *Writer) Records() int {
	return w.records
}

// Bytes returns the uncompressed payload size written so far.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

// Digest returns the xxh3 digest of the payload written so far.
func (w *Writer) Digest() uint64 {
	return w.hash.Sum64()
}

// Close flushes and closes the file unconditionally.
func (w *Writer) Close() error {
	err := w.buf.Flush()
	if w.codec != nil {
		if cerr := w.codec.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}
