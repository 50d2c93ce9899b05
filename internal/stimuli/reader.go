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

// Reader is the consumer half of the file contract. It discards the
// header line, then yields one parsed record per call; any token mismatch
// is an error the consumer treats as fatal. Compression is detected from
// the path suffix, mirroring Writer.
type Reader struct {
	f     *os.File
	codec io.Closer // nil for plain text
	sc    *bufio.Scanner
	hash  *xxh3.Hasher
	line  int
}

// OpenReader opens a stimuli file and consumes its header line.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stimuli file: %w", err)
	}

	r := &Reader{f: f, hash: xxh3.New()}
	var src io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip decoder: %w", err)
		}
		r.codec = gz
		src = gz
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		rc := dec.IOReadCloser()
		r.codec = rc
		src = rc
	case strings.HasSuffix(path, ".lz4"):
		src = lz4.NewReader(f)
	}
	r.sc = bufio.NewScanner(src)

	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			r.Close()
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.Close()
		return nil, fmt.Errorf("stimuli file is empty")
	}
	r.hash.WriteString(r.sc.Text() + "\n")
	r.line = 1
	return r, nil
}

// Next returns the next record, or io.EOF after the last line.
func (r *Reader) Next() (Record, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line+1, err)
		}
		return Record{}, io.EOF
	}
	r.line++
	r.hash.WriteString(r.sc.Text() + "\n")
	rec, err := ParseLine(r.sc.Text())
	if err != nil {
		return Record{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return rec, nil
}

// Line returns the number of lines consumed so far, header included.
func (r *Reader) Line() int {
	return r.line
}

// Digest returns the xxh3 digest of the payload consumed so far. After
// reading the whole file it matches the writer's digest.
func (r *Reader) Digest() uint64 {
	return r.hash.Sum64()
}

// Close releases the underlying file and codec.
func (r *Reader) Close() error {
	var err error
	if r.codec != nil {
		err = r.codec.Close()
	}
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
