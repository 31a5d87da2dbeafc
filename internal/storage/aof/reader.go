package aof

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/miniredis-go/pkg/resp"
)

var (
	// ErrCorrupted is returned when a segment holds bytes that are not a
	// request frame.
	ErrCorrupted = errors.New("aof: corrupted segment")
	// ErrTruncated is returned when a segment ends inside a record, which
	// happens when the process stopped mid-write.
	ErrTruncated = errors.New("aof: truncated record")
)

const readChunkSize = 64 << 10

// Reader reads records across all segments in order.
type Reader struct {
	segments []segmentInfo
	segIndex int

	file *os.File
	buf  []byte
	eof  bool
}

// NewReader opens the segments found in dir. A missing dir reads as empty.
func NewReader(dir string) (*Reader, error) {
	segs, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	return &Reader{segments: segs}, nil
}

// Segments returns the number of segments the reader will visit.
func (r *Reader) Segments() int {
	return len(r.segments)
}

// Read returns the next record, or io.EOF after the last one.
func (r *Reader) Read() (Record, error) {
	for {
		if r.file == nil {
			if err := r.openNextSegment(); err != nil {
				return Record{}, err
			}
		}

		if len(r.buf) > 0 {
			f, n, err := resp.Decode(r.buf)
			switch {
			case err == nil:
				rec := Record{Args: cloneFrame(f)}
				r.buf = r.buf[n:]
				return rec, nil
			case !errors.Is(err, resp.ErrIncomplete):
				name := r.segments[r.segIndex-1].path
				r.closeCurrent()
				return Record{}, fmt.Errorf("%w: %s: %v", ErrCorrupted, name, err)
			}
		}

		if r.eof {
			name := r.segments[r.segIndex-1].path
			rest := len(r.buf)
			r.closeCurrent()
			if rest > 0 {
				return Record{}, fmt.Errorf("%w: %s: %d trailing bytes", ErrTruncated, name, rest)
			}
			continue
		}

		if err := r.fill(); err != nil {
			return Record{}, err
		}
	}
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, rec)
	}
}

// Close closes any open segment file.
func (r *Reader) Close() error {
	return r.closeCurrent()
}

func (r *Reader) fill() error {
	// Compact before growing so the buffer holds at most one partial record
	// plus a chunk.
	if len(r.buf) > 0 && cap(r.buf)-len(r.buf) < readChunkSize {
		r.buf = append(make([]byte, 0, len(r.buf)+readChunkSize), r.buf...)
	}
	if cap(r.buf)-len(r.buf) < readChunkSize {
		r.buf = append(r.buf, make([]byte, readChunkSize)...)[:len(r.buf)]
	}

	n, err := r.file.Read(r.buf[len(r.buf):cap(r.buf)])
	r.buf = r.buf[:len(r.buf)+n]
	if errors.Is(err, io.EOF) {
		r.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("aof: read: %w", err)
	}
	return nil
}

func (r *Reader) openNextSegment() error {
	r.closeCurrent()

	if r.segIndex >= len(r.segments) {
		return io.EOF
	}
	seg := r.segments[r.segIndex]
	r.segIndex++

	f, err := os.Open(seg.path)
	if err != nil {
		return fmt.Errorf("aof: open segment: %w", err)
	}
	r.file = f
	r.buf = r.buf[:0]
	r.eof = false
	return nil
}

func (r *Reader) closeCurrent() error {
	r.buf = r.buf[:0]
	r.eof = false
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// cloneFrame detaches f from the read buffer.
func cloneFrame(f resp.Frame) [][]byte {
	out := make([][]byte, len(f))
	for i, b := range f {
		out[i] = append([]byte(nil), b...)
	}
	return out
}
