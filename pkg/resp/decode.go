package resp

import (
	"bytes"
	"errors"
	"fmt"
)

// Protocol limits to keep a single client from forcing huge allocations.
const (
	// MaxArrayLen limits the number of elements in a request array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512MB, the Redis default).
	MaxBulkLen = 512 << 20

	// MaxHeaderLen limits a "*<n>" or "$<n>" header line, CRLF excluded.
	MaxHeaderLen = 32
)

var (
	// ErrIncomplete reports that the buffer ends before the frame does.
	// It is not a failure: the caller should read more bytes and retry.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol reports malformed framing. The stream cannot be
	// resynchronized after it.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded reports a frame that declares more than the decoder
	// accepts. Errors carrying it also match ErrProtocol.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Frame is one decoded command: the command name followed by its arguments.
type Frame [][]byte

// Strings converts the frame into owned strings, detaching it from the
// buffer it was decoded from.
func (f Frame) Strings() []string {
	out := make([]string, len(f))
	for i, b := range f {
		out[i] = string(b)
	}
	return out
}

// Decoder decodes request frames with configurable limits.
// The zero value uses MaxArrayLen and MaxBulkLen.
type Decoder struct {
	MaxArrayLen int
	MaxBulkLen  int
}

// Decode decodes one request frame with the default limits.
func Decode(buf []byte) (Frame, int, error) {
	return Decoder{}.Decode(buf)
}

// Decode attempts to decode exactly one request frame from the start of buf.
//
// On success it returns the frame and the number of bytes it occupies.
// An array header with a count below 1 yields an empty, non-nil frame.
// If buf holds only part of a frame, it returns ErrIncomplete and 0.
func (d Decoder) Decode(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] != '*' {
		return nil, 0, fmt.Errorf("%w: expected '*', got %q", ErrProtocol, buf[0])
	}

	count, off, err := readHeader(buf, 0)
	if err != nil {
		return nil, 0, err
	}
	if count < 1 {
		return Frame{}, off, nil
	}
	if max := d.maxArrayLen(); count > max {
		return nil, 0, limitError("array length %d exceeds limit %d", count, max)
	}

	frame := make(Frame, 0, count)
	for i := 0; i < count; i++ {
		if off >= len(buf) {
			return nil, 0, ErrIncomplete
		}
		if buf[off] != '$' {
			return nil, 0, fmt.Errorf("%w: expected '$', got %q", ErrProtocol, buf[off])
		}

		n, start, err := readHeader(buf, off)
		if err != nil {
			return nil, 0, err
		}
		if n < 0 {
			return nil, 0, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
		}
		if max := d.maxBulkLen(); n > max {
			return nil, 0, limitError("bulk length %d exceeds limit %d", n, max)
		}

		end := start + n
		if len(buf) < end+2 {
			return nil, 0, ErrIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return nil, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}

		// Cap the capacity so appends by a consumer can never write into the
		// next element.
		frame = append(frame, buf[start:end:end])
		off = end + 2
	}

	return frame, off, nil
}

func (d Decoder) maxArrayLen() int {
	if d.MaxArrayLen > 0 {
		return d.MaxArrayLen
	}
	return MaxArrayLen
}

func (d Decoder) maxBulkLen() int {
	if d.MaxBulkLen > 0 {
		return d.MaxBulkLen
	}
	return MaxBulkLen
}

// readHeader parses "<type><int>\r\n" at buf[at:] and returns the integer and
// the offset just past the CRLF.
func readHeader(buf []byte, at int) (int, int, error) {
	line, next, err := readLine(buf, at)
	if err != nil {
		return 0, 0, err
	}
	n, ok := parseInt(line[1:])
	if !ok {
		return 0, 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line[1:])
	}
	return n, next, nil
}

// readLine returns the line starting at buf[at:] without its CRLF.
func readLine(buf []byte, at int) ([]byte, int, error) {
	idx := bytes.Index(buf[at:], crlf)
	if idx < 0 {
		if len(buf)-at > MaxHeaderLen+2 {
			return nil, 0, fmt.Errorf("%w: header line exceeds %d bytes", ErrProtocol, MaxHeaderLen)
		}
		return nil, 0, ErrIncomplete
	}
	if idx > MaxHeaderLen+1 {
		return nil, 0, fmt.Errorf("%w: header line exceeds %d bytes", ErrProtocol, MaxHeaderLen)
	}
	return buf[at : at+idx], at + idx + 2, nil
}

// maxLength bounds parsed lengths well inside a 32-bit int.
const maxLength = 1 << 30

// parseInt parses an optionally negative base-10 integer without allocating.
func parseInt(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}

	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		if n > maxLength/10 {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

type limitErr struct {
	msg string
}

func (e *limitErr) Error() string { return ErrLimitExceeded.Error() + ": " + e.msg }

func (e *limitErr) Is(target error) bool {
	return target == ErrLimitExceeded || target == ErrProtocol
}

func limitError(format string, args ...any) error {
	return &limitErr{msg: fmt.Sprintf(format, args...)}
}
