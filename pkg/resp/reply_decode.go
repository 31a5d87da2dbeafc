package resp

import (
	"bytes"
	"fmt"
	"strconv"
)

// DecodeReply decodes one reply from the start of buf, with the same
// contract as Decode: the reply and its size, ErrIncomplete with nothing
// consumed, or an error wrapping ErrProtocol.
//
// Bulk payloads are copied, so the reply outlives buf.
func DecodeReply(buf []byte) (Reply, int, error) {
	if len(buf) == 0 {
		return Reply{}, 0, ErrIncomplete
	}

	switch buf[0] {
	case '+', '-', ':':
		idx := bytes.Index(buf, crlf)
		if idx < 0 {
			return Reply{}, 0, ErrIncomplete
		}
		text := string(buf[1:idx])
		switch buf[0] {
		case '+':
			return Reply{Kind: KindSimpleString, Str: text}, idx + 2, nil
		case '-':
			return Reply{Kind: KindError, Str: text}, idx + 2, nil
		default:
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return Reply{}, 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, text)
			}
			return Integer(n), idx + 2, nil
		}

	case '$':
		n, start, err := readHeader(buf, 0)
		if err != nil {
			return Reply{}, 0, err
		}
		if n == -1 {
			return Nil(), start, nil
		}
		if n < 0 {
			return Reply{}, 0, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
		}
		end := start + n
		if len(buf) < end+2 {
			return Reply{}, 0, ErrIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return Reply{}, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		payload := make([]byte, n)
		copy(payload, buf[start:end])
		return Bulk(payload), end + 2, nil

	default:
		return Reply{}, 0, fmt.Errorf("%w: unexpected reply type %q", ErrProtocol, buf[0])
	}
}
