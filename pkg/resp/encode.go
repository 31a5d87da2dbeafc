package resp

import (
	"bufio"
	"strconv"
)

// AppendReply appends the wire encoding of r to dst.
func AppendReply(dst []byte, r Reply) []byte {
	switch r.Kind {
	case KindSimpleString:
		dst = append(dst, '+')
		dst = append(dst, r.Str...)
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, r.Str...)
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, r.Int, 10)
	case KindBulk:
		dst = appendBulk(dst, r.Bulk)
		return dst
	default:
		dst = append(dst, "$-1"...)
	}
	return append(dst, '\r', '\n')
}

// Encode returns the wire encoding of r.
func Encode(r Reply) []byte {
	return AppendReply(nil, r)
}

// WriteReply encodes r into w's spare buffer capacity when it fits.
func WriteReply(w *bufio.Writer, r Reply) error {
	_, err := w.Write(AppendReply(w.AvailableBuffer(), r))
	return err
}

// AppendCommand appends args as a request frame.
func AppendCommand(dst []byte, args ...string) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, '\r', '\n')
	for _, a := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(a)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, a...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}

// EncodeCommand returns args encoded as a request frame. Lengths are byte
// lengths, so multi-byte UTF-8 arguments are framed correctly.
func EncodeCommand(args ...string) []byte {
	return AppendCommand(nil, args...)
}

// EncodeFrame re-encodes a decoded frame.
func EncodeFrame(f Frame) []byte {
	var dst []byte
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(f)), 10)
	dst = append(dst, '\r', '\n')
	for _, b := range f {
		dst = appendBulk(dst, b)
	}
	return dst
}

func appendBulk(dst, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, '\r', '\n')
	dst = append(dst, b...)
	return append(dst, '\r', '\n')
}
