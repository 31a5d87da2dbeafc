package resp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the wire type of a Reply.
type Kind uint8

const (
	KindNil Kind = iota
	KindSimpleString
	KindError
	KindInteger
	KindBulk
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Reply is a single reply value. The zero value is Nil.
type Reply struct {
	Kind Kind
	Str  string // SimpleString and Error text
	Int  int64  // Integer value
	Bulk []byte // BulkString payload
}

// SimpleString returns a "+" reply. CR and LF are replaced by spaces so the
// text can never break framing.
func SimpleString(s string) Reply {
	return Reply{Kind: KindSimpleString, Str: singleLine(s)}
}

// Error returns a "-" reply. By convention s starts with an error prefix
// such as "ERR".
func Error(s string) Reply {
	return Reply{Kind: KindError, Str: singleLine(s)}
}

// Errorf formats an error reply.
func Errorf(format string, args ...any) Reply {
	return Error(fmt.Sprintf(format, args...))
}

// Integer returns a ":" reply.
func Integer(n int64) Reply {
	return Reply{Kind: KindInteger, Int: n}
}

// Bulk returns a "$" reply. A nil b is encoded as an empty bulk string, not
// as Nil.
func Bulk(b []byte) Reply {
	return Reply{Kind: KindBulk, Bulk: b}
}

// BulkString is Bulk for string payloads.
func BulkString(s string) Reply {
	return Reply{Kind: KindBulk, Bulk: []byte(s)}
}

// Nil returns the "$-1" reply.
func Nil() Reply {
	return Reply{Kind: KindNil}
}

// OK is the "+OK" reply.
var OK = SimpleString("OK")

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool {
	return r.Kind == KindError
}

// Equal reports whether r and o encode to the same bytes.
func (r Reply) Equal(o Reply) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case KindSimpleString, KindError:
		return r.Str == o.Str
	case KindInteger:
		return r.Int == o.Int
	case KindBulk:
		return bytes.Equal(r.Bulk, o.Bulk)
	default:
		return true
	}
}

// String renders r for logs and test failures.
func (r Reply) String() string {
	switch r.Kind {
	case KindSimpleString:
		return "+" + r.Str
	case KindError:
		return "-" + r.Str
	case KindInteger:
		return ":" + strconv.FormatInt(r.Int, 10)
	case KindBulk:
		return strconv.Quote(string(r.Bulk))
	default:
		return "(nil)"
	}
}

func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}
