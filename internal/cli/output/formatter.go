package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/miniredis-go/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatRaw, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, raw or json)", s)
	}
}

// Formatter writes one reply per call.
type Formatter interface {
	FormatReply(w io.Writer, r resp.Reply) error
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatRaw:
		return &RawFormatter{}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter prints replies the way redis-cli does.
type TextFormatter struct{}

// FormatReply writes r followed by a newline.
func (f *TextFormatter) FormatReply(w io.Writer, r resp.Reply) error {
	_, err := io.WriteString(w, Text(r)+"\n")
	return err
}

// Text returns the redis-cli rendering of r.
func Text(r resp.Reply) string {
	switch r.Kind {
	case resp.KindSimpleString:
		return r.Str
	case resp.KindError:
		return "(error) " + r.Str
	case resp.KindInteger:
		return "(integer) " + strconv.FormatInt(r.Int, 10)
	case resp.KindBulk:
		return strconv.Quote(string(r.Bulk))
	default:
		return "(nil)"
	}
}

// RawFormatter prints payloads without quoting or type tags.
type RawFormatter struct{}

// FormatReply writes r followed by a newline. Nil prints an empty line.
func (f *RawFormatter) FormatReply(w io.Writer, r resp.Reply) error {
	var err error
	switch r.Kind {
	case resp.KindSimpleString, resp.KindError:
		_, err = io.WriteString(w, r.Str)
	case resp.KindInteger:
		_, err = io.WriteString(w, strconv.FormatInt(r.Int, 10))
	case resp.KindBulk:
		_, err = w.Write(r.Bulk)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
