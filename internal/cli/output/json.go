package output

import (
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/yndnr/miniredis-go/pkg/resp"
)

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

// replyJSON is the JSON shape of a reply. Binary bulk payloads that are
// not valid UTF-8 are sent as base64 in Bytes instead of Value.
type replyJSON struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
	Bytes []byte `json:"bytes,omitempty"`
}

// FormatReply writes r as one JSON object per line.
func (f *JSONFormatter) FormatReply(w io.Writer, r resp.Reply) error {
	out := replyJSON{Type: r.Kind.String()}
	switch r.Kind {
	case resp.KindSimpleString, resp.KindError:
		out.Value = r.Str
	case resp.KindInteger:
		out.Value = r.Int
	case resp.KindBulk:
		if utf8.Valid(r.Bulk) {
			out.Value = string(r.Bulk)
		} else {
			out.Bytes = r.Bulk
		}
	}
	return json.NewEncoder(w).Encode(out)
}

// Format formats data as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
