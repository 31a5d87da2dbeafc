package aof

import (
	"errors"
	"strconv"
	"strings"

	"github.com/yndnr/miniredis-go/pkg/resp"
)

// ErrInvalidRecord is returned for records that are not a known mutation.
var ErrInvalidRecord = errors.New("aof: invalid record")

// Op identifies a logged mutation.
type Op string

const (
	OpSet       Op = "SET"
	OpDel       Op = "DEL"
	OpPExpireAt Op = "PEXPIREAT"
)

// Record is one logged command. Args[0] is the command name.
type Record struct {
	Args [][]byte
}

// NewSetRecord logs SET key value, with PXAT when deadlineMs > 0.
func NewSetRecord(key string, value []byte, deadlineMs int64) Record {
	args := [][]byte{[]byte(OpSet), []byte(key), value}
	if deadlineMs > 0 {
		args = append(args, []byte("PXAT"), strconv.AppendInt(nil, deadlineMs, 10))
	}
	return Record{Args: args}
}

// NewDelRecord logs DEL key.
func NewDelRecord(key string) Record {
	return Record{Args: [][]byte{[]byte(OpDel), []byte(key)}}
}

// NewPExpireAtRecord logs PEXPIREAT key deadlineMs.
func NewPExpireAtRecord(key string, deadlineMs int64) Record {
	return Record{Args: [][]byte{
		[]byte(OpPExpireAt),
		[]byte(key),
		strconv.AppendInt(nil, deadlineMs, 10),
	}}
}

// Op returns the record's command.
func (r Record) Op() Op {
	if len(r.Args) == 0 {
		return ""
	}
	return Op(strings.ToUpper(string(r.Args[0])))
}

// Key returns the key the record mutates.
func (r Record) Key() string {
	if len(r.Args) < 2 {
		return ""
	}
	return string(r.Args[1])
}

// DeadlineMs returns the absolute expiry carried by the record, or 0.
func (r Record) DeadlineMs() int64 {
	var raw []byte
	switch r.Op() {
	case OpSet:
		if len(r.Args) == 5 {
			raw = r.Args[4]
		}
	case OpPExpireAt:
		if len(r.Args) == 3 {
			raw = r.Args[2]
		}
	}
	if raw == nil {
		return 0
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// Validate checks the record's shape.
func (r Record) Validate() error {
	switch r.Op() {
	case OpSet:
		if len(r.Args) == 3 {
			return nil
		}
		if len(r.Args) == 5 && strings.EqualFold(string(r.Args[3]), "PXAT") && r.DeadlineMs() > 0 {
			return nil
		}
	case OpDel:
		if len(r.Args) == 2 {
			return nil
		}
	case OpPExpireAt:
		if len(r.Args) == 3 && r.DeadlineMs() > 0 {
			return nil
		}
	}
	return ErrInvalidRecord
}

// Encode returns the record as a RESP request frame.
func (r Record) Encode() []byte {
	return resp.EncodeFrame(r.Args)
}

// Strings returns the record's arguments as strings.
func (r Record) Strings() []string {
	return resp.Frame(r.Args).Strings()
}
