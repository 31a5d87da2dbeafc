package redisserver

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/miniredis-go/internal/storage/aof"
	"github.com/yndnr/miniredis-go/internal/storage/memory"
	"github.com/yndnr/miniredis-go/pkg/resp"
)

// command is one entry of the closed command set.
type command interface {
	name() string
	// arity counts the command name; negative means "at least".
	arity() int
	run(ctx context.Context, d *Dispatcher, args []string) (resp.Reply, error)
}

var builtinCommands = []command{
	pingCommand{},
	echoCommand{},
	quitCommand{},
	getCommand{},
	setCommand{},
	delCommand{},
	existsCommand{},
	expireCommand{},
	ttlCommand{},
	dbsizeCommand{},
}

// maxExpireSeconds keeps seconds*time.Second from overflowing.
const maxExpireSeconds = math.MaxInt64 / int64(time.Second)

// PING [message]
//
// Extra arguments are accepted and ignored.
type pingCommand struct{}

func (pingCommand) name() string { return "PING" }
func (pingCommand) arity() int   { return -1 }

func (pingCommand) run(context.Context, *Dispatcher, []string) (resp.Reply, error) {
	return resp.SimpleString("PONG"), nil
}

// ECHO <message>
type echoCommand struct{}

func (echoCommand) name() string { return "ECHO" }
func (echoCommand) arity() int   { return 2 }

func (echoCommand) run(_ context.Context, _ *Dispatcher, args []string) (resp.Reply, error) {
	return resp.BulkString(args[0]), nil
}

// QUIT
//
// The session closes the connection once the reply is flushed.
type quitCommand struct{}

func (quitCommand) name() string { return "QUIT" }
func (quitCommand) arity() int   { return -1 }

func (quitCommand) run(context.Context, *Dispatcher, []string) (resp.Reply, error) {
	return resp.OK, nil
}

// GET <key>
type getCommand struct{}

func (getCommand) name() string { return "GET" }
func (getCommand) arity() int   { return 2 }

func (getCommand) run(_ context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	v, ok := d.store.Get(args[0])
	if !ok {
		return resp.Nil(), nil
	}
	return resp.Bulk(v), nil
}

// SET <key> <value> [EX seconds]
type setCommand struct{}

func (setCommand) name() string { return "SET" }
func (setCommand) arity() int   { return -3 }

func (c setCommand) run(ctx context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	key, value := args[0], []byte(args[1])

	var (
		ttl    time.Duration
		hasTTL bool
	)
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "EX":
			if hasTTL || i+1 >= len(args) {
				return resp.Reply{}, errSyntax
			}
			i++
			secs, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil || secs < 0 {
				return resp.Reply{}, errNotInteger
			}
			if secs > maxExpireSeconds {
				return resp.Reply{}, errInvalidExpire(c.name())
			}
			ttl = time.Duration(secs) * time.Second
			hasTTL = true
		default:
			return resp.Reply{}, errSyntax
		}
	}

	if !hasTTL {
		d.store.Set(key, value)
		d.appendLog(ctx, aof.NewSetRecord(key, value, 0))
		return resp.OK, nil
	}

	deadline := d.store.SetWithTTL(key, value, ttl)
	d.appendLog(ctx, aof.NewSetRecord(key, value, deadlineMs(deadline)))
	return resp.OK, nil
}

// DEL <key> [key ...]
type delCommand struct{}

func (delCommand) name() string { return "DEL" }
func (delCommand) arity() int   { return -2 }

func (delCommand) run(ctx context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	var removed int64
	for _, key := range args {
		if d.store.Delete(key) {
			removed++
			d.appendLog(ctx, aof.NewDelRecord(key))
		}
	}
	return resp.Integer(removed), nil
}

// EXISTS <key> [key ...]
//
// A key named twice is counted twice.
type existsCommand struct{}

func (existsCommand) name() string { return "EXISTS" }
func (existsCommand) arity() int   { return -2 }

func (existsCommand) run(_ context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	var n int64
	for _, key := range args {
		if d.store.Exists(key) {
			n++
		}
	}
	return resp.Integer(n), nil
}

// EXPIRE <key> <seconds>
//
// Returns 1 when the key existed, 0 otherwise. A non-positive timeout
// deletes the key.
type expireCommand struct{}

func (expireCommand) name() string { return "EXPIRE" }
func (expireCommand) arity() int   { return 3 }

func (c expireCommand) run(ctx context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	key := args[0]
	secs, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.Reply{}, errNotInteger
	}
	if secs > maxExpireSeconds || secs < -maxExpireSeconds {
		return resp.Reply{}, errInvalidExpire(c.name())
	}

	deadline := d.store.Now().Add(time.Duration(secs) * time.Second)
	if !d.store.ExpireAt(key, deadline) {
		return resp.Integer(0), nil
	}

	if secs <= 0 {
		d.appendLog(ctx, aof.NewDelRecord(key))
	} else {
		d.appendLog(ctx, aof.NewPExpireAtRecord(key, deadlineMs(deadline)))
	}
	return resp.Integer(1), nil
}

// TTL <key>
//
// Returns -2 if the key does not exist, -1 if it has no expiry, otherwise
// the remaining seconds rounded to the nearest second.
type ttlCommand struct{}

func (ttlCommand) name() string { return "TTL" }
func (ttlCommand) arity() int   { return 2 }

func (ttlCommand) run(_ context.Context, d *Dispatcher, args []string) (resp.Reply, error) {
	remaining, state := d.store.TTL(args[0])
	switch state {
	case memory.TTLMissing:
		return resp.Integer(-2), nil
	case memory.TTLPersistent:
		return resp.Integer(-1), nil
	default:
		return resp.Integer(int64((remaining + 500*time.Millisecond) / time.Second)), nil
	}
}

// DBSIZE
//
// Counts stored entries, including expired ones nobody has touched since.
type dbsizeCommand struct{}

func (dbsizeCommand) name() string { return "DBSIZE" }
func (dbsizeCommand) arity() int   { return 1 }

func (dbsizeCommand) run(_ context.Context, d *Dispatcher, _ []string) (resp.Reply, error) {
	return resp.Integer(int64(d.store.Len())), nil
}

func deadlineMs(t time.Time) int64 {
	ms := t.UnixMilli()
	if ms <= 0 {
		return 1
	}
	return ms
}
