// Package redisserver serves the key-value store over RESP.
//
// A Server accepts TCP connections and runs one session goroutine per
// client. A session buffers incoming bytes, decodes as many complete
// frames as the buffer holds, and hands each one to the Dispatcher. Replies
// are written in request order and flushed once per read batch, so
// pipelined commands cost one write.
//
// Supported commands:
//   - PING, ECHO, QUIT
//   - GET, SET [EX seconds], DEL, EXISTS
//   - EXPIRE, TTL, DBSIZE
//
// Malformed framing is the only error that closes a connection. Command
// errors and recovered handler panics are returned to the client as error
// replies.
package redisserver
