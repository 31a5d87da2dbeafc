// Package aof provides an append-only log of mutating commands.
//
// Every accepted write is appended as a RESP request frame, so a segment is
// a valid command stream that redis-cli --pipe or miniredis-cli can read.
// Relative expiries are rewritten to absolute ones before logging, which
// keeps a record meaningful no matter when it is read:
//
//	SET key value            (no expiry)
//	SET key value PXAT <ms>  (expiry at unix milliseconds)
//	PEXPIREAT key <ms>
//	DEL key
//
// Features:
//
//   - Sync Modes: fsync after every flush (always), once per interval
//     (everysec), or never (no)
//   - Batched Writes: records are buffered and flushed by count or size
//   - File Rotation: a new segment is started once MaxFileSize is reached
//   - Retention: only the newest RetainSegments segments are kept
//
// Layout:
//
//	aof-<segment-id>.log
//
// The log is write-only for the server. Reader exists for inspection
// tooling; the server never replays it at startup.
package aof
