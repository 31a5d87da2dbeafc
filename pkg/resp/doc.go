// Package resp implements the RESP2 subset spoken by miniredis.
//
// Requests are arrays of bulk strings:
//
//	*<count>\r\n
//	$<length>\r\n<bytes>\r\n   (count times)
//
// Replies are one of five values:
//
//	+<text>\r\n           simple string
//	-<text>\r\n           error
//	:<int>\r\n            integer
//	$<length>\r\n<bytes>\r\n bulk string
//	$-1\r\n               nil
//
// The decoder works on a caller-owned byte slice rather than an io.Reader so
// it can be driven by a read loop that appends whatever arrived from the
// socket and retries. A call either returns one complete frame together with
// the number of bytes it occupies, or ErrIncomplete without consuming
// anything, or an error wrapping ErrProtocol. Decoded arguments alias the
// input buffer; they stay valid until the caller reuses that memory.
package resp
