// Package connection provides the RESP client used by miniredis-cli.
//
// A Client holds one TCP connection. Do encodes a command as a request
// frame, writes it and decodes exactly one reply. The client is not safe
// for concurrent use; the CLI issues one command at a time.
package connection
