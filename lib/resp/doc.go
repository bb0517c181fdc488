// Package resp implements the RESP wire format used between rKV clients and
// servers: a Redis-compatible, self-describing binary frame grammar.
//
// A Frame is one protocol message unit. Six variants exist:
//
//	+OK\r\n                    Simple string
//	-ERR message\r\n           Error
//	:1234\r\n                  Integer (signed 64 bit)
//	$5\r\nhello\r\n            Bulk string (binary safe, length prefixed)
//	$-1\r\n                    Null (absence of a value, distinct from $0)
//	*2\r\n...                  Array of frames (may nest arbitrarily)
//
// The package is pure: Decode consumes bytes from a buffer and Encode/Append
// produce bytes, neither touches the network. Incremental parsing is driven
// by the caller: Decode returns ErrIncomplete while the buffer holds only a
// prefix of a frame, and a *ProtocolError for input that can never become a
// valid frame. The two must be handled differently - the former means "read
// more and retry", the latter is fatal to the connection.
//
// Array decoding is iterative with an explicit stack, so deeply nested
// (including adversarial) input is limited by heap memory rather than by
// goroutine stack depth.
package resp
