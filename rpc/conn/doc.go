// Package conn provides the framed-connection abstraction between a raw
// byte stream and the RESP codec: incremental buffered reads that surface
// only complete frames, and buffered frame writes flushed at frame
// boundaries. It is transport agnostic - anything implementing io.ReadWriter
// (a TCP connection, a unix socket, an in-memory pipe in tests) works.
package conn
