package conn

import (
	"bufio"
	"io"

	"github.com/rkv-io/rkv/lib/resp"
)

const (
	// defaultReadChunk is the growth unit of the read buffer. Frames larger
	// than this are handled by repeated growth, not by failure.
	defaultReadChunk = 4 * 1024
)

// Connection wraps one duplex byte stream and speaks RESP frames over it.
// It owns a growable read buffer holding bytes already read from the stream
// but not yet consumed into a complete frame, and a buffered writer that is
// flushed at frame boundaries to keep syscall counts low.
//
// A Connection is exclusively owned by one goroutine: none of its methods
// are safe for concurrent use.
type Connection struct {
	stream io.ReadWriter
	wr     *bufio.Writer

	buf []byte // buffered stream bytes, buf[off:] not yet consumed
	off int    // bytes of buf already consumed into frames
}

// New creates a Connection over the given stream. Closing the underlying
// stream remains the caller's responsibility, the Connection only ever reads
// and writes it.
func New(stream io.ReadWriter) *Connection {
	return &Connection{
		stream: stream,
		wr:     bufio.NewWriter(stream),
		buf:    make([]byte, 0, defaultReadChunk),
	}
}

// ReadFrame blocks until a full frame is available and returns it.
//
// Error contract:
//   - io.EOF: the peer closed the stream cleanly between frames
//   - io.ErrUnexpectedEOF: the stream ended in the middle of a frame
//   - *resp.ProtocolError: the peer sent bytes that can never form a frame
//   - any other error: stream I/O failure
//
// After any non-nil error the Connection is unusable and must be discarded.
// resp.ErrIncomplete is internal to this loop and never escapes.
func (c *Connection) ReadFrame() (resp.Frame, error) {
	for {
		if c.off < len(c.buf) {
			frame, consumed, err := resp.Decode(c.buf[c.off:])
			if err == nil {
				c.off += consumed
				return frame, nil
			}
			if err != resp.ErrIncomplete {
				return resp.Frame{}, err
			}
		}

		if err := c.fill(); err != nil {
			return resp.Frame{}, err
		}
	}
}

// fill performs one read from the stream, appending to the buffer. Consumed
// bytes are compacted away first so the buffer only ever holds the current
// partial frame.
func (c *Connection) fill() error {
	if c.off > 0 {
		n := copy(c.buf, c.buf[c.off:])
		c.buf = c.buf[:n]
		c.off = 0
	}
	if len(c.buf) == cap(c.buf) {
		grown := make([]byte, len(c.buf), cap(c.buf)+defaultReadChunk)
		copy(grown, c.buf)
		c.buf = grown
	}

	n, err := c.stream.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]

	if n > 0 {
		// Bytes arrived, let the decoder retry before looking at err.
		return nil
	}
	if err == io.EOF {
		if len(c.buf) == 0 {
			// Clean shutdown at a frame boundary.
			return io.EOF
		}
		// The stream died mid-frame, e.g. a bulk header promising more
		// bytes than the peer ever sent.
		return io.ErrUnexpectedEOF
	}
	if err == nil {
		// A Read of zero bytes with nil error is allowed by io.Reader,
		// just try again.
		return nil
	}
	return err
}

// WriteFrame serializes a frame onto the stream and flushes it. Writes are
// buffered so a frame reaches the stream in one piece.
func (c *Connection) WriteFrame(frame resp.Frame) error {
	encoded, err := resp.Encode(frame)
	if err != nil {
		return err
	}
	if _, err := c.wr.Write(encoded); err != nil {
		return err
	}
	return c.wr.Flush()
}
