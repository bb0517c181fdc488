package conn

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rkv-io/rkv/lib/resp"
)

// chunkReadWriter delivers its input n bytes per Read call, simulating a
// slow peer that fragments frames arbitrarily. Writes are collected.
type chunkReadWriter struct {
	input     []byte
	chunkSize int
	out       bytes.Buffer
}

func (c *chunkReadWriter) Read(p []byte) (int, error) {
	if len(c.input) == 0 {
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(c.input) {
		n = len(c.input)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.input[:n])
	c.input = c.input[n:]
	return n, nil
}

func (c *chunkReadWriter) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func encodeAll(t *testing.T, frames ...resp.Frame) []byte {
	t.Helper()
	var data []byte
	for _, f := range frames {
		var err error
		if data, err = resp.Append(data, f); err != nil {
			t.Fatalf("Append(%s) failed: %v", f, err)
		}
	}
	return data
}

func TestReadFrameChunkedDelivery(t *testing.T) {
	frames := []resp.Frame{
		resp.NewSimple("OK"),
		resp.NewArray(resp.NewBulkString("SET"), resp.NewBulkString("k"), resp.NewBulk([]byte("v"))),
		resp.Null(),
		resp.NewInteger(-3),
	}
	encoded := encodeAll(t, frames...)

	// Byte-at-a-time delivery must yield exactly the same frames as a
	// single delivery.
	for _, chunkSize := range []int{1, 2, 3, 7, len(encoded)} {
		c := New(&chunkReadWriter{input: append([]byte(nil), encoded...), chunkSize: chunkSize})

		for i, want := range frames {
			got, err := c.ReadFrame()
			if err != nil {
				t.Fatalf("chunk=%d frame=%d: ReadFrame failed: %v", chunkSize, i, err)
			}
			if !got.Equal(want) {
				t.Fatalf("chunk=%d frame=%d: got %s, want %s", chunkSize, i, got, want)
			}
		}

		if _, err := c.ReadFrame(); err != io.EOF {
			t.Fatalf("chunk=%d: expected io.EOF after last frame, got %v", chunkSize, err)
		}
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	c := New(&chunkReadWriter{input: nil, chunkSize: 1})
	if _, err := c.ReadFrame(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadFrameTruncatedStream(t *testing.T) {
	// A bulk frame announcing 1000000 bytes followed by only a few bytes
	// and EOF must fail, not block or spin.
	input := []byte("$1000000\r\nonly ten b")
	c := New(&chunkReadWriter{input: input, chunkSize: 5})

	_, err := c.ReadFrame()
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("expected io.ErrUnexpectedEOF for truncated frame, got %v", err)
	}
}

func TestReadFrameMalformedInput(t *testing.T) {
	c := New(&chunkReadWriter{input: []byte("?what\r\n"), chunkSize: 2})

	_, err := c.ReadFrame()
	var protoErr *resp.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *resp.ProtocolError, got %v", err)
	}
}

func TestWriteFrameBuffersWholeFrame(t *testing.T) {
	rw := &chunkReadWriter{}
	c := New(rw)

	frame := resp.NewArray(resp.NewBulkString("GET"), resp.NewBulkString("foo"))
	if err := c.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	want := "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"
	if rw.out.String() != want {
		t.Fatalf("wrote %q, want %q", rw.out.String(), want)
	}
}

func TestReadWriteOverPipe(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()
	defer clientEnd.Close()
	defer serverEnd.Close()

	client := New(clientEnd)
	server := New(serverEnd)

	frames := []resp.Frame{
		resp.NewSimple("OK"),
		resp.NewBulk([]byte{0, 1, 2, '\r', '\n'}),
		resp.NewArray(resp.NewArray(), resp.NewInteger(99)),
	}

	errCh := make(chan error, 1)
	go func() {
		for _, f := range frames {
			if err := client.WriteFrame(f); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- clientEnd.Close()
	}()

	for i, want := range frames {
		got, err := server.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: ReadFrame failed: %v", i, err)
		}
		if !got.Equal(want) {
			t.Fatalf("frame %d: got %s, want %s", i, got, want)
		}
	}

	if _, err := server.ReadFrame(); err != io.EOF {
		t.Fatalf("expected io.EOF after peer close, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("writer goroutine failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer goroutine did not finish")
	}
}

func TestReadFramePipelined(t *testing.T) {
	// Several frames delivered in one read must be consumable one by one
	// without touching the stream again.
	encoded := encodeAll(t,
		resp.NewSimple("a"),
		resp.NewSimple("b"),
		resp.NewSimple("c"),
	)
	c := New(&chunkReadWriter{input: encoded, chunkSize: len(encoded)})

	for _, want := range []string{"a", "b", "c"} {
		got, err := c.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !got.Equal(resp.NewSimple(want)) {
			t.Fatalf("got %s, want Simple(%q)", got, want)
		}
	}
}
