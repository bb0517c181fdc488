package server

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rkv-io/rkv/lib/resp"
	"github.com/rkv-io/rkv/lib/store"
	"github.com/rkv-io/rkv/lib/store/sharded"
	"github.com/rkv-io/rkv/rpc/client"
	"github.com/rkv-io/rkv/rpc/common"
	"github.com/rkv-io/rkv/rpc/conn"
	"github.com/rkv-io/rkv/rpc/transport/tcp"
)

// startTestServer boots a server on an ephemeral TCP port and returns its
// endpoint. The server is torn down with the test.
func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	config := common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint: "127.0.0.1:0",
		},
		NumShards: 4,
	}

	s := New(config, tcp.NewTCPServerConnector(), sharded.New(&sharded.Options{NumShards: config.NumShards}))
	go func() {
		if err := s.Listen(); err != nil {
			t.Errorf("Listen failed: %v", err)
		}
	}()
	t.Cleanup(func() { _ = s.Close() })

	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}
	return s, s.Addr().String()
}

// dialFramed opens a raw connection to the server with frame-level framing
// on top. Tests that need byte-level wire control use net.Dial directly.
func dialFramed(t *testing.T, endpoint string) (net.Conn, *conn.Connection) {
	t.Helper()

	netConn, err := net.Dial("tcp", endpoint)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", endpoint, err)
	}
	t.Cleanup(func() { _ = netConn.Close() })
	return netConn, conn.New(netConn)
}

func roundTrip(t *testing.T, framed *conn.Connection, args ...string) resp.Frame {
	t.Helper()

	elems := make([]resp.Frame, len(args))
	for i, arg := range args {
		elems[i] = resp.NewBulkString(arg)
	}
	if err := framed.WriteFrame(resp.NewArray(elems...)); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}
	reply, err := framed.ReadFrame()
	if err != nil {
		t.Fatalf("failed to read reply: %v", err)
	}
	return reply
}

// --------------------------------------------------------------------------
// Basic Command Handling
// --------------------------------------------------------------------------

func TestSetGetRoundTrip(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	reply := roundTrip(t, framed, "SET", "greeting", "hello")
	if !reply.IsSimple() || reply.Text() != "OK" {
		t.Fatalf("SET reply = %s, want +OK", reply)
	}

	reply = roundTrip(t, framed, "GET", "greeting")
	if !reply.IsBulk() || string(reply.Bulk()) != "hello" {
		t.Errorf("GET reply = %s, want hello", reply)
	}
}

func TestGetMissingKeyReturnsNull(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	reply := roundTrip(t, framed, "GET", "never-set")
	if !reply.IsNull() {
		t.Errorf("GET reply = %s, want Null", reply)
	}
}

func TestEmptyValueIsNotNull(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	if reply := roundTrip(t, framed, "SET", "empty", ""); !reply.IsSimple() {
		t.Fatalf("SET reply = %s, want +OK", reply)
	}

	reply := roundTrip(t, framed, "GET", "empty")
	if reply.IsNull() {
		t.Fatal("empty value must not be reported as missing")
	}
	if !reply.IsBulk() || len(reply.Bulk()) != 0 {
		t.Errorf("GET reply = %s, want empty bulk", reply)
	}
}

func TestSetOverwritesValue(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	roundTrip(t, framed, "SET", "k", "first")
	roundTrip(t, framed, "SET", "k", "second")

	reply := roundTrip(t, framed, "GET", "k")
	if string(reply.Bulk()) != "second" {
		t.Errorf("GET reply = %s, want second", reply)
	}
}

func TestLowercaseVerbs(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	if reply := roundTrip(t, framed, "set", "k", "v"); !reply.IsSimple() {
		t.Fatalf("set reply = %s, want +OK", reply)
	}
	if reply := roundTrip(t, framed, "get", "k"); string(reply.Bulk()) != "v" {
		t.Errorf("get reply = %s, want v", reply)
	}
}

// --------------------------------------------------------------------------
// Error Handling
// --------------------------------------------------------------------------

// An unknown verb is answered with an Error frame and the connection keeps
// serving subsequent commands.
func TestUnknownCommandKeepsConnectionOpen(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	reply := roundTrip(t, framed, "PING")
	if !reply.IsError() {
		t.Fatalf("PING reply = %s, want an Error frame", reply)
	}

	if reply := roundTrip(t, framed, "SET", "after", "ping"); !reply.IsSimple() {
		t.Fatalf("SET after PING failed: %s", reply)
	}
	if reply := roundTrip(t, framed, "GET", "after"); string(reply.Bulk()) != "ping" {
		t.Errorf("GET after PING = %s, want ping", reply)
	}
}

func TestWrongArityKeepsConnectionOpen(t *testing.T) {
	_, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	if reply := roundTrip(t, framed, "GET"); !reply.IsError() {
		t.Fatalf("bare GET reply = %s, want an Error frame", reply)
	}
	if reply := roundTrip(t, framed, "SET", "k", "v"); !reply.IsSimple() {
		t.Errorf("SET after client error failed: %s", reply)
	}
}

// A client that dies mid-frame must not wedge its dispatcher, and must not
// affect other connections.
func TestTruncatedFrameClosesOnlyThatConnection(t *testing.T) {
	_, endpoint := startTestServer(t)

	netConn, err := net.Dial("tcp", endpoint)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	// A bulk header promising a megabyte, followed by a few bytes and a
	// half-close. The server must treat this as a fatal stream error.
	if _, err := netConn.Write([]byte("$1000000\r\nonly ten b")); err != nil {
		t.Fatalf("failed to write partial frame: %v", err)
	}
	if err := netConn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("failed to half-close: %v", err)
	}

	// The server closes the connection without replying, our read ends.
	_ = netConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	if n, _ := netConn.Read(buf); n != 0 {
		t.Errorf("got %d reply bytes on a truncated frame, want none", n)
	}
	_ = netConn.Close()

	// The server keeps serving fresh connections.
	_, framed := dialFramed(t, endpoint)
	if reply := roundTrip(t, framed, "SET", "alive", "yes"); !reply.IsSimple() {
		t.Errorf("server unhealthy after truncated frame: %s", reply)
	}
}

func TestMalformedInputClosesConnection(t *testing.T) {
	_, endpoint := startTestServer(t)

	netConn, err := net.Dial("tcp", endpoint)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer netConn.Close()

	if _, err := netConn.Write([]byte("@bogus\r\n")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	_ = netConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 64)
	if n, _ := netConn.Read(buf); n != 0 {
		t.Errorf("got %d reply bytes on malformed input, want connection close", n)
	}
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

// Concurrent writers racing on one key must linearize: a reader sees one of
// the written values in full, never a mix.
func TestConcurrentSetsNoTornValues(t *testing.T) {
	_, endpoint := startTestServer(t)

	const (
		writers    = 8
		iterations = 50
		valueSize  = 4096
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			netConn, err := net.Dial("tcp", endpoint)
			if err != nil {
				t.Errorf("writer %d: failed to dial: %v", w, err)
				return
			}
			defer netConn.Close()
			framed := conn.New(netConn)

			value := bytes.Repeat([]byte{byte('a' + w)}, valueSize)
			request := resp.NewArray(
				resp.NewBulkString("SET"),
				resp.NewBulkString("contended"),
				resp.NewBulk(value),
			)
			for i := 0; i < iterations; i++ {
				if err := framed.WriteFrame(request); err != nil {
					t.Errorf("writer %d: %v", w, err)
					return
				}
				if _, err := framed.ReadFrame(); err != nil {
					t.Errorf("writer %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	_, framed := dialFramed(t, endpoint)
	reply := roundTrip(t, framed, "GET", "contended")
	if !reply.IsBulk() || len(reply.Bulk()) != valueSize {
		t.Fatalf("GET reply = %d bytes, want %d", len(reply.Bulk()), valueSize)
	}
	value := reply.Bulk()
	for _, b := range value {
		if b != value[0] {
			t.Fatal("torn value: mixed bytes from different writers")
		}
	}
}

func TestManyConnectionsDisjointKeys(t *testing.T) {
	_, endpoint := startTestServer(t)

	const clients = 16

	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()

			netConn, err := net.Dial("tcp", endpoint)
			if err != nil {
				t.Errorf("client %d: failed to dial: %v", c, err)
				return
			}
			defer netConn.Close()
			framed := conn.New(netConn)

			key := fmt.Sprintf("client-%d", c)
			value := fmt.Sprintf("value-%d", c)

			if err := framed.WriteFrame(resp.NewArray(
				resp.NewBulkString("SET"),
				resp.NewBulkString(key),
				resp.NewBulkString(value),
			)); err != nil {
				t.Errorf("client %d: %v", c, err)
				return
			}
			if _, err := framed.ReadFrame(); err != nil {
				t.Errorf("client %d: %v", c, err)
				return
			}

			if err := framed.WriteFrame(resp.NewArray(
				resp.NewBulkString("GET"),
				resp.NewBulkString(key),
			)); err != nil {
				t.Errorf("client %d: %v", c, err)
				return
			}
			reply, err := framed.ReadFrame()
			if err != nil {
				t.Errorf("client %d: %v", c, err)
				return
			}
			if string(reply.Bulk()) != value {
				t.Errorf("client %d: got %s, want %s", c, reply, value)
			}
		}(c)
	}
	wg.Wait()
}

// --------------------------------------------------------------------------
// Client Library Integration
// --------------------------------------------------------------------------

func TestClientLibraryAgainstServer(t *testing.T) {
	_, endpoint := startTestServer(t)

	config := common.ClientConfig{
		Transport: common.ClientTransportConfig{
			Endpoint: endpoint,
		},
		TimeoutSecond: 5,
		RetryCount:    1,
	}

	c, err := client.Connect(config, tcp.NewTCPClientConnector())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer c.Close()

	if err := c.Set("lib-key", []byte("lib-value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := c.Get("lib-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || string(value) != "lib-value" {
		t.Errorf("Get = (%q, %v), want (lib-value, true)", value, found)
	}

	if _, found, err := c.Get("lib-missing"); err != nil || found {
		t.Errorf("Get on missing key = (found=%v, err=%v), want (false, nil)", found, err)
	}

	// The client completes store.IStore, introspection is local-only.
	var storeErr *store.Error
	if _, err := c.GetStoreInfo(); !errors.As(err, &storeErr) {
		t.Errorf("GetStoreInfo error = %v, want a store.Error", err)
	} else if storeErr.Code != store.RetCUnsupportedOperation {
		t.Errorf("GetStoreInfo code = %d, want RetCUnsupportedOperation", storeErr.Code)
	}

	// Unknown verbs surface as server errors through the raw interface.
	reply, err := c.Do(resp.NewArray(resp.NewBulkString("FLUSH")))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !reply.IsError() {
		t.Errorf("FLUSH reply = %s, want an Error frame", reply)
	}
	if err := c.Set("still", []byte("works")); err != nil {
		t.Errorf("Set after unknown verb failed: %v", err)
	}
}

func TestServerCloseStopsServing(t *testing.T) {
	s, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	roundTrip(t, framed, "SET", "k", "v")

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := net.DialTimeout("tcp", endpoint, time.Second); err == nil {
		t.Error("server still accepting connections after Close")
	}
}

// --------------------------------------------------------------------------
// Store Introspection over the Running Server
// --------------------------------------------------------------------------

func TestStoreInfoReflectsWrites(t *testing.T) {
	s, endpoint := startTestServer(t)
	_, framed := dialFramed(t, endpoint)

	for i := 0; i < 10; i++ {
		roundTrip(t, framed, "SET", fmt.Sprintf("key-%d", i), "v")
	}

	info, err := s.store.GetStoreInfo()
	if err != nil {
		t.Fatalf("GetStoreInfo failed: %v", err)
	}
	if info.Keys != 10 {
		t.Errorf("info.Keys = %d, want 10", info.Keys)
	}
	if info.NumShards != 4 {
		t.Errorf("info.NumShards = %d, want 4", info.NumShards)
	}
}
