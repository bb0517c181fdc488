package client

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/rkv-io/rkv/lib/resp"
	"github.com/rkv-io/rkv/lib/store"
	"github.com/rkv-io/rkv/rpc/common"
	"github.com/rkv-io/rkv/rpc/conn"
	"github.com/rkv-io/rkv/rpc/transport"
)

var Logger = logger.GetLogger("client")

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is a blocking rKV client over a single connection. RESP replies
// arrive in request order, so requests are serialized with a mutex rather
// than multiplexed. A Client is safe for concurrent use.
//
// Client implements store.IStore, so code written against the store
// interface works against a remote server unchanged.
type Client struct {
	config    common.ClientConfig
	connector transport.IClientConnector

	mu      sync.Mutex
	netConn net.Conn
	framed  *conn.Connection
}

var _ store.IStore = (*Client)(nil)

// Connect dials the configured endpoint and returns a ready client.
func Connect(config common.ClientConfig, connector transport.IClientConnector) (*Client, error) {
	c := &Client{
		config:    config,
		connector: connector,
	}
	if err := c.reconnect(); err != nil {
		return nil, err
	}

	Logger.Debugf("Connected to %s using %s transport",
		config.Transport.Endpoint, connector.GetName())
	return c, nil
}

// reconnect (re-)establishes the underlying connection. Caller must hold no
// lock or the mu lock, the method itself touches only connection fields.
func (c *Client) reconnect() error {
	if c.netConn != nil {
		_ = c.netConn.Close()
		c.netConn = nil
		c.framed = nil
	}

	netConn, err := c.connector.Connect(c.config.Transport.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.config.Transport.Endpoint, err)
	}
	if err := c.connector.UpgradeConnection(netConn, c.config); err != nil {
		Logger.Warningf("Failed to upgrade connection: %v", err)
	}

	c.netConn = netConn
	c.framed = conn.New(netConn)
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.netConn == nil {
		return nil
	}
	err := c.netConn.Close()
	c.netConn = nil
	c.framed = nil
	return err
}

// --------------------------------------------------------------------------
// KV Operations
// --------------------------------------------------------------------------

// Set stores a value under a key (unconditional upsert).
func (c *Client) Set(key string, value []byte) error {
	reply, err := c.Do(resp.NewArray(
		resp.NewBulkString("SET"),
		resp.NewBulkString(key),
		resp.NewBulk(value),
	))
	if err != nil {
		return err
	}

	switch {
	case reply.IsError():
		return store.NewError(store.RetCInternalError, reply.Text())
	case reply.IsSimple() && reply.Text() == "OK":
		return nil
	}
	return store.NewError(store.RetCInternalError, fmt.Sprintf("unexpected reply to SET: %s", reply))
}

// Get fetches the value for a key. The boolean return value reports whether
// the key was found; an existing empty value yields (empty, true, nil).
func (c *Client) Get(key string) ([]byte, bool, error) {
	reply, err := c.Do(resp.NewArray(
		resp.NewBulkString("GET"),
		resp.NewBulkString(key),
	))
	if err != nil {
		return nil, false, err
	}

	switch {
	case reply.IsError():
		return nil, false, store.NewError(store.RetCInternalError, reply.Text())
	case reply.IsNull():
		return nil, false, nil
	case reply.IsBulk():
		return reply.Bulk(), true, nil
	}
	return nil, false, store.NewError(store.RetCInternalError, fmt.Sprintf("unexpected reply to GET: %s", reply))
}

// GetStoreInfo completes the store.IStore interface. Shard layout is not
// exposed over the wire, so remote callers always get an error.
func (c *Client) GetStoreInfo() (store.Info, error) {
	return store.Info{}, store.NewError(store.RetCUnsupportedOperation,
		"store info is not available over the wire")
}

// --------------------------------------------------------------------------
// Request Plumbing
// --------------------------------------------------------------------------

// Do sends one raw request frame and returns the reply frame. Failed round
// trips are retried over a fresh connection up to the configured retry
// count. Mostly useful for tests and tools, the typed methods above cover
// normal use.
func (c *Client) Do(request resp.Frame) (resp.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error

	// One initial attempt plus RetryCount reconnect attempts.
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			Logger.Debugf("Retrying request (attempt %d/%d)", attempt, c.config.RetryCount)
			if err := c.reconnect(); err != nil {
				lastErr = err
				continue
			}
		}
		if c.framed == nil {
			if err := c.reconnect(); err != nil {
				lastErr = err
				continue
			}
		}

		reply, err := c.roundTrip(request)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}

	return resp.Frame{}, fmt.Errorf("request failed after %d retries: %v", c.config.RetryCount, lastErr)
}

func (c *Client) roundTrip(request resp.Frame) (resp.Frame, error) {
	timeout := time.Duration(c.config.TimeoutSecond) * time.Second

	if timeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return resp.Frame{}, err
		}
	}
	if err := c.framed.WriteFrame(request); err != nil {
		return resp.Frame{}, err
	}

	if timeout > 0 {
		if err := c.netConn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return resp.Frame{}, err
		}
	}
	return c.framed.ReadFrame()
}
