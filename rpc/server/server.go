package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rkv-io/rkv/lib/resp"
	"github.com/rkv-io/rkv/lib/store"
	"github.com/rkv-io/rkv/rpc/common"
	"github.com/rkv-io/rkv/rpc/conn"
	"github.com/rkv-io/rkv/rpc/transport"
)

var Logger = logger.GetLogger("server")

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	metricConnectionsTotal  = metrics.NewCounter(`rkv_connections_total`)
	metricConnectionsActive = metrics.NewCounter(`rkv_connections_active`)
	metricProtocolErrors    = metrics.NewCounter(`rkv_protocol_errors_total`)
	metricCommandDuration   = metrics.NewSummary(`rkv_command_duration_seconds`)
)

func commandCounter(name string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`rkv_commands_total{command=%q}`, name))
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server accepts client connections and drives one dispatcher goroutine per
// connection. All dispatchers share a single store handle; each owns its
// Connection exclusively.
type Server struct {
	config    common.ServerConfig
	connector transport.IServerConnector
	store     store.IStore

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	closed   atomic.Bool

	// conns tracks live connections so Close can tear them down. The map
	// is written from the accept loop and from every dispatcher, hence the
	// concurrent map.
	conns      *xsync.MapOf[uint64, net.Conn]
	nextConnID atomic.Uint64
}

// New creates a new rKV server serving the given store over the given
// transport connector.
//
// Usage:
//
//	s := server.New(
//		*config,
//		tcp.NewTCPServerConnector(),
//		sharded.New(nil),
//	)
//
//	if err := s.Listen(); err != nil {
//		panic(err)
//	}
func New(
	config common.ServerConfig,
	connector transport.IServerConnector,
	st store.IStore,
) *Server {
	return &Server{
		config:    config,
		connector: connector,
		store:     st,
		ready:     make(chan struct{}),
		conns:     xsync.NewMapOf[uint64, net.Conn](),
	}
}

// Ready is closed once the listener is bound. Addr is valid from then on.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before Listen has bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen binds the configured endpoint and serves connections until Close
// is called. Accept errors on a healthy listener are logged and skipped.
func (s *Server) Listen() error {
	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	Logger.Infof("Starting %s server on %s with %d store shards",
		s.connector.GetName(), listener.Addr(), s.config.NumShards)

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := s.connector.UpgradeConnection(netConn, s.config); err != nil {
			Logger.Warningf("Failed to upgrade connection: %v", err)
		}

		id := s.nextConnID.Add(1)
		s.conns.Store(id, netConn)
		metricConnectionsTotal.Inc()

		go s.handleConnection(id, netConn)
	}
}

// Close stops the accept loop and closes all live connections. Safe to call
// more than once.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	s.mu.Lock()
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Unlock()

	s.conns.Range(func(_ uint64, netConn net.Conn) bool {
		_ = netConn.Close()
		return true
	})

	return err
}

// --------------------------------------------------------------------------
// Per-Connection Dispatcher
// --------------------------------------------------------------------------

// handleConnection runs the dispatcher loop for one connection: read a
// frame, execute it against the store, write the reply. Any read/write or
// protocol failure tears down this connection only - the store and all
// other connections are untouched.
func (s *Server) handleConnection(id uint64, netConn net.Conn) {
	metricConnectionsActive.Inc()
	defer func() {
		_ = netConn.Close()
		s.conns.Delete(id)
		metricConnectionsActive.Dec()
	}()

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	framed := conn.New(netConn)

	for {
		if timeout > 0 {
			if err := netConn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		frame, err := framed.ReadFrame()
		if err == io.EOF {
			Logger.Debugf("Connection %d closed by client", id)
			return
		}
		if err != nil {
			var protoErr *resp.ProtocolError
			if errors.As(err, &protoErr) || err == io.ErrUnexpectedEOF {
				metricProtocolErrors.Inc()
			}
			if !s.closed.Load() {
				Logger.Warningf("Connection %d: %v", id, err)
			}
			return
		}

		reply := s.execute(frame)

		if timeout > 0 {
			if err := netConn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}
		if err := framed.WriteFrame(reply); err != nil {
			if !s.closed.Load() {
				Logger.Warningf("Connection %d: failed to write reply: %v", id, err)
			}
			return
		}
	}
}

// execute runs a single decoded frame against the store and produces the
// reply frame. Client-level problems (unknown verb, wrong arity) become
// Error replies; they never terminate the connection.
func (s *Server) execute(frame resp.Frame) resp.Frame {
	start := time.Now()
	defer metricCommandDuration.UpdateDuration(start)

	cmd, err := ParseCommand(frame)
	if err != nil {
		commandCounter("invalid").Inc()
		return resp.NewError(err.Error())
	}
	commandCounter(cmd.Name).Inc()

	switch cmd.Name {
	case CmdSet:
		if err := s.store.Set(cmd.Key, cmd.Value); err != nil {
			return resp.NewError(fmt.Sprintf("ERR %v", err))
		}
		return resp.NewSimple("OK")

	case CmdGet:
		value, loaded, err := s.store.Get(cmd.Key)
		if err != nil {
			return resp.NewError(fmt.Sprintf("ERR %v", err))
		}
		if !loaded {
			return resp.Null()
		}
		return resp.NewBulk(value)
	}

	// ParseCommand only emits known verbs, this is unreachable.
	return resp.NewError("ERR unknown command")
}
