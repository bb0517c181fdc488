package transport

import (
	"net"

	"github.com/rkv-io/rkv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Connector
// --------------------------------------------------------------------------

// IServerConnector defines the transport-specific listening operations.
// The server core is transport agnostic, it only ever sees net.Listener and
// net.Conn; connectors supply those for a concrete medium (tcp, unix).
type IServerConnector interface {
	// Listen creates a listener for the configured endpoint
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies transport-specific tuning (buffer sizes,
	// keep-alive, ...) to a freshly accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g. "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// IClientConnector defines the transport-specific dialing operations.
type IClientConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// UpgradeConnection applies transport-specific tuning to an
	// established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error

	// GetName returns the name of the transport type (e.g. "unix", "tcp")
	GetName() string
}
