package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Socket Tuning
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings shared by all stream transports.
type SocketConf struct {
	// WriteBufferSize is the kernel write buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the kernel read buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds TCP specific settings, ignored by non-TCP transports.
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive with the given period (0 = disabled)
	TCPKeepAliveSec int
	// TCPLingerSec sets the linger timeout (negative = OS default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Server Configuration
// --------------------------------------------------------------------------

// ServerTransportConfig configures the listening side of a transport.
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port for tcp, a filesystem
	// path for unix sockets)
	Endpoint string
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters for the rKV server.
type ServerConfig struct {
	// Transport settings
	Transport ServerTransportConfig

	// NumShards is the number of store partitions (0 = implementation default)
	NumShards int

	// TimeoutSecond is the per-connection read/write deadline (0 = none)
	TimeoutSecond int64

	// MetricsEndpoint is the optional address of the Prometheus metrics
	// listener (empty = metrics endpoint disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Shards", strconv.Itoa(c.NumShards))

	addSection("Socket")
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))

	addSection("Observability")
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client Configuration
// --------------------------------------------------------------------------

// ClientTransportConfig configures the dialing side of a transport.
type ClientTransportConfig struct {
	// Endpoint is the server address to connect to
	Endpoint string
	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters for an rKV client.
type ClientConfig struct {
	Transport     ClientTransportConfig
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
