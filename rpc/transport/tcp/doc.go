// Package tcp implements the transport connectors for plain TCP sockets.
// The server connector optionally disables Nagle's algorithm, sizes the
// kernel socket buffers and configures keep-alive and linger behavior from
// the socket tuning sections of the configuration.
package tcp
