// Package unix implements the transport connectors for Unix domain sockets,
// giving processes on the same machine a lower-latency path that skips the
// TCP/IP stack. A stale socket file at the configured path is removed before
// listening.
package unix
