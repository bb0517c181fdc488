// Package transport defines the connector abstractions that bind the rKV
// server and client to a concrete stream medium. The RESP core only needs a
// byte stream; connectors supply listeners and dialed connections plus any
// medium-specific socket tuning.
//
// Key Components:
//
//   - IServerConnector: creates listeners and upgrades accepted connections
//     (buffer sizes, keep-alive, linger).
//
//   - IClientConnector: dials and upgrades outgoing connections.
//
// Implementations exist for TCP ("tcp" subpackage) and Unix domain sockets
// ("unix" subpackage).
package transport
