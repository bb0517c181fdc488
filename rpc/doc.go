// Package rpc contains the networking layer of rKV: everything needed to
// serve a store over a socket and to talk to such a server.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures and logging shared between the
//     client and server sides.
//
//   - conn: Frame-level connection handling, pairing a byte stream with
//     the wire codec from lib/resp.
//
//   - transport: Network transport abstractions with pluggable
//     implementations (TCP, Unix sockets).
//
//   - client: A blocking client for applications that want to use an rKV
//     server from Go code.
//
//   - server: The server itself, accepting connections and dispatching
//     commands against a store.
package rpc
