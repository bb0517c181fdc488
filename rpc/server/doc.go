// Package server implements the rKV server: a connection accept loop that
// spawns one dispatcher goroutine per client, each translating RESP frames
// into store operations and replies.
//
// The dispatcher is a small state machine per connection: read a frame,
// execute it, reply, repeat until clean EOF or an error. Failures are
// strictly scoped - a malformed stream or I/O error closes that one
// connection and nothing else. Unknown verbs are answered with an Error
// frame and the connection keeps serving.
//
// Commands are Arrays of Bulk strings (`SET key value`, `GET key`), matched
// case-insensitively. SET replies +OK, GET replies the stored bulk value or
// Null when the key was never written.
//
// The server exposes operational counters (connections, commands, protocol
// errors, command latency) through the VictoriaMetrics metrics set; the
// serve command can publish them on a Prometheus endpoint.
package server
