// Package sharded implements the in-memory store backing rKV command
// execution.
//
// The key space is partitioned over a fixed number of shards (32 by
// default), each a plain map guarded by its own sync.RWMutex. Keys are
// routed to shards with seeded FNV-1a hashing, so routing is deterministic
// for the lifetime of the process while differing between processes.
//
// The locking discipline is strictly single-lock-at-a-time: every operation
// touches exactly one shard and holds its lock only across the in-memory map
// access, never across I/O. Operations on different shards proceed fully in
// parallel; operations on the same shard are serialized in lock acquisition
// order.
package sharded
