// Package util provides hashing and distribution-analysis helpers shared by
// store implementations: seeded FNV-1a string hashing for shard routing, and
// summary statistics used to judge how evenly keys spread over shards.
package util
