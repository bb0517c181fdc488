// Package store provides the high-level interface for key-value storage in
// rKV along with unified error handling.
//
// The package focuses on:
//   - A single interface (IStore) for key-value operations shared by all
//     connection handlers
//   - A structured error system using typed return codes and descriptive
//     messages, so callers can react to specific failure classes rather
//     than generic errors
//
// Implementations:
//
//	The sharded in-memory implementation lives in the
//	"github.com/rkv-io/rkv/lib/store/sharded" package. It partitions the
//	key space over a fixed number of independently locked shards to bound
//	lock contention under concurrent access.
package store
