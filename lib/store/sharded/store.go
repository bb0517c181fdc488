package sharded

import (
	"sync"

	"github.com/rkv-io/rkv/lib/store"
	"github.com/rkv-io/rkv/lib/store/util"
)

// --------------------------------------------------------------------------
// Constants and Options
// --------------------------------------------------------------------------

// DefaultNumShards is the shard count used when no option is given.
// Correctness never depends on this number, only contention does: a larger
// count bounds lock contention to fewer colliding keys per shard.
const DefaultNumShards = 32

// Options configures the sharded store during initialization.
type Options struct {
	NumShards int // Number of shards (<= 0 selects DefaultNumShards)
}

// DefaultOptions returns the default store options.
func DefaultOptions() *Options {
	return &Options{
		NumShards: DefaultNumShards,
	}
}

// --------------------------------------------------------------------------
// Core Store Structure
// --------------------------------------------------------------------------

// shard is one independently locked partition of the key space.
type shard struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// storeImpl partitions the key space over a fixed slice of shards. The shard
// slice is immutable after construction, so a key routes to the same shard
// for the lifetime of the process.
type storeImpl struct {
	seed   uint64
	shards []*shard
}

// New creates a new sharded in-memory store with the specified options
// (optional, pass nil for defaults).
//
// Thread-safety: the returned store is safe for concurrent use. Each shard
// is guarded by its own lock, held only for the duration of the map access
// and never across I/O. No operation ever takes more than one shard lock,
// which rules out lock-ordering deadlocks by construction.
func New(opts *Options) store.IStore {
	if opts == nil {
		opts = DefaultOptions()
	}

	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = DefaultNumShards
	}

	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{data: make(map[string][]byte)}
	}

	return &storeImpl{
		seed:   util.GenerateSeed(),
		shards: shards,
	}
}

// route returns the shard responsible for a key. The routing function is
// pure: for a fixed store instance the same key always yields the same
// shard index in [0, len(shards)).
func (s *storeImpl) route(key string) int {
	return int(util.HashString(key, s.seed) % uint64(len(s.shards)))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	// Copy the value so later mutation by the caller can not corrupt the
	// stored entry.
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	sh := s.shards[s.route(key)]
	sh.mu.Lock()
	sh.data[key] = valueCopy
	sh.mu.Unlock()

	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	sh := s.shards[s.route(key)]

	sh.mu.RLock()
	value, loaded := sh.data[key]
	if loaded {
		// Copy under the lock: a concurrent Set may replace the entry, the
		// caller must never observe a slice shared with the map.
		valueCopy := make([]byte, len(value))
		copy(valueCopy, value)
		value = valueCopy
	}
	sh.mu.RUnlock()

	if !loaded {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *storeImpl) GetStoreInfo() (store.Info, error) {
	info := store.Info{
		NumShards: len(s.shards),
		ShardKeys: make([]int, len(s.shards)),
	}

	for i, sh := range s.shards {
		sh.mu.RLock()
		keys := len(sh.data)
		bytes := 0
		for k, v := range sh.data {
			bytes += len(k) + len(v)
		}
		sh.mu.RUnlock()

		info.ShardKeys[i] = keys
		info.Keys += keys
		info.SizeBytes += bytes
	}

	return info, nil
}
