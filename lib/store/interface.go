package store

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a key–value store.
// Write operations return only an error (nil on success), read operations
// return the requested data along with an error (nil on success).
//
// Implementations must be safe for concurrent use: one store handle is
// shared by every connection the server accepts.
type IStore interface {
	// Set inserts or updates a key–value pair (unconditional upsert).
	Set(key string, value []byte) (err error)
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found. A stored empty value yields
	// (empty, true, nil), which is distinct from (nil, false, nil).
	Get(key string) (value []byte, loaded bool, err error)
	// GetStoreInfo returns metadata about the store, such as shard layout
	// and key distribution. It is advisory: values may be stale by the time
	// the caller sees them.
	GetStoreInfo() (info Info, err error)
}

// Info describes the current shape of a store.
type Info struct {
	NumShards int   `json:"num_shards"`
	Keys      int   `json:"keys"`
	SizeBytes int   `json:"size_bytes"`
	ShardKeys []int `json:"shard_keys"` // keys per shard, indexed by shard
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KVStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the implementation.
	RetCInvalidOperation                    // 3: Invalid operation.
)
