package resp

import (
	"bytes"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Frame Type Definition
// --------------------------------------------------------------------------

// Kind identifies the variant of a Frame. The values are the RESP wire tag
// bytes so a Kind can be written to the stream directly.
type Kind byte

const (
	KindSimple  Kind = '+' // Short status string, no CR or LF allowed
	KindError   Kind = '-' // Error message, same constraints as Simple
	KindInteger Kind = ':' // Signed 64-bit integer
	KindBulk    Kind = '$' // Length-prefixed binary string
	KindNull    Kind = '$' // Encoded as a bulk string of length -1
	KindArray   Kind = '*' // Ordered sequence of frames
)

// Frame is one self-delimiting unit of the RESP wire protocol.
// Exactly one variant is active, selected by the constructor used to build it.
// A Frame built by the constructors in this package always has exactly one
// valid wire encoding.
type Frame struct {
	kind  frameKind
	str   string  // Simple, Error
	num   int64   // Integer
	bulk  []byte  // Bulk
	array []Frame // Array
}

// frameKind is the internal discriminator. It is separate from Kind because
// Null and Bulk share the '$' wire tag but are distinct variants.
type frameKind uint8

const (
	frameSimple frameKind = iota
	frameError
	frameInteger
	frameBulk
	frameNull
	frameArray
)

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// NewSimple creates a Simple string frame.
func NewSimple(s string) Frame {
	return Frame{kind: frameSimple, str: s}
}

// NewError creates an Error frame.
func NewError(msg string) Frame {
	return Frame{kind: frameError, str: msg}
}

// NewInteger creates an Integer frame.
func NewInteger(v int64) Frame {
	return Frame{kind: frameInteger, num: v}
}

// NewBulk creates a Bulk frame. The byte slice is used as-is; callers that
// retain the slice must copy it themselves. An empty (or nil) slice is a
// valid zero-length bulk string, distinct from Null.
func NewBulk(b []byte) Frame {
	if b == nil {
		b = []byte{}
	}
	return Frame{kind: frameBulk, bulk: b}
}

// NewBulkString creates a Bulk frame from a string.
func NewBulkString(s string) Frame {
	return Frame{kind: frameBulk, bulk: []byte(s)}
}

// Null returns the absence-of-value frame.
func Null() Frame {
	return Frame{kind: frameNull}
}

// NewArray creates an Array frame from the given elements. An empty array
// is valid; elements may themselves be arrays.
func NewArray(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{kind: frameArray, array: elems}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// IsSimple reports whether the frame is a Simple string.
func (f Frame) IsSimple() bool { return f.kind == frameSimple }

// IsError reports whether the frame is an Error.
func (f Frame) IsError() bool { return f.kind == frameError }

// IsInteger reports whether the frame is an Integer.
func (f Frame) IsInteger() bool { return f.kind == frameInteger }

// IsBulk reports whether the frame is a Bulk string.
func (f Frame) IsBulk() bool { return f.kind == frameBulk }

// IsNull reports whether the frame is the Null marker.
func (f Frame) IsNull() bool { return f.kind == frameNull }

// IsArray reports whether the frame is an Array.
func (f Frame) IsArray() bool { return f.kind == frameArray }

// Text returns the payload of a Simple or Error frame ("" otherwise).
func (f Frame) Text() string { return f.str }

// Integer returns the value of an Integer frame (0 otherwise).
func (f Frame) Integer() int64 { return f.num }

// Bulk returns the payload of a Bulk frame (nil otherwise).
func (f Frame) Bulk() []byte { return f.bulk }

// Array returns the elements of an Array frame (nil otherwise).
func (f Frame) Array() []Frame { return f.array }

// --------------------------------------------------------------------------
// Comparison and Formatting
// --------------------------------------------------------------------------

// Equal reports whether two frames are structurally identical.
func (f Frame) Equal(other Frame) bool {
	if f.kind != other.kind {
		return false
	}
	switch f.kind {
	case frameSimple, frameError:
		return f.str == other.str
	case frameInteger:
		return f.num == other.num
	case frameBulk:
		return bytes.Equal(f.bulk, other.bulk)
	case frameNull:
		return true
	case frameArray:
		if len(f.array) != len(other.array) {
			return false
		}
		for i := range f.array {
			if !f.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns a human-readable representation for logs and test failures.
func (f Frame) String() string {
	switch f.kind {
	case frameSimple:
		return fmt.Sprintf("Simple(%q)", f.str)
	case frameError:
		return fmt.Sprintf("Error(%q)", f.str)
	case frameInteger:
		return "Integer(" + strconv.FormatInt(f.num, 10) + ")"
	case frameBulk:
		return fmt.Sprintf("Bulk(%q)", f.bulk)
	case frameNull:
		return "Null"
	case frameArray:
		var buf bytes.Buffer
		buf.WriteString("Array[")
		for i, elem := range f.array {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(elem.String())
		}
		buf.WriteString("]")
		return buf.String()
	}
	return "Unknown"
}
