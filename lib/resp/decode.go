package resp

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// ErrIncomplete signals that the buffer does not yet contain a full frame.
// It is not a protocol violation: the caller should read more bytes from the
// stream and retry. It must never be surfaced past the connection layer.
var ErrIncomplete = errors.New("resp: incomplete frame")

// ProtocolError is a fatal wire protocol violation (bad tag byte, malformed
// length field, forbidden control bytes). The connection that produced it
// must be closed, no recovery is possible mid-stream.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string {
	return "resp: protocol error: " + e.msg
}

func protocolErrorf(format string, args ...interface{}) error {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Decoder
// --------------------------------------------------------------------------

// pending tracks one array whose elements are still being decoded. Arrays are
// decoded with an explicit stack of pending entries instead of recursive
// descent, so nesting depth is bounded by heap memory, not goroutine stack.
type pending struct {
	remaining int
	elems     []Frame
}

// Decode parses the first complete frame from buf and returns it together
// with the number of bytes it consumed. If buf holds only a prefix of a valid
// frame, Decode returns ErrIncomplete. Any byte sequence that can not be a
// prefix of a valid frame yields a *ProtocolError.
//
// Bulk payloads are copied out of buf, the returned Frame never aliases it.
func Decode(buf []byte) (Frame, int, error) {
	pos := 0
	var stack []pending

	for {
		frame, n, err := decodeOne(buf[pos:])
		if err != nil {
			return Frame{}, 0, err
		}
		pos += n

		// Array headers open a new nesting level. Empty arrays are already
		// complete and fall through like any other frame.
		if frame.IsArray() && frame.array == nil {
			stack = append(stack, pending{remaining: n2count(frame), elems: []Frame{}})
			continue
		}

		// Attach the completed frame to the innermost open array. Each time
		// an array fills up it becomes the completed frame of the level above.
		for {
			if len(stack) == 0 {
				return frame, pos, nil
			}
			top := &stack[len(stack)-1]
			top.elems = append(top.elems, frame)
			top.remaining--
			if top.remaining > 0 {
				break
			}
			frame = NewArray(top.elems...)
			stack = stack[:len(stack)-1]
		}
	}
}

// n2count recovers the declared element count from an array-header frame.
// Header frames smuggle the count through the num field until their elements
// have been decoded.
func n2count(f Frame) int {
	return int(f.num)
}

// decodeOne parses a single non-nested frame starting at buf[0]. For arrays
// it parses only the header line and returns a placeholder frame carrying the
// declared element count (elems == nil marks it as an unfilled header).
func decodeOne(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return Frame{}, 0, ErrIncomplete
	}

	switch Kind(buf[0]) {
	case KindSimple:
		text, n, err := decodeLine(buf[1:])
		if err != nil {
			return Frame{}, 0, err
		}
		return NewSimple(text), 1 + n, nil

	case KindError:
		text, n, err := decodeLine(buf[1:])
		if err != nil {
			return Frame{}, 0, err
		}
		return NewError(text), 1 + n, nil

	case KindInteger:
		val, n, err := decodeInteger(buf[1:])
		if err != nil {
			return Frame{}, 0, err
		}
		return NewInteger(val), 1 + n, nil

	case KindBulk:
		return decodeBulk(buf)

	case KindArray:
		count, n, err := decodeLength(buf[1:])
		if err != nil {
			return Frame{}, 0, err
		}
		if count == 0 {
			return NewArray(), 1 + n, nil
		}
		// Header placeholder, see decodeOne docs.
		return Frame{kind: frameArray, num: int64(count)}, 1 + n, nil
	}

	return Frame{}, 0, protocolErrorf("invalid frame tag byte %q", buf[0])
}

// decodeBulk parses `$<len>\r\n<len bytes>\r\n` or the Null form `$-1\r\n`.
func decodeBulk(buf []byte) (Frame, int, error) {
	body := buf[1:]

	// `$-1\r\n` is the only legal negative length and encodes Null.
	if len(body) >= 2 && body[0] == '-' {
		if body[1] != '1' {
			return Frame{}, 0, protocolErrorf("invalid bulk length")
		}
		if len(body) < 4 {
			return Frame{}, 0, ErrIncomplete
		}
		if body[2] != '\r' || body[3] != '\n' {
			return Frame{}, 0, protocolErrorf("invalid bulk length")
		}
		return Null(), 5, nil
	}
	if len(body) == 1 && body[0] == '-' {
		return Frame{}, 0, ErrIncomplete
	}

	length, n, err := decodeLength(body)
	if err != nil {
		return Frame{}, 0, err
	}
	body = body[n:]

	if len(body) < length+2 {
		return Frame{}, 0, ErrIncomplete
	}
	if body[length] != '\r' || body[length+1] != '\n' {
		return Frame{}, 0, protocolErrorf("bulk payload not terminated by CRLF")
	}

	payload := make([]byte, length)
	copy(payload, body[:length])
	return NewBulk(payload), 1 + n + length + 2, nil
}

// decodeLine reads a CRLF-terminated line and rejects stray CR or LF bytes
// inside it. Returns the line text and the number of bytes consumed
// (including the CRLF).
func decodeLine(buf []byte) (string, int, error) {
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case '\r':
			if i+1 >= len(buf) {
				return "", 0, ErrIncomplete
			}
			if buf[i+1] != '\n' {
				return "", 0, protocolErrorf("CR not followed by LF")
			}
			return string(buf[:i]), i + 2, nil
		case '\n':
			return "", 0, protocolErrorf("bare LF in frame")
		}
	}
	return "", 0, ErrIncomplete
}

// decodeInteger parses a CRLF-terminated signed decimal. Leading zeros and
// "-0" are rejected so every integer has exactly one encoding.
func decodeInteger(buf []byte) (int64, int, error) {
	line, n, err := decodeLine(buf)
	if err != nil {
		return 0, 0, err
	}

	digits := line
	negative := false
	if len(digits) > 0 && digits[0] == '-' {
		negative = true
		digits = digits[1:]
	}
	if err := checkDecimal(digits); err != nil {
		return 0, 0, err
	}
	if negative && digits == "0" {
		return 0, 0, protocolErrorf("invalid integer %q", line)
	}

	// Accumulate in the negative range, which holds one more value than the
	// positive one, so -1<<63 decodes like any other integer.
	var val int64
	for i := 0; i < len(digits); i++ {
		d := int64(digits[i] - '0')
		if val < (-1<<63+d)/10 {
			return 0, 0, protocolErrorf("integer %q out of range", line)
		}
		val = val*10 - d
	}
	if !negative {
		if val == -1<<63 {
			return 0, 0, protocolErrorf("integer %q out of range", line)
		}
		val = -val
	}
	return val, n, nil
}

// decodeLength parses a CRLF-terminated non-negative decimal length or count
// field. The result is additionally bounded to fit in int on 32-bit targets.
func decodeLength(buf []byte) (int, int, error) {
	line, n, err := decodeLine(buf)
	if err != nil {
		return 0, 0, err
	}
	if err := checkDecimal(line); err != nil {
		return 0, 0, err
	}

	var val int
	for i := 0; i < len(line); i++ {
		d := int(line[i] - '0')
		if val > (int(^uint(0)>>1)-d)/10 {
			return 0, 0, protocolErrorf("length %q out of range", line)
		}
		val = val*10 + d
	}
	return val, n, nil
}

// checkDecimal validates an unsigned decimal: at least one digit, only
// digits, and no leading zero except the literal "0".
func checkDecimal(s string) error {
	if len(s) == 0 {
		return protocolErrorf("empty decimal field")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return protocolErrorf("non-numeric byte %q in decimal field", s[i])
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return protocolErrorf("leading zero in decimal field %q", s)
	}
	return nil
}
