package resp

import "strconv"

// Encode serializes a frame into its unique wire representation.
// Simple and Error text containing CR or LF can not be framed and is
// rejected with a *ProtocolError.
func Encode(f Frame) ([]byte, error) {
	return Append(nil, f)
}

// Append serializes a frame and appends the encoding to dst, returning the
// extended slice. This avoids per-frame allocations when the caller reuses a
// scratch buffer.
func Append(dst []byte, f Frame) ([]byte, error) {
	switch f.kind {
	case frameSimple, frameError:
		if err := checkText(f.str); err != nil {
			return nil, err
		}
		if f.kind == frameSimple {
			dst = append(dst, byte(KindSimple))
		} else {
			dst = append(dst, byte(KindError))
		}
		dst = append(dst, f.str...)
		dst = appendCRLF(dst)

	case frameInteger:
		dst = append(dst, byte(KindInteger))
		dst = strconv.AppendInt(dst, f.num, 10)
		dst = appendCRLF(dst)

	case frameBulk:
		dst = append(dst, byte(KindBulk))
		dst = strconv.AppendInt(dst, int64(len(f.bulk)), 10)
		dst = appendCRLF(dst)
		dst = append(dst, f.bulk...)
		dst = appendCRLF(dst)

	case frameNull:
		dst = append(dst, '$', '-', '1')
		dst = appendCRLF(dst)

	case frameArray:
		dst = append(dst, byte(KindArray))
		dst = strconv.AppendInt(dst, int64(len(f.array)), 10)
		dst = appendCRLF(dst)
		var err error
		for _, elem := range f.array {
			if dst, err = Append(dst, elem); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func appendCRLF(dst []byte) []byte {
	return append(dst, '\r', '\n')
}

// checkText rejects text that would break the line framing of Simple and
// Error frames.
func checkText(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' {
			return protocolErrorf("CR or LF in simple string")
		}
	}
	return nil
}
