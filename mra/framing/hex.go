package framing

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrMalformedHex = errors.New("framing: malformed hex")

// EncodeHex returns the lowercase hex encoding of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a hex string of either case. Odd-length input or a
// non-hex character yields ErrMalformedHex.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// ShortHex encodes at most n leading bytes of b, for log fields.
func ShortHex(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return hex.EncodeToString(b)
}
