package framing

import (
	"crypto/subtle"
	"errors"
)

// MaxBlockSize is the largest block size Unpad accepts a pad count for.
const MaxBlockSize = 16

var ErrInvalidPadding = errors.New("framing: invalid padding")

// Pad appends PKCS#7 padding. It always adds between 1 and blockSize bytes,
// so block-aligned input gains a full block. blockSize must be in [1, 255].
func Pad(data []byte, blockSize int) []byte {
	if blockSize <= 0 || blockSize > 255 {
		panic("framing: invalid block size")
	}
	k := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+k)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(k)
	}
	return out
}

// Unpad validates and strips PKCS#7 padding. Every failure returns the same
// ErrInvalidPadding, and the trailing bytes are compared without
// data-dependent branches.
func Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, ErrInvalidPadding
	}
	k := int(data[n-1])

	good := 1
	good &= subtle.ConstantTimeLessOrEq(1, k)
	good &= subtle.ConstantTimeLessOrEq(k, MaxBlockSize)
	good &= subtle.ConstantTimeLessOrEq(k, n)

	// Scan the last MaxBlockSize bytes; positions inside the pad must equal k.
	window := min(n, MaxBlockSize)
	for i := 1; i <= window; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i, k)
		eq := subtle.ConstantTimeByteEq(data[n-i], byte(k))
		good &= eq | (inPad ^ 1)
	}

	if good != 1 {
		return nil, ErrInvalidPadding
	}
	return data[:n-k], nil
}
