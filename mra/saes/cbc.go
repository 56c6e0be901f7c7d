package saes

import (
	"crypto/subtle"
	"fmt"
)

// encryptCBC runs strictly in order: block i needs the ciphertext of i-1.
func (c *Cipher) encryptCBC(src []byte, iv *[IVSize]byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotBlockAligned, len(src))
	}
	dst := make([]byte, len(src))
	prev := iv[:]
	var x [BlockSize]byte
	for off := 0; off < len(src); off += BlockSize {
		subtle.XORBytes(x[:], src[off:off+BlockSize], prev)
		c.EncryptBlock(dst[off:], x[:])
		prev = dst[off : off+BlockSize]
	}
	return dst, nil
}

// decryptCBC splits the blocks across workers. Each worker chains from the
// ciphertext block just before its range, or the IV for the first range.
func (c *Cipher) decryptCBC(src []byte, iv *[IVSize]byte) ([]byte, error) {
	if len(src)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotBlockAligned, len(src))
	}
	dst := make([]byte, len(src))
	c.parallel(len(src)/BlockSize, func(lo, hi int) {
		prev := iv[:]
		if lo > 0 {
			prev = src[(lo-1)*BlockSize : lo*BlockSize]
		}
		for i := lo; i < hi; i++ {
			blk := src[i*BlockSize : (i+1)*BlockSize]
			out := dst[i*BlockSize : (i+1)*BlockSize]
			c.DecryptBlock(out, blk)
			subtle.XORBytes(out, out, prev)
			prev = blk
		}
	})
	return dst, nil
}
