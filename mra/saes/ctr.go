package saes

import (
	"crypto/subtle"
	"encoding/binary"
	"math/bits"
)

// xorKeyStream XORs src with the keystream E(iv+i) for block i. The last
// block may be partial; only its valid prefix of keystream is used.
func (c *Cipher) xorKeyStream(dst, src []byte, iv *[IVSize]byte) {
	blocks := (len(src) + BlockSize - 1) / BlockSize
	c.parallel(blocks, func(lo, hi int) {
		ctr := *iv
		addCounter(&ctr, uint64(lo))

		var ks [BlockSize]byte
		for i := lo; i < hi; i++ {
			c.EncryptBlock(ks[:], ctr[:])
			off := i * BlockSize
			end := min(off+BlockSize, len(src))
			subtle.XORBytes(dst[off:end], src[off:end], ks[:end-off])
			addCounter(&ctr, 1)
		}
	})
}

// addCounter adds n to ctr as a 128-bit big-endian integer, wrapping at 2^128.
func addCounter(ctr *[IVSize]byte, n uint64) {
	lo, carry := bits.Add64(binary.BigEndian.Uint64(ctr[8:]), n, 0)
	binary.BigEndian.PutUint64(ctr[8:], lo)
	binary.BigEndian.PutUint64(ctr[:8], binary.BigEndian.Uint64(ctr[:8])+carry)
}
