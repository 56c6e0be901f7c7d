package saes

import "encoding/binary"

// ExpandKey derives rounds+1 round keys from key using the Rijndael key
// schedule. len(key) must be 16, 24 or 32; callers validate it.
func ExpandKey(key []byte, rounds int) [][16]byte {
	nk := len(key) / 4
	total := 4 * (rounds + 1)

	w := make([]uint32, total)
	for i := 0; i < nk; i++ {
		w[i] = binary.BigEndian.Uint32(key[4*i:])
	}
	for i := nk; i < total; i++ {
		t := w[i-1]
		switch {
		case i%nk == 0:
			t = subWord(t<<8|t>>24) ^ uint32(rcon[i/nk])<<24
		case nk > 6 && i%nk == 4:
			t = subWord(t)
		}
		w[i] = w[i-nk] ^ t
	}

	keys := make([][16]byte, rounds+1)
	for r := range keys {
		for c := 0; c < 4; c++ {
			binary.BigEndian.PutUint32(keys[r][4*c:], w[4*r+c])
		}
	}
	return keys
}

func subWord(w uint32) uint32 {
	return uint32(sbox[w>>24])<<24 |
		uint32(sbox[w>>16&0xff])<<16 |
		uint32(sbox[w>>8&0xff])<<8 |
		uint32(sbox[w&0xff])
}
