package saes

// sbox and invSbox are derived from the multiplicative inverse in GF(2^8)
// followed by the Rijndael affine transform.
var (
	sbox    [256]byte
	invSbox [256]byte
)

// rcon holds the round constants x^(i-1) in GF(2^8), enough for the longest
// supported schedule.
var rcon [16]byte

func init() {
	for i := 0; i < 256; i++ {
		b := byte(i)
		if b != 0 {
			b = gfInverse(b)
		}
		s := b ^ rotl8(b, 1) ^ rotl8(b, 2) ^ rotl8(b, 3) ^ rotl8(b, 4) ^ 0x63
		sbox[i] = s
		invSbox[s] = byte(i)
	}

	c := byte(1)
	for i := 1; i < len(rcon); i++ {
		rcon[i] = c
		c = xtime(c)
	}
}

func rotl8(b byte, n uint) byte {
	return b<<n | b>>(8-n)
}

// xtime multiplies by x modulo x^8+x^4+x^3+x+1.
func xtime(b byte) byte {
	if b&0x80 != 0 {
		return b<<1 ^ 0x1b
	}
	return b << 1
}

// gfMul multiplies two field elements.
func gfMul(a, b byte) byte {
	var p byte
	for b != 0 {
		if b&1 != 0 {
			p ^= a
		}
		a = xtime(a)
		b >>= 1
	}
	return p
}

// gfInverse returns a^254, which is a^-1 for a != 0.
func gfInverse(a byte) byte {
	result := byte(1)
	base := a
	for e := 254; e > 0; e >>= 1 {
		if e&1 != 0 {
			result = gfMul(result, base)
		}
		base = gfMul(base, base)
	}
	return result
}
