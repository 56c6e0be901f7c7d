package mrsa

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrNonInvertible   = errors.New("mrsa: value has no modular inverse")
	ErrMessageTooLarge = errors.New("mrsa: message not smaller than modulus")
)

// Encrypt computes msg^e mod n. msg is read as a big-endian integer and must
// be smaller than n.
func Encrypt(msg, n, e []byte) ([]byte, error) {
	N := new(big.Int).SetBytes(n)
	E := new(big.Int).SetBytes(e)
	if N.Sign() == 0 || E.Sign() == 0 {
		return nil, fmt.Errorf("%w: empty modulus or exponent", ErrInvalidKey)
	}
	m := new(big.Int).SetBytes(msg)
	if m.Cmp(N) >= 0 {
		return nil, ErrMessageTooLarge
	}
	return m.Exp(m, E, N).Bytes(), nil
}

// EncryptPublic is Encrypt with the modulus and exponent taken from pk.
func EncryptPublic(msg []byte, pk PublicKey) ([]byte, error) {
	return Encrypt(msg, pk.N, pk.E)
}

// Decrypt recovers the message with CRT over the three primes:
//
//	m_i = c^(d mod (p_i-1)) mod p_i
//	m   = sum(m_i * M_i * (M_i^-1 mod p_i)) mod n,  M_i = n / p_i
//
// The result has no leading zero bytes; see FitKey.
func Decrypt(ciphertext []byte, key *TriplePrimeKey) ([]byte, error) {
	if len(key.N) == 0 || len(key.D) == 0 || len(key.P) == 0 || len(key.Q) == 0 || len(key.R) == 0 {
		return nil, fmt.Errorf("%w: missing private component", ErrInvalidKey)
	}
	n := new(big.Int).SetBytes(key.N)
	d := new(big.Int).SetBytes(key.D)
	primes := [3]*big.Int{
		new(big.Int).SetBytes(key.P),
		new(big.Int).SetBytes(key.Q),
		new(big.Int).SetBytes(key.R),
	}

	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(n) >= 0 {
		return nil, ErrMessageTooLarge
	}

	m := new(big.Int)
	for i, p := range primes {
		if p.Cmp(one) <= 0 {
			return nil, fmt.Errorf("%w: prime factor out of range", ErrInvalidKey)
		}
		dp := new(big.Int).Mod(d, new(big.Int).Sub(p, one))
		mi := new(big.Int).Exp(c, dp, p)

		others := new(big.Int).Mul(primes[(i+1)%3], primes[(i+2)%3])
		inv, err := modInverse(others, p)
		if err != nil {
			return nil, err
		}
		mi.Mul(mi, others)
		mi.Mul(mi, inv)
		m.Add(m, mi)
	}
	return m.Mod(m, n).Bytes(), nil
}

// FitKey returns b as exactly width bytes, aligned to the low-order end:
// short input is left-padded with zeros, long input keeps its last width
// bytes. Decrypt strips leading zeros, so a recovered symmetric key must
// pass through FitKey before use.
func FitKey(b []byte, width int) []byte {
	out := make([]byte, width)
	if len(b) >= width {
		copy(out, b[len(b)-width:])
	} else {
		copy(out[width-len(b):], b)
	}
	return out
}

// modInverse returns a^-1 mod m, or ErrNonInvertible if gcd(a, m) != 1.
func modInverse(a, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus %v", ErrNonInvertible, m)
	}
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, ErrNonInvertible
	}
	return inv, nil
}
