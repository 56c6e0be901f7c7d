package mrsa

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// MinBits is the smallest modulus GenerateKey accepts.
const MinBits = 96

// maxAttempts bounds how many fresh prime triples GenerateKey draws.
const maxAttempts = 64

var (
	ErrKeySize       = errors.New("mrsa: key size too small")
	ErrKeyGeneration = errors.New("mrsa: key generation failed")
)

var one = big.NewInt(1)

// GenerateKey creates a keypair whose modulus is exactly bits long. Two primes
// have bits/3 bits and the third takes the remainder.
func GenerateKey(bits int) (*TriplePrimeKey, error) {
	return generateKey(rand.Reader, bits)
}

func generateKey(random io.Reader, bits int) (*TriplePrimeKey, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: %d < %d", ErrKeySize, bits, MinBits)
	}
	small := bits / 3
	large := bits - 2*small
	e := big.NewInt(PublicExponent)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		p, err := rand.Prime(random, small)
		if err != nil {
			return nil, err
		}
		q, err := rand.Prime(random, small)
		if err != nil {
			return nil, err
		}
		r, err := rand.Prime(random, large)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 || p.Cmp(r) == 0 || q.Cmp(r) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		n.Mul(n, r)
		if n.BitLen() != bits {
			continue
		}

		d, err := modInverse(e, totient(p, q, r))
		if err != nil {
			// e shares a factor with some p-1; draw again.
			continue
		}

		return &TriplePrimeKey{
			N: n.Bytes(),
			E: e.Bytes(),
			D: d.Bytes(),
			P: p.Bytes(),
			Q: q.Bytes(),
			R: r.Bytes(),
		}, nil
	}
	return nil, fmt.Errorf("%w: no usable primes after %d attempts", ErrKeyGeneration, maxAttempts)
}

// totient returns (p-1)(q-1)(r-1).
func totient(p, q, r *big.Int) *big.Int {
	phi := new(big.Int).Sub(p, one)
	phi.Mul(phi, new(big.Int).Sub(q, one))
	phi.Mul(phi, new(big.Int).Sub(r, one))
	return phi
}
