package mrsa

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/TheusHen/mra/mra/framing"
)

// PublicExponent is the fixed public exponent e.
const PublicExponent = 65537

var ErrInvalidKey = errors.New("mrsa: invalid key")

// PublicKey is the part of a key that is sent to peers.
type PublicKey struct {
	N []byte
	E []byte
}

// TriplePrimeKey is a full M-RSA keypair. D, P, Q and R are secret and must
// never be sent over the wire.
type TriplePrimeKey struct {
	N []byte
	E []byte
	D []byte
	P []byte
	Q []byte
	R []byte
}

// Public returns a copy of the public half.
func (k *TriplePrimeKey) Public() PublicKey {
	return PublicKey{
		N: append([]byte(nil), k.N...),
		E: append([]byte(nil), k.E...),
	}
}

// Bits returns the bit length of the modulus.
func (k *TriplePrimeKey) Bits() int {
	return new(big.Int).SetBytes(k.N).BitLen()
}

// Validate checks the key invariants: p, q and r are distinct primes,
// n = p*q*r and e*d = 1 mod (p-1)(q-1)(r-1).
func (k *TriplePrimeKey) Validate() error {
	if len(k.N) == 0 || len(k.E) == 0 || len(k.D) == 0 || len(k.P) == 0 || len(k.Q) == 0 || len(k.R) == 0 {
		return fmt.Errorf("%w: missing component", ErrInvalidKey)
	}
	n := new(big.Int).SetBytes(k.N)
	e := new(big.Int).SetBytes(k.E)
	d := new(big.Int).SetBytes(k.D)
	p := new(big.Int).SetBytes(k.P)
	q := new(big.Int).SetBytes(k.Q)
	r := new(big.Int).SetBytes(k.R)

	if p.Cmp(q) == 0 || p.Cmp(r) == 0 || q.Cmp(r) == 0 {
		return fmt.Errorf("%w: primes are not distinct", ErrInvalidKey)
	}
	for _, x := range []*big.Int{p, q, r} {
		if !x.ProbablyPrime(20) {
			return fmt.Errorf("%w: factor is not prime", ErrInvalidKey)
		}
	}
	if new(big.Int).Mul(new(big.Int).Mul(p, q), r).Cmp(n) != 0 {
		return fmt.Errorf("%w: n != p*q*r", ErrInvalidKey)
	}
	phi := totient(p, q, r)
	ed := new(big.Int).Mul(e, d)
	if ed.Mod(ed, phi).Cmp(one) != 0 {
		return fmt.Errorf("%w: e*d != 1 mod phi", ErrInvalidKey)
	}
	return nil
}

// Fingerprint identifies a public key in logs: SHA-256 over the
// length-prefixed modulus and exponent.
type Fingerprint [32]byte

// Fingerprint computes the key fingerprint.
func (pk PublicKey) Fingerprint() Fingerprint {
	h := sha256.New()
	var lenBuf [4]byte
	for _, field := range [][]byte{pk.N, pk.E} {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
		h.Write(lenBuf[:])
		h.Write(field)
	}
	var fp Fingerprint
	h.Sum(fp[:0])
	return fp
}

func (fp Fingerprint) String() string {
	return framing.EncodeHex(fp[:])
}

// Short returns the first 8 bytes in hex.
func (fp Fingerprint) Short() string {
	return framing.ShortHex(fp[:], 8)
}
