package mrsa

import (
	"bytes"
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
)

func TestGenerateKey1024(t *testing.T) {
	key, err := GenerateKey(1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if key.Bits() != 1024 {
		t.Fatalf("modulus has %d bits", key.Bits())
	}

	n := new(big.Int).SetBytes(key.N)
	e := new(big.Int).SetBytes(key.E)
	d := new(big.Int).SetBytes(key.D)
	p := new(big.Int).SetBytes(key.P)
	q := new(big.Int).SetBytes(key.Q)
	r := new(big.Int).SetBytes(key.R)

	if e.Int64() != PublicExponent {
		t.Fatalf("e = %v", e)
	}
	if new(big.Int).Mul(new(big.Int).Mul(p, q), r).Cmp(n) != 0 {
		t.Fatalf("p*q*r != n")
	}
	ed := new(big.Int).Mul(e, d)
	if ed.Mod(ed, totient(p, q, r)).Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("e*d mod phi != 1")
	}
	if p.BitLen() != 341 || q.BitLen() != 341 || r.BitLen() != 342 {
		t.Fatalf("unexpected prime sizes: %d %d %d", p.BitLen(), q.BitLen(), r.BitLen())
	}
	if err := key.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, b := range [][]byte{key.N, key.D, key.P, key.Q, key.R} {
		if b[0] == 0 {
			t.Fatalf("component has a leading zero byte")
		}
	}
}

func TestGenerateKeyTooSmall(t *testing.T) {
	if _, err := GenerateKey(64); !errors.Is(err, ErrKeySize) {
		t.Fatalf("expected ErrKeySize, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	key, err := GenerateKey(1024)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	msgs := [][]byte{
		make([]byte, 16),
		append([]byte{0, 0, 0}, bytes.Repeat([]byte{0x5a}, 13)...),
		bytes.Repeat([]byte{0xff}, 16),
		bytes.Repeat([]byte{0x01}, 32),
	}
	for i := 0; i < 8; i++ {
		m := make([]byte, 16)
		_, _ = rand.Read(m)
		msgs = append(msgs, m)
	}

	for _, m := range msgs {
		c, err := EncryptPublic(m, key.Public())
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(c, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(FitKey(got, len(m)), m) {
			t.Fatalf("round trip mismatch: got %x want %x", got, m)
		}
	}
}

func TestDecryptMatchesPlainExponentiation(t *testing.T) {
	key, err := GenerateKey(384)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	n := new(big.Int).SetBytes(key.N)
	d := new(big.Int).SetBytes(key.D)
	for i := 0; i < 16; i++ {
		c, _ := rand.Int(rand.Reader, n)
		want := new(big.Int).Exp(c, d, n).Bytes()
		got, err := Decrypt(c.Bytes(), key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("CRT result differs from c^d mod n")
		}
	}
}

func TestEncryptTooLarge(t *testing.T) {
	key, err := GenerateKey(192)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := Encrypt(key.N, key.N, key.E); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if _, err := Encrypt([]byte{1}, nil, key.E); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDecryptNonInvertible(t *testing.T) {
	// p == q makes q*r share a factor with p.
	p := big.NewInt(1000003)
	r := big.NewInt(1000033)
	n := new(big.Int).Mul(new(big.Int).Mul(p, p), r)
	key := &TriplePrimeKey{
		N: n.Bytes(),
		E: big.NewInt(PublicExponent).Bytes(),
		D: big.NewInt(12345).Bytes(),
		P: p.Bytes(),
		Q: p.Bytes(),
		R: r.Bytes(),
	}
	if _, err := Decrypt([]byte{42}, key); !errors.Is(err, ErrNonInvertible) {
		t.Fatalf("expected ErrNonInvertible, got %v", err)
	}
	if err := key.Validate(); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Validate: expected ErrInvalidKey, got %v", err)
	}
}

func TestModInverse(t *testing.T) {
	inv, err := modInverse(big.NewInt(3), big.NewInt(11))
	if err != nil {
		t.Fatalf("modInverse: %v", err)
	}
	if inv.Int64() != 4 {
		t.Fatalf("3^-1 mod 11 = %v, want 4", inv)
	}
	if _, err := modInverse(big.NewInt(6), big.NewInt(9)); !errors.Is(err, ErrNonInvertible) {
		t.Fatalf("expected ErrNonInvertible, got %v", err)
	}
}

func TestFitKey(t *testing.T) {
	cases := []struct {
		in    []byte
		width int
		want  []byte
	}{
		{[]byte{1, 2, 3}, 5, []byte{0, 0, 1, 2, 3}},
		{[]byte{1, 2, 3}, 3, []byte{1, 2, 3}},
		{[]byte{9, 9, 1, 2, 3}, 3, []byte{1, 2, 3}},
		{nil, 2, []byte{0, 0}},
	}
	for _, tc := range cases {
		if got := FitKey(tc.in, tc.width); !bytes.Equal(got, tc.want) {
			t.Fatalf("FitKey(%x, %d) = %x, want %x", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := PublicKey{N: []byte{1, 2}, E: []byte{3}}
	b := PublicKey{N: []byte{1}, E: []byte{2, 3}}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("fingerprints must bind field boundaries")
	}
	if len(a.Fingerprint().String()) != 64 || len(a.Fingerprint().Short()) != 16 {
		t.Fatalf("unexpected fingerprint encoding")
	}
}

func BenchmarkDecrypt1024(b *testing.B) {
	key, err := GenerateKey(1024)
	if err != nil {
		b.Fatalf("GenerateKey: %v", err)
	}
	c, _ := Encrypt(bytes.Repeat([]byte{7}, 16), key.N, key.E)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decrypt(c, key)
	}
}
