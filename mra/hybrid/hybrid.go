// Package hybrid binds S-AES and M-RSA into the sealed-message scheme: a
// fresh symmetric key encrypts the padded message and M-RSA wraps that key
// for the receiver.
package hybrid

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/TheusHen/mra/mra/framing"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/protocol"
	"github.com/TheusHen/mra/mra/saes"
)

// ErrOpenFailed is returned for every failure while opening a payload. The
// underlying cause is wrapped for local logging only and must not be echoed
// to the peer.
var ErrOpenFailed = errors.New("hybrid: open failed")

// Scheme fixes the symmetric variant used on both ends of a session.
type Scheme struct {
	Variant saes.Variant
	// Workers caps the goroutines per bulk call; 0 uses the CPU count.
	Workers int
}

// DefaultScheme is S-AES-128 in counter mode.
func DefaultScheme() Scheme {
	return Scheme{Variant: saes.CTR128}
}

// GenerateKeypair creates an M-RSA keypair with a modulus of bits bits.
func GenerateKeypair(bits int) (*mrsa.TriplePrimeKey, error) {
	return mrsa.GenerateKey(bits)
}

// PublicEncryptSymmetricKey wraps key under the public key (n, e).
func PublicEncryptSymmetricKey(key, n, e []byte) ([]byte, error) {
	return mrsa.Encrypt(key, n, e)
}

// PrivateDecryptSymmetricKey unwraps a key. The result has no leading zero
// bytes; use mrsa.FitKey to restore the fixed width.
func PrivateDecryptSymmetricKey(b []byte, priv *mrsa.TriplePrimeKey) ([]byte, error) {
	return mrsa.Decrypt(b, priv)
}

// Pad applies PKCS#7 padding to the S-AES block size.
func Pad(data []byte) []byte {
	return framing.Pad(data, saes.BlockSize)
}

// Unpad strips PKCS#7 padding.
func Unpad(data []byte) ([]byte, error) {
	return framing.Unpad(data)
}

// BulkEncrypt encrypts plaintext with key and iv in the scheme's mode.
func (s Scheme) BulkEncrypt(plaintext, key, iv []byte) ([]byte, error) {
	c, err := s.cipher(key)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(plaintext, iv)
}

// BulkDecrypt reverses BulkEncrypt.
func (s Scheme) BulkDecrypt(ciphertext, key, iv []byte) ([]byte, error) {
	c, err := s.cipher(key)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ciphertext, iv)
}

// Seal draws a fresh key and IV, encrypts the padded plaintext and wraps
// the key for pub.
func (s Scheme) Seal(pub mrsa.PublicKey, plaintext []byte) (*protocol.Payload, error) {
	key := make([]byte, s.Variant.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	p := &protocol.Payload{}
	if _, err := rand.Read(p.IV[:]); err != nil {
		return nil, err
	}

	var err error
	p.EncData, err = s.BulkEncrypt(Pad(plaintext), key, p.IV[:])
	if err != nil {
		return nil, err
	}
	p.EncKey, err = mrsa.EncryptPublic(key, pub)
	if err != nil {
		return nil, fmt.Errorf("hybrid: wrap key: %w", err)
	}
	return p, nil
}

// Open unwraps the key, decrypts and unpads. Any failure is reported as
// ErrOpenFailed.
func (s Scheme) Open(priv *mrsa.TriplePrimeKey, p *protocol.Payload) ([]byte, error) {
	raw, err := mrsa.Decrypt(p.EncKey, priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	key := mrsa.FitKey(raw, s.Variant.KeySize)

	padded, err := s.BulkDecrypt(p.EncData, key, p.IV[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	pt, err := Unpad(padded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	return pt, nil
}

func (s Scheme) cipher(key []byte) (*saes.Cipher, error) {
	var opts []saes.Option
	if s.Workers > 0 {
		opts = append(opts, saes.WithWorkers(s.Workers))
	}
	return saes.New(s.Variant, key, opts...)
}
