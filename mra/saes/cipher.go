package saes

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"strings"
)

const (
	// BlockSize is the S-AES block size in bytes.
	BlockSize = 16
	// IVSize is the IV length for both chaining modes.
	IVSize = BlockSize
	// Rounds is the fixed S-AES round count.
	Rounds = 7
)

var (
	ErrKeyLengthMismatch = errors.New("saes: key length mismatch")
	ErrInvalidIV         = errors.New("saes: invalid IV length")
	ErrNotBlockAligned   = errors.New("saes: input is not a multiple of the block size")
	ErrUnknownVariant    = errors.New("saes: unknown variant")
)

// Mode selects the chaining discipline used by Encrypt and Decrypt.
type Mode int

const (
	ModeCTR Mode = iota + 1 // counter mode, any input length
	ModeCBC                 // cipher block chaining, block-aligned input
)

func (m Mode) String() string {
	switch m {
	case ModeCTR:
		return "ctr"
	case ModeCBC:
		return "cbc"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Variant fixes the key length and chaining mode of a scheme instance.
type Variant struct {
	KeySize int
	Mode    Mode
}

var (
	// CTR128 uses a 16-byte key in counter mode.
	CTR128 = Variant{KeySize: 16, Mode: ModeCTR}
	// CBC256 uses a 32-byte key in chained mode.
	CBC256 = Variant{KeySize: 32, Mode: ModeCBC}
)

func (v Variant) String() string {
	return fmt.Sprintf("%s%d", v.Mode, v.KeySize*8)
}

// ParseVariant parses names like "ctr128" or "cbc256".
func ParseVariant(s string) (Variant, error) {
	for _, v := range []Variant{
		CTR128, CBC256,
		{KeySize: 16, Mode: ModeCBC},
		{KeySize: 32, Mode: ModeCTR},
	} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithWorkers sets the number of goroutines used by bulk operations.
// The effective count never exceeds four or the number of blocks.
func WithWorkers(n int) Option {
	return func(c *Cipher) {
		c.workers = n
	}
}

// Cipher is an S-AES instance bound to one key. It is safe for concurrent use.
type Cipher struct {
	variant Variant
	rounds  int
	rk      [][16]byte
	workers int
}

// New expands key for the given variant.
func New(v Variant, key []byte, opts ...Option) (*Cipher, error) {
	switch v.KeySize {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: variant key size %d", ErrUnknownVariant, v.KeySize)
	}
	if v.Mode != ModeCTR && v.Mode != ModeCBC {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, v.Mode)
	}
	if len(key) != v.KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeyLengthMismatch, len(key), v.KeySize)
	}
	c := newCipher(key, Rounds)
	c.variant = v
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newCipher(key []byte, rounds int) *Cipher {
	return &Cipher{
		rounds: rounds,
		rk:     ExpandKey(key, rounds),
	}
}

// Variant returns the variant the cipher was built for.
func (c *Cipher) Variant() Variant {
	return c.variant
}

// EncryptBlock encrypts the first block of src into dst.
func (c *Cipher) EncryptBlock(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("saes: input not full block")
	}
	var s State
	copy(s[:], src)

	s.AddRoundKey(&c.rk[0])
	for r := 1; r < c.rounds; r++ {
		s.SubBytes()
		s.ShiftRows()
		s.MixColumns()
		s.AddRoundKey(&c.rk[r])
	}
	s.SubBytes()
	s.ShiftRows()
	s.AddRoundKey(&c.rk[c.rounds])

	copy(dst, s[:])
}

// DecryptBlock decrypts the first block of src into dst.
func (c *Cipher) DecryptBlock(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("saes: input not full block")
	}
	var s State
	copy(s[:], src)

	s.AddRoundKey(&c.rk[c.rounds])
	for r := c.rounds - 1; r > 0; r-- {
		s.InvShiftRows()
		s.InvSubBytes()
		s.AddRoundKey(&c.rk[r])
		s.InvMixColumns()
	}
	s.InvShiftRows()
	s.InvSubBytes()
	s.AddRoundKey(&c.rk[0])

	copy(dst, s[:])
}

// Encrypt encrypts a whole buffer in the variant's mode. Chained mode
// requires block-aligned input; callers pad first.
func (c *Cipher) Encrypt(plaintext, iv []byte) ([]byte, error) {
	ivb, err := checkIV(iv)
	if err != nil {
		return nil, err
	}
	if c.variant.Mode == ModeCBC {
		return c.encryptCBC(plaintext, ivb)
	}
	out := make([]byte, len(plaintext))
	c.xorKeyStream(out, plaintext, ivb)
	return out, nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	ivb, err := checkIV(iv)
	if err != nil {
		return nil, err
	}
	if c.variant.Mode == ModeCBC {
		return c.decryptCBC(ciphertext, ivb)
	}
	out := make([]byte, len(ciphertext))
	c.xorKeyStream(out, ciphertext, ivb)
	return out, nil
}

// Block exposes the single-block transform as a crypto/cipher.Block.
func (c *Cipher) Block() cipher.Block {
	return block{c}
}

type block struct{ c *Cipher }

func (b block) BlockSize() int          { return BlockSize }
func (b block) Encrypt(dst, src []byte) { b.c.EncryptBlock(dst, src) }
func (b block) Decrypt(dst, src []byte) { b.c.DecryptBlock(dst, src) }

func checkIV(iv []byte) (*[IVSize]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIV, len(iv))
	}
	return (*[IVSize]byte)(iv), nil
}
