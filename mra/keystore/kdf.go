package keystore

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "mra-keystore-v1"

// Params are the Argon2id cost parameters recorded in every key file.
type Params struct {
	Time      uint32 `cbor:"1,keyasint"`
	MemoryKiB uint32 `cbor:"2,keyasint"`
	Threads   uint8  `cbor:"3,keyasint"`
}

// DefaultParams follow the Argon2id recommendation of one pass over 64 MiB.
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

const (
	maxTime      = 64
	maxMemoryKiB = 4 << 20 // 4 GiB
)

// check rejects parameters argon2 cannot run or that would exhaust memory.
func (p Params) check() error {
	switch {
	case p.Time == 0 || p.Time > maxTime:
		return fmt.Errorf("argon2 time %d out of range", p.Time)
	case p.Threads == 0:
		return fmt.Errorf("argon2 threads must be positive")
	case p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > maxMemoryKiB:
		return fmt.Errorf("argon2 memory %d KiB out of range", p.MemoryKiB)
	}
	return nil
}

// deriveSealKey stretches the passphrase and expands it into the AEAD key.
func deriveSealKey(passphrase, salt []byte, p Params) ([]byte, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	kek := argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, 32)
	defer wipe(kek)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, kek, salt, []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
