package keystore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/TheusHen/mra/mra/mrsa"
)

const fileVersion = 1

var (
	ErrWrongPassphrase    = errors.New("keystore: wrong passphrase or corrupt key file")
	ErrUnsupportedVersion = errors.New("keystore: unsupported key file version")
	ErrCorrupt            = errors.New("keystore: corrupt key file")
)

// envelope is the on-disk form. Everything but Sealed is authenticated as
// associated data.
type envelope struct {
	Version     int    `cbor:"1,keyasint"`
	Params      Params `cbor:"2,keyasint"`
	Salt        []byte `cbor:"3,keyasint"`
	Nonce       []byte `cbor:"4,keyasint"`
	Fingerprint []byte `cbor:"5,keyasint"`
	Sealed      []byte `cbor:"6,keyasint"`
}

// record is the sealed plaintext.
type record struct {
	N       []byte `cbor:"1,keyasint"`
	E       []byte `cbor:"2,keyasint"`
	D       []byte `cbor:"3,keyasint"`
	P       []byte `cbor:"4,keyasint"`
	Q       []byte `cbor:"5,keyasint"`
	R       []byte `cbor:"6,keyasint"`
	Created int64  `cbor:"7,keyasint"`
}

func (e *envelope) associatedData() ([]byte, error) {
	hdr := *e
	hdr.Sealed = nil
	return cbor.Marshal(hdr)
}

// Seal encrypts key under passphrase and returns the key file bytes.
func Seal(key *mrsa.TriplePrimeKey, passphrase []byte, params Params) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	fp := key.Public().Fingerprint()
	env := envelope{
		Version:     fileVersion,
		Params:      params,
		Salt:        make([]byte, 16),
		Nonce:       make([]byte, chacha20poly1305.NonceSize),
		Fingerprint: fp[:],
	}
	if _, err := rand.Read(env.Salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, err
	}

	plain, err := cbor.Marshal(record{
		N: key.N, E: key.E, D: key.D, P: key.P, Q: key.Q, R: key.R,
		Created: time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}
	defer wipe(plain)

	sk, err := deriveSealKey(passphrase, env.Salt, params)
	if err != nil {
		return nil, err
	}
	defer wipe(sk)
	aead, err := chacha20poly1305.New(sk)
	if err != nil {
		return nil, err
	}
	ad, err := env.associatedData()
	if err != nil {
		return nil, err
	}
	env.Sealed = aead.Seal(nil, env.Nonce, plain, ad)
	return cbor.Marshal(env)
}

// Open decrypts a key file produced by Seal.
func Open(b, passphrase []byte) (*mrsa.TriplePrimeKey, error) {
	var env envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != fileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if len(env.Nonce) != chacha20poly1305.NonceSize || len(env.Salt) == 0 {
		return nil, fmt.Errorf("%w: bad nonce or salt", ErrCorrupt)
	}
	if err := env.Params.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	sk, err := deriveSealKey(passphrase, env.Salt, env.Params)
	if err != nil {
		return nil, err
	}
	defer wipe(sk)
	aead, err := chacha20poly1305.New(sk)
	if err != nil {
		return nil, err
	}
	ad, err := env.associatedData()
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, env.Nonce, env.Sealed, ad)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer wipe(plain)

	var rec record
	if err := cbor.Unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	key := &mrsa.TriplePrimeKey{N: rec.N, E: rec.E, D: rec.D, P: rec.P, Q: rec.Q, R: rec.R}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return key, nil
}

// Fingerprint reads the public fingerprint without the passphrase.
func Fingerprint(b []byte) (mrsa.Fingerprint, error) {
	var env envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return mrsa.Fingerprint{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var fp mrsa.Fingerprint
	if len(env.Fingerprint) != len(fp) {
		return fp, fmt.Errorf("%w: bad fingerprint", ErrCorrupt)
	}
	copy(fp[:], env.Fingerprint)
	return fp, nil
}

// Save seals key and writes it to path with mode 0600.
func Save(path string, key *mrsa.TriplePrimeKey, passphrase []byte, params Params) error {
	b, err := Seal(key, passphrase, params)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mra-key-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads and opens the key file at path.
func Load(path string, passphrase []byte) (*mrsa.TriplePrimeKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return Open(b, passphrase)
}
