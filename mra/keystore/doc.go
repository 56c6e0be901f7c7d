// Package keystore keeps a receiver's M-RSA private key on disk, sealed
// under a passphrase.
//
// Key hierarchy:
//   - Argon2id(passphrase, salt) produces a key-encryption key
//   - HKDF-SHA256 derives the sealing key from it, bound to the file version
//   - ChaCha20-Poly1305 seals the CBOR-encoded key, authenticating the header
//
// The public fingerprint is stored in the clear so a key file can be
// identified without the passphrase.
package keystore
