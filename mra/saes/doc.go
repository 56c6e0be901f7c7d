// Package saes implements S-AES, a reduced-round substitution-permutation
// block cipher built on the Rijndael round function.
//
// Key features:
//   - Fixed 7-round schedule over a 16-byte column-major state
//   - 128-bit and 256-bit keys via the Rijndael key expansion
//   - Counter mode with keystream generation split across workers
//   - Chained (CBC) mode: sequential encryption, parallel decryption
//
// Bulk calls spawn at most four goroutines, each writing a disjoint range of
// the output, and join them before returning. No goroutine outlives a call.
//
// S-AES is not AES: the round count differs, so ciphertexts are not
// interchangeable with crypto/aes.
package saes
