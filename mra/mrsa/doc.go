// Package mrsa implements M-RSA, an RSA variant whose modulus is the product
// of three distinct primes.
//
// Decryption uses the Chinese Remainder Theorem over the three primes, which
// replaces one full-size exponentiation with three exponentiations on
// third-size moduli.
//
// Encrypt is textbook RSA: there is no OAEP or other padding. The scheme only
// ever wraps short symmetric keys, and adding padding would change the wire
// format. Do not use it for anything else.
//
// All integers are big-endian byte strings without leading zero bytes, the
// encoding produced by math/big.
package mrsa
