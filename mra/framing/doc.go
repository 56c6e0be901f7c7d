// Package framing holds the byte-level helpers shared by the cipher layer
// and the diagnostics: PKCS#7 padding and hex encoding.
package framing
