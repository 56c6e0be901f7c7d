// Package mra provides the sender and receiver ends of the MRA hybrid
// encryption scheme.
//
// A receiver owns an M-RSA keypair and publishes its public key to every
// connecting sender. The sender seals a message with a fresh S-AES key,
// wraps that key with M-RSA and sends both back in one payload frame. The
// building blocks live in subpackages: saes and mrsa for the ciphers,
// protocol for the wire format, session for the exchange and transport for
// TCP and QUIC.
package mra
