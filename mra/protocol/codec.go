package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/TheusHen/mra/mra/mrsa"
)

var (
	ErrFieldTooLarge = errors.New("protocol: field too large")
	ErrEmptyField    = errors.New("protocol: empty field")
	ErrTrailingData  = errors.New("protocol: trailing data after payload")
)

// errShort is what a truncated buffer reports, matching what io.ReadFull
// returns for a truncated stream.
var errShort = io.ErrUnexpectedEOF

// WritePublicKey sends the key exchange message.
// Format (big endian):
//
//	4 bytes: nLen
//	nLen bytes: modulus n
//	4 bytes: eLen
//	eLen bytes: exponent e
func WritePublicKey(w io.Writer, pk mrsa.PublicKey) error {
	for _, f := range [][]byte{pk.N, pk.E} {
		if len(f) == 0 {
			return ErrEmptyField
		}
		if len(f) > MaxKeyField {
			return fmt.Errorf("%w: %d", ErrFieldTooLarge, len(f))
		}
	}

	bw := bufio.NewWriter(w)
	if err := writeField(bw, pk.N); err != nil {
		return err
	}
	if err := writeField(bw, pk.E); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadPublicKey reads a key exchange message.
func ReadPublicKey(r io.Reader) (mrsa.PublicKey, error) {
	n, err := readField(r, MaxKeyField)
	if err != nil {
		return mrsa.PublicKey{}, fmt.Errorf("protocol: read modulus: %w", err)
	}
	e, err := readField(r, MaxKeyField)
	if err != nil {
		return mrsa.PublicKey{}, fmt.Errorf("protocol: read exponent: %w", err)
	}
	return mrsa.PublicKey{N: n, E: e}, nil
}

// WritePayload sends a payload frame: header, wrapped key, encrypted data.
func WritePayload(w io.Writer, p *Payload) error {
	if err := p.check(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	var hdr [HeaderSize]byte
	p.Header().put(hdr[:])
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := bw.Write(p.EncKey); err != nil {
		return err
	}
	if _, err := bw.Write(p.EncData); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadPayload reads one payload frame. It reads exactly the frame's bytes
// and nothing past it.
func ReadPayload(r io.Reader) (*Payload, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("protocol: read payload header: %w", err)
	}
	h, err := parseHeader(hdr[:])
	if err != nil {
		return nil, err
	}
	p := &Payload{
		IV:      h.IV,
		EncKey:  make([]byte, h.EncKeySize),
		EncData: make([]byte, h.EncDataSize),
	}
	if _, err := io.ReadFull(r, p.EncKey); err != nil {
		return nil, fmt.Errorf("protocol: read encrypted key: %w", noEOF(err))
	}
	if _, err := io.ReadFull(r, p.EncData); err != nil {
		return nil, fmt.Errorf("protocol: read encrypted data: %w", noEOF(err))
	}
	return p, nil
}

func writeField(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readField(r io.Reader, limit uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, ErrEmptyField
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d", ErrFieldTooLarge, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, noEOF(err)
	}
	return b, nil
}

// noEOF turns a clean EOF in the middle of a message into ErrUnexpectedEOF.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
