package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// IVSize is the length of the IV carried in every payload header.
	IVSize = 16
	// HeaderSize is encKeySize(4) + encDataSize(4) + iv(16).
	HeaderSize = 4 + 4 + IVSize

	// MaxKeyField limits the modulus, exponent and wrapped-key fields.
	MaxKeyField = 64 << 10 // 64 KiB
	// MaxDataField limits the encrypted payload.
	MaxDataField = 64 << 20 // 64 MiB
)

// Header is the fixed-size prefix of a payload frame.
// Format (big endian):
//
//	4 bytes:  encKeySize
//	4 bytes:  encDataSize
//	16 bytes: iv
type Header struct {
	EncKeySize  uint32
	EncDataSize uint32
	IV          [IVSize]byte
}

func (h Header) put(b []byte) {
	binary.BigEndian.PutUint32(b[0:4], h.EncKeySize)
	binary.BigEndian.PutUint32(b[4:8], h.EncDataSize)
	copy(b[8:HeaderSize], h.IV[:])
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	h.EncKeySize = binary.BigEndian.Uint32(b[0:4])
	h.EncDataSize = binary.BigEndian.Uint32(b[4:8])
	copy(h.IV[:], b[8:HeaderSize])
	if h.EncKeySize > MaxKeyField {
		return Header{}, fmt.Errorf("%w: encrypted key %d bytes", ErrFieldTooLarge, h.EncKeySize)
	}
	if h.EncDataSize > MaxDataField {
		return Header{}, fmt.Errorf("%w: encrypted data %d bytes", ErrFieldTooLarge, h.EncDataSize)
	}
	return h, nil
}

// Payload is one sealed message: the IV, the RSA-wrapped symmetric key and
// the padded, encrypted data.
type Payload struct {
	IV      [IVSize]byte
	EncKey  []byte
	EncData []byte
}

// Header returns the header describing p.
func (p *Payload) Header() Header {
	return Header{
		EncKeySize:  uint32(len(p.EncKey)),
		EncDataSize: uint32(len(p.EncData)),
		IV:          p.IV,
	}
}

// Size is the encoded length of p.
func (p *Payload) Size() int {
	return HeaderSize + len(p.EncKey) + len(p.EncData)
}

// MarshalBinary encodes p in wire format.
func (p *Payload) MarshalBinary() ([]byte, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	b := make([]byte, p.Size())
	p.Header().put(b)
	n := copy(b[HeaderSize:], p.EncKey)
	copy(b[HeaderSize+n:], p.EncData)
	return b, nil
}

// UnmarshalBinary decodes a complete payload. Extra bytes are an error.
func (p *Payload) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("protocol: short payload header: %w", errShort)
	}
	h, err := parseHeader(b)
	if err != nil {
		return err
	}
	want := HeaderSize + int(h.EncKeySize) + int(h.EncDataSize)
	switch {
	case len(b) < want:
		return fmt.Errorf("protocol: payload body: %w", errShort)
	case len(b) > want:
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, len(b)-want)
	}
	p.IV = h.IV
	p.EncKey = append([]byte(nil), b[HeaderSize:HeaderSize+int(h.EncKeySize)]...)
	p.EncData = append([]byte(nil), b[HeaderSize+int(h.EncKeySize):want]...)
	return nil
}

func (p *Payload) check() error {
	if len(p.EncKey) > MaxKeyField {
		return fmt.Errorf("%w: encrypted key %d bytes", ErrFieldTooLarge, len(p.EncKey))
	}
	if len(p.EncData) > MaxDataField {
		return fmt.Errorf("%w: encrypted data %d bytes", ErrFieldTooLarge, len(p.EncData))
	}
	return nil
}
