package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const tableMagic = uint32(0x4d524154) // "MRAT"

var ErrTableCorrupt = errors.New("transfer: chunk table corrupt")

// encodeTable serializes packed chunks.
// Format (big endian):
//
//	4 bytes: magic
//	4 bytes: chunk count
//	For each chunk:
//		4 bytes: index
//		1 byte: compressed flag
//		32 bytes: SHA-256 of the original chunk
//		4 bytes: data length
//		N bytes: data
func encodeTable(chunks []packedChunk) []byte {
	size := 8
	for _, c := range chunks {
		size += 4 + 1 + 32 + 4 + len(c.Data)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:], tableMagic)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(chunks)))
	off := 8
	for _, c := range chunks {
		binary.BigEndian.PutUint32(buf[off:], uint32(c.Index))
		if c.Compressed {
			buf[off+4] = 1
		}
		copy(buf[off+5:off+37], c.OrigHash)
		binary.BigEndian.PutUint32(buf[off+37:], uint32(len(c.Data)))
		off += 41
		off += copy(buf[off:], c.Data)
	}
	return buf
}

func decodeTable(b []byte) ([]packedChunk, error) {
	if len(b) < 8 || binary.BigEndian.Uint32(b) != tableMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrTableCorrupt)
	}
	count := binary.BigEndian.Uint32(b[4:])
	if uint64(count)*41 > uint64(len(b)-8) {
		return nil, fmt.Errorf("%w: %d chunks cannot fit", ErrTableCorrupt, count)
	}

	chunks := make([]packedChunk, 0, count)
	off := 8
	for i := uint32(0); i < count; i++ {
		if off+41 > len(b) {
			return nil, fmt.Errorf("%w: truncated at chunk %d", ErrTableCorrupt, i)
		}
		c := packedChunk{
			Index:      int(binary.BigEndian.Uint32(b[off:])),
			Compressed: b[off+4] == 1,
			OrigHash:   append([]byte(nil), b[off+5:off+37]...),
		}
		n := int(binary.BigEndian.Uint32(b[off+37:]))
		off += 41
		if n > len(b)-off {
			return nil, fmt.Errorf("%w: truncated at chunk %d", ErrTableCorrupt, i)
		}
		c.Data = b[off : off+n]
		off += n
		chunks = append(chunks, c)
	}
	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTableCorrupt, len(b)-off)
	}
	return chunks, nil
}
