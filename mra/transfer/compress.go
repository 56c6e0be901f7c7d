package transfer

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("transfer: compression failed")
	ErrDecompressionFailed = errors.New("transfer: decompression failed")
	ErrChunkHash           = errors.New("transfer: chunk hash mismatch")
	ErrTooLarge            = errors.New("transfer: data exceeds size limit")
)

// CompressionLevel trades speed for ratio.
type CompressionLevel int

const (
	CompressionNone CompressionLevel = iota
	CompressionFast
	CompressionDefault
	CompressionBest
)

func (l CompressionLevel) String() string {
	switch l {
	case CompressionNone:
		return "none"
	case CompressionFast:
		return "fast"
	case CompressionBest:
		return "best"
	default:
		return "default"
	}
}

// ParseCompression maps "none", "fast", "default" or "best" to a level.
func ParseCompression(s string) (CompressionLevel, error) {
	for _, l := range []CompressionLevel{CompressionNone, CompressionFast, CompressionDefault, CompressionBest} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("transfer: unknown compression level %q", s)
}

func (l CompressionLevel) lz4Level() lz4.CompressionLevel {
	switch l {
	case CompressionFast:
		return lz4.Fast
	case CompressionBest:
		return lz4.Level9
	default:
		return lz4.Level4
	}
}

var writerPool = sync.Pool{
	New: func() any { return lz4.NewWriter(nil) },
}

var readerPool = sync.Pool{
	New: func() any { return lz4.NewReader(nil) },
}

// Compress returns the LZ4 frame encoding of data.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := writerPool.Get().(*lz4.Writer)
	defer writerPool.Put(w)

	w.Reset(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(level.lz4Level())); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Output longer than limit bytes fails with
// ErrTooLarge.
func Decompress(data []byte, limit int) ([]byte, error) {
	r := readerPool.Get().(*lz4.Reader)
	defer readerPool.Put(r)

	r.Reset(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, int64(limit)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if buf.Len() > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return buf.Bytes(), nil
}

// packedChunk is a chunk as stored in the bundle table.
type packedChunk struct {
	Index      int
	Compressed bool
	Data       []byte
	OrigHash   []byte
}

// packChunk compresses c when that shrinks it.
func packChunk(c Chunk, level CompressionLevel) packedChunk {
	pc := packedChunk{Index: c.Index, Data: c.Data, OrigHash: c.Hash}
	if level == CompressionNone {
		return pc
	}
	z, err := Compress(c.Data, level)
	if err != nil || len(z) >= len(c.Data) {
		return pc
	}
	pc.Compressed = true
	pc.Data = z
	return pc
}

// unpackChunk decompresses pc to at most limit bytes and checks it against
// its original hash.
func unpackChunk(pc packedChunk, limit int) (Chunk, error) {
	data := pc.Data
	if pc.Compressed {
		var err error
		if data, err = Decompress(pc.Data, limit); err != nil {
			return Chunk{}, err
		}
	} else if len(data) > limit {
		return Chunk{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	h := HashChunk(data)
	if subtle.ConstantTimeCompare(h, pc.OrigHash) != 1 {
		return Chunk{}, fmt.Errorf("%w: chunk %d", ErrChunkHash, pc.Index)
	}
	return Chunk{Index: pc.Index, Data: data, Hash: h}, nil
}
