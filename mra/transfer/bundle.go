package transfer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/TheusHen/mra/mra/transfer/erasure"
)

const (
	bundleMagic   = uint32(0x4d524142) // "MRAB"
	bundleVersion = 1

	// bundleHeaderSize is magic(4) version(1) data(1) parity(1) reserved(1)
	// streamSize(4) shardSize(4) root(32).
	bundleHeaderSize = 4 + 1 + 1 + 1 + 1 + 4 + 4 + 32
)

// MaxUnpackedSize caps the data carried by one bundle. It matches the
// payload data field limit.
const MaxUnpackedSize = 64 << 20

var (
	ErrNotBundle     = errors.New("transfer: not a bundle")
	ErrBundleCorrupt = errors.New("transfer: bundle corrupt")
)

// Config controls how Pack lays out a bundle.
type Config struct {
	ChunkSize    int
	Compression  CompressionLevel
	DataShards   int
	ParityShards int
}

// DefaultConfig uses 64 KiB chunks, balanced LZ4 and 8+2 shards.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		Compression:  CompressionDefault,
		DataShards:   8,
		ParityShards: 2,
	}
}

// Info summarizes a bundle.
type Info struct {
	Chunks       int
	Compressed   int
	DataShards   int
	ParityShards int
	// Repaired counts shards that failed verification and were rebuilt.
	Repaired int
	Root     []byte
}

// Pack builds a bundle from data.
func Pack(data []byte, cfg Config) ([]byte, *Info, error) {
	if len(data) > MaxUnpackedSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	chunks := Split(data, cfg.ChunkSize)
	packed := make([]packedChunk, len(chunks))
	for i, c := range chunks {
		packed[i] = packChunk(c, cfg.Compression)
	}
	return buildBundle(packed, cfg)
}

func buildBundle(packed []packedChunk, cfg Config) ([]byte, *Info, error) {
	codec, err := erasure.NewCodec(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, nil, err
	}
	info := &Info{Chunks: len(packed), DataShards: cfg.DataShards, ParityShards: cfg.ParityShards}
	for _, pc := range packed {
		if pc.Compressed {
			info.Compressed++
		}
	}

	stream := encodeTable(packed)
	shards, err := codec.Encode(stream)
	if err != nil {
		return nil, nil, err
	}
	hashes := make([][]byte, len(shards))
	for i, s := range shards {
		hashes[i] = HashChunk(s)
	}
	tree, err := BuildMerkleTree(hashes)
	if err != nil {
		return nil, nil, err
	}
	info.Root = tree.Root()

	shardSize := len(shards[0])
	out := make([]byte, bundleHeaderSize+len(shards)*(32+shardSize))
	binary.BigEndian.PutUint32(out[0:], bundleMagic)
	out[4] = bundleVersion
	out[5] = byte(cfg.DataShards)
	out[6] = byte(cfg.ParityShards)
	binary.BigEndian.PutUint32(out[8:], uint32(len(stream)))
	binary.BigEndian.PutUint32(out[12:], uint32(shardSize))
	copy(out[16:48], info.Root)

	off := bundleHeaderSize
	for _, h := range hashes {
		off += copy(out[off:], h)
	}
	for _, s := range shards {
		off += copy(out[off:], s)
	}
	return out, info, nil
}

// IsBundle reports whether b starts with the bundle magic.
func IsBundle(b []byte) bool {
	return len(b) >= 4 && binary.BigEndian.Uint32(b) == bundleMagic
}

// Unpack verifies a bundle, repairs damaged shards from parity when
// possible and returns the original data. Bundles that expand past
// MaxUnpackedSize fail with ErrTooLarge.
func Unpack(b []byte) ([]byte, *Info, error) {
	if !IsBundle(b) || len(b) < bundleHeaderSize {
		return nil, nil, ErrNotBundle
	}
	if b[4] != bundleVersion {
		return nil, nil, fmt.Errorf("%w: version %d", ErrNotBundle, b[4])
	}
	dataShards, parityShards := int(b[5]), int(b[6])
	streamSize := int(binary.BigEndian.Uint32(b[8:]))
	shardSize := int(binary.BigEndian.Uint32(b[12:]))
	root := b[16:48]

	codec, err := erasure.NewCodec(dataShards, parityShards)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBundleCorrupt, err)
	}
	total := codec.TotalShards()
	if shardSize == 0 || uint64(total)*uint64(32+shardSize) != uint64(len(b)-bundleHeaderSize) {
		return nil, nil, fmt.Errorf("%w: size does not match header", ErrBundleCorrupt)
	}
	if streamSize > dataShards*shardSize {
		return nil, nil, fmt.Errorf("%w: stream size %d exceeds shards", ErrBundleCorrupt, streamSize)
	}

	hashes := make([][]byte, total)
	off := bundleHeaderSize
	for i := range hashes {
		hashes[i] = b[off : off+32]
		off += 32
	}
	tree, err := BuildMerkleTree(hashes)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(tree.Root(), root) {
		return nil, nil, fmt.Errorf("%w: shard hashes do not match root", ErrBundleCorrupt)
	}

	info := &Info{DataShards: dataShards, ParityShards: parityShards, Root: append([]byte(nil), root...)}
	shards := make([][]byte, total)
	for i := range shards {
		s := b[off : off+shardSize]
		off += shardSize

		p, _ := tree.Proof(i)
		p.Leaf = HashChunk(s)
		if VerifyProof(p, root) != nil {
			info.Repaired++
			continue
		}
		shards[i] = append([]byte(nil), s...)
	}

	stream, err := codec.Reconstruct(shards, streamSize)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %w", ErrBundleCorrupt, err)
	}
	packed, err := decodeTable(stream)
	if err != nil {
		return nil, info, err
	}

	chunks := make([]Chunk, len(packed))
	budget := MaxUnpackedSize
	for i, pc := range packed {
		if pc.Compressed {
			info.Compressed++
		}
		if chunks[i], err = unpackChunk(pc, budget); err != nil {
			return nil, info, err
		}
		budget -= len(chunks[i].Data)
	}
	info.Chunks = len(chunks)
	return Join(chunks), info, nil
}
