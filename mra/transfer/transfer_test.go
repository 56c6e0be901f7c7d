package transfer

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func sample(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestSplitJoin(t *testing.T) {
	data := sample(1<<20 + 123)
	chunks := Split(data, 64*1024)
	if len(chunks) != 17 {
		t.Fatalf("unexpected chunk count: %d", len(chunks))
	}
	chunks[0], chunks[16] = chunks[16], chunks[0]
	if !bytes.Equal(Join(chunks), data) {
		t.Fatalf("Join did not restore data")
	}
	if len(Split(nil, 16)) != 0 {
		t.Fatalf("empty input must produce no chunks")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("compressible "), 5000)
	for _, level := range []CompressionLevel{CompressionFast, CompressionDefault, CompressionBest} {
		z, err := Compress(data, level)
		if err != nil {
			t.Fatalf("Compress(%s): %v", level, err)
		}
		if len(z) >= len(data) {
			t.Fatalf("Compress(%s) did not shrink data", level)
		}
		got, err := Decompress(z, len(data))
		if err != nil {
			t.Fatalf("Decompress: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch at %s", level)
		}
	}
}

func TestPackChunkSkipsIncompressible(t *testing.T) {
	random := make([]byte, 4096)
	_, _ = rand.Read(random)
	c := Split(random, 4096)[0]
	if pc := packChunk(c, CompressionBest); pc.Compressed {
		t.Fatalf("random data should be stored raw")
	}

	c.Hash[0] ^= 0xff
	if _, err := unpackChunk(packChunk(c, CompressionNone), len(c.Data)); !errors.Is(err, ErrChunkHash) {
		t.Fatalf("expected ErrChunkHash, got %v", err)
	}
}

func TestParseCompression(t *testing.T) {
	for _, s := range []string{"none", "fast", "Default", "BEST"} {
		if _, err := ParseCompression(s); err != nil {
			t.Fatalf("ParseCompression(%q): %v", s, err)
		}
	}
	if _, err := ParseCompression("zstd"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestMerkleProofs(t *testing.T) {
	var leaves [][]byte
	for i := 0; i < 5; i++ {
		leaves = append(leaves, HashChunk([]byte{byte(i)}))
	}
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		t.Fatalf("BuildMerkleTree: %v", err)
	}
	for i := range leaves {
		p, err := tree.Proof(i)
		if err != nil {
			t.Fatalf("Proof(%d): %v", i, err)
		}
		if err := VerifyProof(p, tree.Root()); err != nil {
			t.Fatalf("VerifyProof(%d): %v", i, err)
		}
	}

	p, _ := tree.Proof(2)
	p.Leaf = HashChunk([]byte("forged"))
	if err := VerifyProof(p, tree.Root()); !errors.Is(err, ErrMerkleProofFail) {
		t.Fatalf("expected ErrMerkleProofFail, got %v", err)
	}
	if _, err := tree.Proof(8); !errors.Is(err, ErrMerkleIndexRange) {
		t.Fatalf("expected ErrMerkleIndexRange, got %v", err)
	}
	if _, err := BuildMerkleTree(nil); !errors.Is(err, ErrMerkleEmpty) {
		t.Fatalf("expected ErrMerkleEmpty, got %v", err)
	}
}

func TestTableRoundTrip(t *testing.T) {
	in := []packedChunk{
		{Index: 0, Data: []byte("abc"), OrigHash: HashChunk([]byte("abc"))},
		{Index: 1, Compressed: true, Data: []byte{1, 2}, OrigHash: HashChunk([]byte("x"))},
	}
	b := encodeTable(in)
	out, err := decodeTable(b)
	if err != nil {
		t.Fatalf("decodeTable: %v", err)
	}
	if len(out) != 2 || !out[1].Compressed || !bytes.Equal(out[0].Data, []byte("abc")) {
		t.Fatalf("table mismatch: %+v", out)
	}
	if _, err := decodeTable(b[:len(b)-1]); !errors.Is(err, ErrTableCorrupt) {
		t.Fatalf("expected ErrTableCorrupt, got %v", err)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("small"), bytes.Repeat([]byte("bundle me "), 50000)} {
		b, info, err := Pack(data, DefaultConfig())
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		if !IsBundle(b) {
			t.Fatalf("missing magic")
		}
		got, uinfo, err := Unpack(b)
		if err != nil {
			t.Fatalf("Unpack: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("bundle round trip mismatch for %d bytes", len(data))
		}
		if uinfo.Repaired != 0 || uinfo.Chunks != info.Chunks || !bytes.Equal(uinfo.Root, info.Root) {
			t.Fatalf("unexpected info: %+v vs %+v", uinfo, info)
		}
	}
}

func TestBundleRepairsDamage(t *testing.T) {
	data := sample(300000)
	cfg := DefaultConfig()
	cfg.Compression = CompressionNone
	b, _, err := Pack(data, cfg)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	total := cfg.DataShards + cfg.ParityShards
	shardSize := (len(b) - bundleHeaderSize - 32*total) / total
	payload := bundleHeaderSize + 32*total

	// Flip bytes inside two different data shards.
	b[payload+10] ^= 0xff
	b[payload+3*shardSize+77] ^= 0x01

	got, info, err := Unpack(b)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if info.Repaired != 2 {
		t.Fatalf("expected 2 repaired shards, got %d", info.Repaired)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("repaired data mismatch")
	}

	// A third damaged shard exceeds the parity budget.
	b[payload+5*shardSize] ^= 0xff
	if _, _, err := Unpack(b); !errors.Is(err, ErrBundleCorrupt) {
		t.Fatalf("expected ErrBundleCorrupt, got %v", err)
	}
}

func TestUnpackRejects(t *testing.T) {
	if _, _, err := Unpack([]byte("plain message")); !errors.Is(err, ErrNotBundle) {
		t.Fatalf("expected ErrNotBundle, got %v", err)
	}
	b, _, _ := Pack([]byte("header check"), DefaultConfig())
	b[bundleHeaderSize] ^= 0xff // first shard hash
	if _, _, err := Unpack(b); !errors.Is(err, ErrBundleCorrupt) {
		t.Fatalf("expected ErrBundleCorrupt, got %v", err)
	}
	if _, _, err := Unpack(b[:len(b)-1]); !errors.Is(err, ErrBundleCorrupt) {
		t.Fatalf("expected ErrBundleCorrupt for truncated bundle, got %v", err)
	}
}

func TestDecompressLimit(t *testing.T) {
	data := make([]byte, 1<<20)
	z, err := Compress(data, CompressionFast)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := Decompress(z, len(data)-1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if got, err := Decompress(z, len(data)); err != nil || len(got) != len(data) {
		t.Fatalf("Decompress at limit: %d bytes, %v", len(got), err)
	}
}

func TestUnpackRejectsOversized(t *testing.T) {
	// Two highly compressible chunks that together expand past the cap.
	half := make([]byte, MaxUnpackedSize/2+1)
	c := Split(half, len(half))[0]
	pc := packChunk(c, CompressionFast)
	if !pc.Compressed {
		t.Fatal("zeros should compress")
	}
	second := pc
	second.Index = 1

	b, _, err := buildBundle([]packedChunk{pc, second}, DefaultConfig())
	if err != nil {
		t.Fatalf("buildBundle: %v", err)
	}
	if len(b) > 1<<20 {
		t.Fatalf("bundle unexpectedly large: %d bytes", len(b))
	}
	if _, _, err := Unpack(b); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	if _, _, err := Pack(make([]byte, MaxUnpackedSize+1), DefaultConfig()); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Pack: expected ErrTooLarge, got %v", err)
	}
}

func BenchmarkPack(b *testing.B) {
	data := bytes.Repeat([]byte("benchmark payload "), 60000)
	cfg := DefaultConfig()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = Pack(data, cfg)
	}
}
