package transfer

import (
	"crypto/sha256"
	"sort"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 64 * 1024

// Chunk is one slice of the message with the SHA-256 of its original bytes.
type Chunk struct {
	Index int
	Data  []byte
	Hash  []byte
}

// Split cuts data into chunks of at most size bytes.
func Split(data []byte, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (len(data)+size-1)/size)
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Data:  data[off:end],
			Hash:  HashChunk(data[off:end]),
		})
	}
	return chunks
}

// Join concatenates chunks in index order.
func Join(chunks []Chunk) []byte {
	sorted := append([]Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	n := 0
	for _, c := range sorted {
		n += len(c.Data)
	}
	out := make([]byte, 0, n)
	for _, c := range sorted {
		out = append(out, c.Data...)
	}
	return out
}

// HashChunk returns SHA-256(data).
func HashChunk(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
