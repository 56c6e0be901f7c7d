package erasure

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// MaxShards is the largest data+parity count a bundle header can describe.
const MaxShards = 255

var (
	ErrTooManyLost   = errors.New("erasure: too many shards lost, cannot recover")
	ErrInvalidConfig = errors.New("erasure: invalid data/parity configuration")
	ErrShardCount    = errors.New("erasure: wrong number of shards")
)

// Codec wraps a Reed-Solomon encoder for a fixed shard layout.
type Codec struct {
	enc    reedsolomon.Encoder
	data   int
	parity int
}

func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 || parityShards < 0 || dataShards+parityShards > MaxShards {
		return nil, fmt.Errorf("%w: %d+%d", ErrInvalidConfig, dataShards, parityShards)
	}
	c := &Codec{data: dataShards, parity: parityShards}
	if parityShards > 0 {
		enc, err := reedsolomon.New(dataShards, parityShards)
		if err != nil {
			return nil, err
		}
		c.enc = enc
	}
	return c, nil
}

func (c *Codec) DataShards() int   { return c.data }
func (c *Codec) ParityShards() int { return c.parity }
func (c *Codec) TotalShards() int  { return c.data + c.parity }

// ShardSize is the per-shard length for a stream of n bytes.
func (c *Codec) ShardSize(n int) int {
	return max((n+c.data-1)/c.data, 1)
}

// Encode splits stream into equally sized data shards, zero-padding the
// last, and appends the parity shards.
func (c *Codec) Encode(stream []byte) ([][]byte, error) {
	size := c.ShardSize(len(stream))
	buf := make([]byte, size*c.TotalShards())
	copy(buf, stream)

	shards := make([][]byte, c.TotalShards())
	for i := range shards {
		shards[i] = buf[i*size : (i+1)*size : (i+1)*size]
	}
	if c.enc != nil {
		if err := c.enc.Encode(shards); err != nil {
			return nil, err
		}
	}
	return shards, nil
}

// Reconstruct rebuilds nil data shards in place and returns the first n
// bytes of the stream.
func (c *Codec) Reconstruct(shards [][]byte, n int) ([]byte, error) {
	if len(shards) != c.TotalShards() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShardCount, len(shards), c.TotalShards())
	}
	missing := 0
	for _, s := range shards[:c.data] {
		if s == nil {
			missing++
		}
	}
	if missing > 0 {
		if c.enc == nil {
			return nil, ErrTooManyLost
		}
		if err := c.enc.ReconstructData(shards); err != nil {
			if errors.Is(err, reedsolomon.ErrTooFewShards) {
				return nil, ErrTooManyLost
			}
			return nil, err
		}
	}

	out := make([]byte, 0, n)
	for _, s := range shards[:c.data] {
		if len(out) >= n {
			break
		}
		out = append(out, s[:min(len(s), n-len(out))]...)
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: shards hold %d of %d bytes", ErrShardCount, len(out), n)
	}
	return out, nil
}

// Overhead is total/data, e.g. 1.25 for 8+2.
func (c *Codec) Overhead() float64 {
	return float64(c.TotalShards()) / float64(c.data)
}
