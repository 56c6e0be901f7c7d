package transfer

import (
	"bytes"
	"crypto/sha256"
	"errors"
)

var (
	ErrMerkleEmpty      = errors.New("merkle: no leaves")
	ErrMerkleProofFail  = errors.New("merkle: proof verification failed")
	ErrMerkleIndexRange = errors.New("merkle: leaf index out of range")
)

// MerkleTree commits to a list of leaf hashes. The leaf count is padded to a
// power of two with SHA-256 of the empty string.
type MerkleTree struct {
	width int
	nodes [][]byte // nodes[0] is the root, leaves start at width-1
}

func BuildMerkleTree(leaves [][]byte) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrMerkleEmpty
	}
	width := 1
	for width < len(leaves) {
		width *= 2
	}
	empty := sha256.Sum256(nil)

	nodes := make([][]byte, 2*width-1)
	for i := 0; i < width; i++ {
		if i < len(leaves) {
			nodes[width-1+i] = leaves[i]
		} else {
			nodes[width-1+i] = empty[:]
		}
	}
	for i := width - 2; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}
	return &MerkleTree{width: width, nodes: nodes}, nil
}

func (m *MerkleTree) Root() []byte { return m.nodes[0] }

// Proof is the sibling path from a leaf to the root.
type Proof struct {
	Index    int
	Leaf     []byte
	Siblings [][]byte
}

func (m *MerkleTree) Proof(i int) (Proof, error) {
	if i < 0 || i >= m.width {
		return Proof{}, ErrMerkleIndexRange
	}
	p := Proof{Index: i, Leaf: m.nodes[m.width-1+i]}
	for idx := m.width - 1 + i; idx > 0; idx = (idx - 1) / 2 {
		sib := idx + 1
		if idx%2 == 0 {
			sib = idx - 1
		}
		p.Siblings = append(p.Siblings, m.nodes[sib])
	}
	return p, nil
}

// VerifyProof recomputes the root from p and compares it with root.
func VerifyProof(p Proof, root []byte) error {
	cur := p.Leaf
	pos := p.Index
	for _, sib := range p.Siblings {
		if pos%2 == 0 {
			cur = hashPair(cur, sib)
		} else {
			cur = hashPair(sib, cur)
		}
		pos /= 2
	}
	if !bytes.Equal(cur, root) {
		return ErrMerkleProofFail
	}
	return nil
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
