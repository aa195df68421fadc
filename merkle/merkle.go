// Bitcoin-style double-SHA-256 Merkle engine. Builds roots and inclusion
// proofs over ordered leaf lists and re-verifies them, with Bitcoin's
// odd-node self-duplication rule. Pure functions, no state.

package merkle

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var (
	ErrorIndexOutOfRange = errors.New("leaf index out of range")
	ErrorNoLeaves        = errors.New("leaf list is empty")
)

// DoubleSha256 is SHA-256(SHA-256(data)). Used both for transaction ids
// and block-header hashing. The result is in internal (non-reversed)
// byte order; see Reverse32 for the display order explorers show.
func DoubleSha256(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(data))
	return out
}

// DoubleSha256Pair hashes the 64-byte concatenation a||b.
func DoubleSha256Pair(a, b [32]byte) [32]byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return DoubleSha256(buf)
}

// Reverse32 flips a 32-byte hash between internal and display byte order.
func Reverse32(h [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = h[31-i]
	}
	return out
}

// ComputeMerkleRoot builds the tree bottom-up. An odd level pairs its
// last node with itself. Returns the zero value for an empty leaf set
// and the single leaf unchanged for a singleton set.
func ComputeMerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}

	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, DoubleSha256Pair(level[i], level[i+1]))
			} else {
				next = append(next, DoubleSha256Pair(level[i], level[i]))
			}
		}
		level = next
	}

	return level[0]
}

// GenerateMerkleProof replays the bottom-up construction and records the
// sibling of the node on the path from index to the root, using
// self-duplication as the sibling when the level is odd and index is the
// last element. Returns the ordered proof and the root.
func GenerateMerkleProof(leaves [][32]byte, index int) ([][32]byte, [32]byte, error) {
	if len(leaves) == 0 {
		return nil, [32]byte{}, ErrorNoLeaves
	}
	if index < 0 || index >= len(leaves) {
		return nil, [32]byte{}, ErrorIndexOutOfRange
	}

	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	proof := make([][32]byte, 0)
	pos := index

	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			// odd level, last node pairs with itself
			sibling = pos
		}
		proof = append(proof, level[sibling])

		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, DoubleSha256Pair(level[i], level[i+1]))
			} else {
				next = append(next, DoubleSha256Pair(level[i], level[i]))
			}
		}
		level = next
		pos /= 2
	}

	return proof, level[0], nil
}

// VerifyMerkleProof folds proof into leaf and compares against root.
// An even index means the current node is the LEFT child at that level;
// this orientation must match GenerateMerkleProof exactly.
func VerifyMerkleProof(root [32]byte, proof [][32]byte, leaf [32]byte, index int) bool {
	if index < 0 {
		return false
	}

	current := leaf
	for _, sibling := range proof {
		if index%2 == 0 {
			current = DoubleSha256Pair(current, sibling)
		} else {
			current = DoubleSha256Pair(sibling, current)
		}
		index /= 2
	}

	return current == root
}
