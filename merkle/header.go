package merkle

import "errors"

// Standard Bitcoin block header layout:
// 4-byte version + 32-byte prev hash + 32-byte merkle root +
// 4-byte time + 4-byte bits + 4-byte nonce.
const (
	HeaderSize       = 80
	merkleRootOffset = 36
)

var ErrorBadHeaderLength = errors.New("block header must be exactly 80 bytes")

// HeaderInfo is the part of a parsed block header the custody core needs:
// the header's own hash and the embedded merkle root, both in internal
// byte order.
type HeaderInfo struct {
	BlockHash  [32]byte
	MerkleRoot [32]byte
}

// ParseHeader hashes a raw 80-byte header and extracts its merkle root.
// Whether the hash matches the chain at a claimed height is for the
// caller to decide against its Bitcoin view.
func ParseHeader(raw []byte) (*HeaderInfo, error) {
	if len(raw) != HeaderSize {
		return nil, ErrorBadHeaderLength
	}

	info := &HeaderInfo{BlockHash: DoubleSha256(raw)}
	copy(info.MerkleRoot[:], raw[merkleRootOffset:merkleRootOffset+32])
	return info, nil
}
