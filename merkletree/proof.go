package merkletree

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/utils"
)

const (
	// EmptyBranchIdentifier is the domain separation prefix for
	// empty node hashes.
	EmptyBranchIdentifier = 'E'

	// LeafIdentifier is the domain separation prefix for user
	// leaf node hashes.
	LeafIdentifier = 'L'

	maxLevel = crypto.HashSizeByte * 8
)

var (
	// ErrInvalidPath indicates a malformed authentication path.
	ErrInvalidPath = errors.New("[merkletree] Invalid authentication path")
	// ErrRootMismatch indicates the path does not hash up to the
	// expected root.
	ErrRootMismatch = errors.New("[merkletree] Authentication path does not match the tree hash")
)

// LookupIndex returns the index of an email in the tree. The email
// must already be normalized.
func LookupIndex(email string) []byte {
	return crypto.Digest([]byte(email))
}

func leafHash(index []byte, level uint32, value *string, revision *int) []byte {
	if value == nil {
		// empty branch
		prefix := utils.ToBytes(utils.ToBits(index)[:level])
		return crypto.Digest(
			[]byte{EmptyBranchIdentifier}, // K_empty
			prefix,                        // i
			utils.UInt32ToBytes(level),    // l
		)
	}
	rev := int64(0)
	if revision != nil {
		rev = int64(*revision)
	}
	return crypto.Digest(
		[]byte{LeafIdentifier},        // K_leaf
		index,                         // i
		utils.UInt32ToBytes(level),    // l
		crypto.Digest([]byte(*value)), // h(value)
		utils.LongToBytes(rev),        // revision
	)
}

// RootHash recomputes the tree's root from the authentication path in
// proof, for the leaf of email holding value.
func RootHash(email string, value *string, proof *protocol.Proof) ([]byte, error) {
	neighbors := proof.MerklePath.Neighbors
	if len(neighbors) > maxLevel {
		return nil, ErrInvalidPath
	}
	pruned := make([][]byte, len(neighbors))
	for i, n := range neighbors {
		raw, err := hex.DecodeString(n)
		if err != nil || len(raw) != crypto.HashSizeByte {
			return nil, ErrInvalidPath
		}
		pruned[i] = raw
	}

	index := LookupIndex(email)
	level := uint32(len(pruned))
	hash := leafHash(index, level, value, proof.Revision)
	indexBits := utils.ToBits(index)
	depth := level
	for depth > 0 {
		depth -= 1
		if indexBits[depth] { // right child
			hash = crypto.Digest(pruned[depth], hash)
		} else {
			hash = crypto.Digest(hash, pruned[depth])
		}
	}
	return hash, nil
}

// PathVerifier checks authentication paths against a tree hash.
type PathVerifier struct{}

// NewPathVerifier returns a PathVerifier.
func NewPathVerifier() *PathVerifier {
	return &PathVerifier{}
}

// VerifyPath recomputes the root from the path and compares it to
// treeHash, which is taken from the epoch the proof was issued for.
func (v *PathVerifier) VerifyPath(email string, value *string, proof *protocol.Proof, treeHash string) error {
	want, err := hex.DecodeString(treeHash)
	if err != nil {
		return ErrInvalidPath
	}
	got, err := RootHash(email, value, proof)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return ErrRootMismatch
	}
	return nil
}
