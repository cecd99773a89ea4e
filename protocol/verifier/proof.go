package verifier

import (
	"context"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// A MerklePathVerifier checks that value (SKL data, an obsolescence
// token, or nil for absence) hashes up to rootHash for the normalized
// email along proof's path.
type MerklePathVerifier interface {
	VerifyPath(email string, value *string, proof *protocol.Proof, rootHash string) error
}

// MerklePathVerifierFunc adapts a function to MerklePathVerifier.
type MerklePathVerifierFunc func(email string, value *string, proof *protocol.Proof, rootHash string) error

func (f MerklePathVerifierFunc) VerifyPath(email string, value *string, proof *protocol.Proof, rootHash string) error {
	return f(email, value, proof, rootHash)
}

// ProofVerifier verifies the state of an address in an epoch.
type ProofVerifier struct {
	epochs EpochValidator
	paths  MerklePathVerifier
}

// NewProofVerifier returns a ProofVerifier that validates epochs with
// epochs and delegates Merkle path checks to paths.
func NewProofVerifier(epochs EpochValidator, paths MerklePathVerifier) *ProofVerifier {
	return &ProofVerifier{epochs: epochs, paths: paths}
}

// VerifyProofInEpoch validates epoch, checks that proof is consistent
// with skl (nil when the address has no SKL), and verifies the proof's
// path against the epoch's tree hash.
func (pv *ProofVerifier) VerifyProofInEpoch(ctx context.Context, email string,
	skl *protocol.SignedKeyList, epoch *protocol.Epoch,
	proof *protocol.Proof) (protocol.VerifiedState, error) {
	notBefore, err := pv.epochs.VerifyEpoch(ctx, epoch)
	if err != nil {
		return protocol.VerifiedState{}, err
	}

	var value *string
	var state protocol.VerifiedState
	switch proof.Type {
	case protocol.ProofExistence:
		if skl == nil || skl.Data == nil {
			return state, &protocol.VerificationError{
				Code: protocol.CheckBadProofType,
				Msg:  "existence proof for a signed key list without data",
			}
		}
		value = skl.Data
		state = protocol.Existent(notBefore)
	case protocol.ProofAbsence:
		if skl != nil {
			return state, &protocol.VerificationError{
				Code: protocol.CheckBadProofType,
				Msg:  "absence proof for an address with a signed key list",
			}
		}
		state = protocol.Absent(notBefore)
	case protocol.ProofObsolescence:
		token, err := protocol.CheckNotNil(proof.ObsolescenceToken, "obsolescence proof without token")
		if err != nil {
			return state, err
		}
		if !protocol.IsHex(token) {
			return state, &protocol.VerificationError{
				Code: protocol.CheckBadProof,
				Msg:  "obsolescence token is not hexadecimal",
			}
		}
		value = proof.ObsolescenceToken
		state = protocol.Obsolete(notBefore)
	default:
		return state, &protocol.VerificationError{
			Code: protocol.CheckBadProofType,
			Msg:  "unknown proof type " + proof.Type.String(),
		}
	}

	if proof.Type != protocol.ProofAbsence {
		if _, err := protocol.CheckNotNil(proof.Revision, "proof without revision"); err != nil {
			return protocol.VerifiedState{}, err
		}
	}

	if err := pv.paths.VerifyPath(protocol.NormalizeEmail(email), value, proof, epoch.TreeHash); err != nil {
		if protocol.IsVerificationError(err) {
			return protocol.VerifiedState{}, err
		}
		return protocol.VerifiedState{}, &protocol.VerificationError{
			Code: protocol.CheckBadProof,
			Msg:  err.Error(),
		}
	}
	return state, nil
}
