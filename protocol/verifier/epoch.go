// Package verifier checks the data the transparency log serves: the
// certificate of an epoch, and the proof of an address's state in it.
//
// Both checks fail closed: any error means the data must not be used.
package verifier

import (
	"bytes"
	"context"
	"encoding/hex"

	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// An EpochValidator validates an epoch's certificate and freshness, and
// returns the earliest time the epoch was valid.
type EpochValidator interface {
	VerifyEpoch(ctx context.Context, epoch *protocol.Epoch) (int64, error)
}

// SignedEpochValidator validates epochs signed with the log's pinned
// signing key.
type SignedEpochValidator struct {
	LogKey   sign.PublicKey
	Clock    protocol.Clock
	Policies protocol.Policies
}

var _ EpochValidator = (*SignedEpochValidator)(nil)

// NewSignedEpochValidator returns a validator pinned to logKey.
func NewSignedEpochValidator(logKey sign.PublicKey, clock protocol.Clock,
	policies protocol.Policies) *SignedEpochValidator {
	return &SignedEpochValidator{
		LogKey:   logKey,
		Clock:    clock,
		Policies: policies.WithDefaults(),
	}
}

// VerifyEpoch checks that the chain hash links the epoch to its
// predecessor, that the log signed it, and that its certificate is
// neither in the future nor expired. It returns the certificate time.
func (v *SignedEpochValidator) VerifyEpoch(ctx context.Context, epoch *protocol.Epoch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := verifyChainHash(epoch); err != nil {
		return 0, err
	}
	if !v.LogKey.Verify(epoch.Serialize(), epoch.Signature) {
		return 0, &protocol.VerificationError{
			Code: protocol.CheckBadSignature,
			Msg:  "epoch is not signed by the log",
		}
	}
	now := v.Clock.Now()
	if err := protocol.Check(epoch.CertificateTime <= now,
		protocol.CheckBadTimestamp, "epoch certificate is in the future"); err != nil {
		return 0, err
	}
	expiry := epoch.CertificateTime + v.Policies.EpochValidityPeriod + v.Policies.MaxEpochInterval
	if err := protocol.Check(now <= expiry,
		protocol.CheckStaleEpoch, "epoch certificate has expired"); err != nil {
		return 0, err
	}
	return epoch.CertificateTime, nil
}

// ChainHash computes the chain hash of an epoch from the previous chain
// hash and the tree hash, both hex-encoded.
func ChainHash(previousChainHash, treeHash string) (string, error) {
	prev, err := hex.DecodeString(previousChainHash)
	if err != nil {
		return "", &protocol.VerificationError{Code: protocol.CheckBadEpoch, Msg: "previous chain hash is not hexadecimal"}
	}
	tree, err := hex.DecodeString(treeHash)
	if err != nil {
		return "", &protocol.VerificationError{Code: protocol.CheckBadEpoch, Msg: "tree hash is not hexadecimal"}
	}
	return hex.EncodeToString(crypto.Digest(prev, tree)), nil
}

func verifyChainHash(epoch *protocol.Epoch) error {
	want, err := ChainHash(epoch.PreviousChainHash, epoch.TreeHash)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(epoch.ChainHash)
	if err != nil {
		return &protocol.VerificationError{Code: protocol.CheckBadEpoch, Msg: "chain hash is not hexadecimal"}
	}
	wantRaw, _ := hex.DecodeString(want)
	return protocol.Check(bytes.Equal(got, wantRaw),
		protocol.CheckBadEpoch, "chain hash does not match the tree hash")
}
