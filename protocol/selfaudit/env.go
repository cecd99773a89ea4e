/*
Package selfaudit implements the self-audit of a key transparency
client: the periodic job that re-verifies a user's own addresses and the
pending changes it recorded against the transparency log.

Address Audit

For each own address the client walks the SKLs the log published since
its last watermark (the verified epoch), checks that revisions increase
one at a time and that SKL creation times never go backwards, and then
signs and uploads the new watermark. A broken invariant fails the whole
pass, so that watermarks are advanced for all addresses or for none.

Change Audit

Each pending address change is checked to have been published by the
log at the epoch it was promised for, within the maximal epoch interval.
Failures are reported per change.

Initial Epoch

When no watermark exists, or the client was offline for so long that the
revision chain cannot be bridged, the audit bootstraps a new one from the
oldest SKL the log still serves.
*/
package selfaudit

import (
	"context"
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/application"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// A ProofVerifier verifies the state of an address in an epoch.
// It is implemented by verifier.ProofVerifier.
type ProofVerifier interface {
	VerifyProofInEpoch(ctx context.Context, email string, skl *protocol.SignedKeyList,
		epoch *protocol.Epoch, proof *protocol.Proof) (protocol.VerifiedState, error)
}

// Env groups the collaborators shared by the audit components.
type Env struct {
	KT        protocol.KeyTransparencyRepository
	Directory protocol.PublicAddressRepository
	Changes   protocol.AddressChangeRepository
	Users     protocol.UserAddressRepository
	Crypto    protocol.CryptoContext
	Clock     protocol.Clock
	Verifier  ProofVerifier
	Policies  protocol.Policies
	Logger    *application.Logger
}

func (env *Env) now() int64 {
	return env.Clock.Now()
}

func (env *Env) logger() *application.Logger {
	if env.Logger == nil {
		return application.NewNopLogger()
	}
	return env.Logger
}

// verifyInEpoch fetches the epoch and the proof for email at epochID
// and verifies them against skl.
func (env *Env) verifyInEpoch(ctx context.Context, userID string, epochID int,
	email string, skl *protocol.SignedKeyList) (protocol.VerifiedState, *protocol.Proof, error) {
	epoch, err := env.KT.GetEpoch(ctx, userID, epochID)
	if err != nil {
		return protocol.VerifiedState{}, nil, err
	}
	if err := protocol.Check(epoch.EpochID == epochID, protocol.CheckBadEpoch,
		fmt.Sprintf("requested epoch %d, got epoch %d", epochID, epoch.EpochID)); err != nil {
		return protocol.VerifiedState{}, nil, err
	}
	proof, err := env.KT.GetProof(ctx, userID, epochID, email)
	if err != nil {
		return protocol.VerifiedState{}, nil, err
	}
	state, err := env.Verifier.VerifyProofInEpoch(ctx, email, skl, epoch, proof)
	if err != nil {
		return protocol.VerifiedState{}, nil, err
	}
	return state, proof, nil
}

// verifyIncludedInEpoch is verifyInEpoch for an SKL that must be in the
// log: the state must be existent or obsolete and the proof must carry
// a revision.
func (env *Env) verifyIncludedInEpoch(ctx context.Context, userID string, epochID int,
	email string, skl *protocol.SignedKeyList) (protocol.VerifiedState, int, error) {
	state, proof, err := env.verifyInEpoch(ctx, userID, epochID, email, skl)
	if err != nil {
		return state, 0, err
	}
	if err := protocol.Check(state.IsIncluded(), protocol.CheckBadState,
		"expected an existent or obsolete signed key list, got "+state.Kind.String()); err != nil {
		return state, 0, err
	}
	revision, err := protocol.CheckNotNil(proof.Revision, "audited epoch has no revision")
	if err != nil {
		return state, 0, err
	}
	return state, revision, nil
}
