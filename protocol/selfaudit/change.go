package selfaudit

import (
	"context"
	"errors"
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// ChangeAuditor checks that a pending address change was published by
// the log at the epoch it was promised for.
type ChangeAuditor struct {
	env *Env
}

// NewChangeAuditor returns a ChangeAuditor.
func NewChangeAuditor(env *Env) *ChangeAuditor {
	return &ChangeAuditor{env: env}
}

// Audit verifies change and removes it from the local store once it was
// found in the log. A change whose epoch was not produced yet is left
// for a later audit, unless it expired, in which case it is removed.
func (c *ChangeAuditor) Audit(ctx context.Context, userID string, change *protocol.AddressChange) error {
	target, err := c.targetSKL(ctx, userID, change)
	if err != nil || target == nil {
		return err
	}

	creation := change.CreationTimestamp
	var targetCreation *int64
	if !target.IsObsolescence() {
		ts, err := c.verifyTargetSignature(ctx, userID, change, target)
		if err != nil {
			return err
		}
		if err := protocol.Check(ts >= creation, protocol.CheckBadTimestamp,
			"target signed key list is older than the recorded change"); err != nil {
			return err
		}
		if err := protocol.Check(creation >= ts-c.env.Policies.MaxEpochInterval, protocol.CheckBadTimestamp,
			"target signed key list is too long after the recorded change"); err != nil {
			return err
		}
		targetCreation = &ts
	}

	minEpochID, err := protocol.CheckNotNil(target.MinEpochID, "target signed key list is not in the log yet")
	if err != nil {
		return err
	}
	if err := protocol.Check(minEpochID <= change.EpochID, protocol.CheckNotIncluded,
		fmt.Sprintf("target signed key list was included at epoch %d, after the expected epoch %d",
			minEpochID, change.EpochID)); err != nil {
		return err
	}
	state, proof, err := c.env.verifyInEpoch(ctx, userID, minEpochID, change.Email, target)
	if err != nil {
		return err
	}
	if err := protocol.Check(state.IsIncluded(), protocol.CheckBadState,
		"inclusion proof must be existent or obsolete, got "+state.Kind.String()); err != nil {
		return err
	}
	if err := protocol.Check(state.NotBefore <= creation+c.env.Policies.MaxEpochInterval,
		protocol.CheckNotIncluded, "inclusion proof is too long after the recorded change"); err != nil {
		return err
	}
	if change.IsObsolete {
		if err := VerifyObsolescenceInclusion(c.env.Policies, proof, creation, targetCreation); err != nil {
			return err
		}
	}
	return c.env.Changes.RemoveAddressChange(ctx, change)
}

// targetSKL returns the SKL the log serves at the change's epoch, or nil
// when that epoch cannot be checked (yet).
func (c *ChangeAuditor) targetSKL(ctx context.Context, userID string,
	change *protocol.AddressChange) (*protocol.SignedKeyList, error) {
	skl, err := c.env.Directory.GetSKLAtEpoch(ctx, userID, change.EpochID, change.Email)
	if err == nil {
		return skl, nil
	}
	if !errors.Is(err, protocol.ErrUnprocessable) {
		return nil, err
	}

	now := c.env.now()
	log := c.env.logger()
	if c.env.Policies.IsExpired(change.CreationTimestamp, now) {
		log.Info("Removing expired address change", "change", change.ChangeID, "epoch", change.EpochID)
		return nil, c.env.Changes.RemoveAddressChange(ctx, change)
	}
	// the expected epoch was not produced yet
	if err := protocol.Check(c.env.Policies.IsFresh(change.CreationTimestamp, now), protocol.CheckNotIncluded,
		"change was not included after the max epoch interval"); err != nil {
		return nil, err
	}
	log.Debug("Address change is not checkable yet", "change", change.ChangeID, "epoch", change.EpochID)
	return nil, nil
}

// verifyTargetSignature verifies the target SKL with the keys recorded
// with the change and the keys the address currently has.
func (c *ChangeAuditor) verifyTargetSignature(ctx context.Context, userID string,
	change *protocol.AddressChange, target *protocol.SignedKeyList) (int64, error) {
	keys := make([]protocol.PublicKey, 0, len(change.PublicKeys))
	for _, k := range change.PublicKeys {
		keys = append(keys, protocol.PublicKey{
			Key:    k,
			Flags:  protocol.KeyFlagNotCompromised,
			Active: true,
		})
	}
	// the address may have been disabled since the change was recorded
	if addr, err := c.env.Directory.GetPublicAddress(ctx, userID, change.Email); err == nil && addr != nil {
		keys = append(keys, addr.Keys...)
	}
	ts, err := c.env.VerifySignedKeyListSignature(keys, target)
	if err != nil {
		return 0, &protocol.UnverifiableSKLError{Err: err}
	}
	return ts, nil
}

// VerifyObsolescenceInclusion checks the proof for a change that marked
// an address obsolete. Either the log proves the obsolescence with a
// token dated around the change, or the address was legitimately
// reactivated shortly after it, in which case targetCreation is the
// creation time of the new SKL.
func VerifyObsolescenceInclusion(p protocol.Policies, proof *protocol.Proof,
	creation int64, targetCreation *int64) error {
	switch proof.Type {
	case protocol.ProofObsolescence:
		token, err := protocol.CheckNotNil(proof.ObsolescenceToken, "obsolescence proof without token")
		if err != nil {
			return err
		}
		ts, err := protocol.ObsolescenceTokenTimestamp(token)
		if err != nil {
			return err
		}
		return protocol.Check(ts >= creation-p.MaxEpochInterval && ts <= creation+p.MaxEpochInterval,
			protocol.CheckBadTimestamp, "obsolescence token is not dated around the change")
	case protocol.ProofExistence:
		ts, err := protocol.CheckNotNil(targetCreation, "reactivated signed key list has no creation time")
		if err != nil {
			return err
		}
		return protocol.Check(ts > creation && ts <= creation+p.MaxEpochInterval,
			protocol.CheckBadTimestamp, "reactivation is not shortly after the obsolescence")
	}
	return &protocol.VerificationError{
		Code: protocol.CheckBadProofType,
		Msg:  "obsolete change proved by a " + proof.Type.String() + " proof",
	}
}
