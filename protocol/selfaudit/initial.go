package selfaudit

import (
	"context"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// InitialEpochBuilder computes the trusted starting point of an
// address's audit chain.
type InitialEpochBuilder struct {
	env *Env
}

// NewInitialEpochBuilder returns an InitialEpochBuilder.
func NewInitialEpochBuilder(env *Env) *InitialEpochBuilder {
	return &InitialEpochBuilder{env: env}
}

// Build returns the watermark to start auditing newSKLs from. It reuses
// verified when the oldest new SKL continues its revision chain, and
// bootstraps a new one otherwise. It returns nil, without error, when
// no watermark can be bootstrapped yet.
func (b *InitialEpochBuilder) Build(ctx context.Context, userID string, addr *protocol.UserAddress,
	verified *protocol.VerifiedEpochData, newSKLs []*protocol.SignedKeyList) (*protocol.VerifiedEpochData, error) {
	if verified == nil {
		return b.Bootstrap(ctx, userID, addr, newSKLs)
	}
	if len(newSKLs) == 0 || newSKLs[0].MinEpochID == nil {
		return verified, nil
	}
	proof, err := b.env.KT.GetProof(ctx, userID, *newSKLs[0].MinEpochID, addr.Email)
	if err != nil {
		return nil, err
	}
	revision, err := protocol.CheckNotNil(proof.Revision, "proof of the first new signed key list has no revision")
	if err != nil {
		return nil, err
	}
	if err := protocol.Check(revision >= verified.Revision, protocol.CheckBadRevision,
		"first new signed key list has a lower revision than the verified epoch"); err != nil {
		return nil, err
	}
	if revision == verified.Revision || revision == verified.Revision+1 {
		return verified, nil
	}
	// the revision chain cannot be bridged from the old watermark
	return b.Bootstrap(ctx, userID, addr, newSKLs)
}

// Bootstrap builds a watermark from the oldest SKL in newSKLs. If that
// SKL is not in the log yet, it must be the address's active SKL and be
// fresh, and Bootstrap returns nil.
func (b *InitialEpochBuilder) Bootstrap(ctx context.Context, userID string, addr *protocol.UserAddress,
	newSKLs []*protocol.SignedKeyList) (*protocol.VerifiedEpochData, error) {
	if err := protocol.Check(len(newSKLs) > 0, protocol.CheckMissingField,
		"no signed key list to bootstrap from"); err != nil {
		return nil, err
	}
	first := newSKLs[0]
	if first.MinEpochID == nil {
		return nil, b.checkPendingCreation(addr, first)
	}

	minEpochID := *first.MinEpochID
	state, revision, err := b.env.verifyIncludedInEpoch(ctx, userID, minEpochID, addr.Email, first)
	if err != nil {
		return nil, err
	}
	if revision != 0 {
		// The oldest SKL the log serves must be about to expire.
		p := b.env.Policies
		edge := b.env.now() - p.EpochValidityPeriod
		if err := protocol.Check(
			state.NotBefore >= edge-p.MaxEpochInterval && state.NotBefore <= edge+p.MaxEpochInterval,
			protocol.CheckBadTimestamp, "oldest epoch is not at the end of the validity period"); err != nil {
			return nil, err
		}
	}
	return &protocol.VerifiedEpochData{
		EpochID:         minEpochID,
		Revision:        revision,
		SKLCreationTime: 0,
	}, nil
}

func (b *InitialEpochBuilder) checkPendingCreation(addr *protocol.UserAddress, first *protocol.SignedKeyList) error {
	active, err := protocol.CheckNotNil(addr.SignedKeyList, "address has no signed key list")
	if err != nil {
		return err
	}
	if err := protocol.Check(first.SameData(&active) && first.SameSignature(&active),
		protocol.CheckBadKeyList, "pending signed key list differs from the active one"); err != nil {
		return err
	}
	ts, err := b.env.VerifySignedKeyListSignature(addr.Keys, &active)
	if err != nil {
		return err
	}
	return protocol.Check(b.env.Policies.IsFresh(ts, b.env.now()), protocol.CheckNotIncluded,
		"signed key list was not included after the max epoch interval")
}
