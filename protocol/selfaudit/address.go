package selfaudit

import (
	"context"
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// AddressAuditor audits one of the user's own addresses and advances
// its watermark.
type AddressAuditor struct {
	env     *Env
	store   *EpochStore
	builder *InitialEpochBuilder
}

// NewAddressAuditor returns an AddressAuditor.
func NewAddressAuditor(env *Env, store *EpochStore, builder *InitialEpochBuilder) *AddressAuditor {
	return &AddressAuditor{env: env, store: store, builder: builder}
}

// Audit audits addr and uploads its new watermark. Expected
// non-compromise states are returned as warnings. On failure it returns
// a failure result carrying the error, and the error itself.
func (a *AddressAuditor) Audit(ctx context.Context, userID string,
	addr *protocol.UserAddress) (protocol.UserAddressAuditResult, error) {
	result, watermark, err := a.verify(ctx, userID, addr)
	if err == nil && watermark != nil {
		err = a.store.Upload(ctx, userID, addr.AddressID, watermark)
	}
	if err != nil {
		err = &addressError{addressID: addr.AddressID, err: err}
		return protocol.AuditFailure(err), err
	}
	return result, nil
}

// verify audits addr without uploading anything, and returns the
// watermark to upload, if it moved.
func (a *AddressAuditor) verify(ctx context.Context, userID string,
	addr *protocol.UserAddress) (protocol.UserAddressAuditResult, *protocol.VerifiedEpochData, error) {
	if !addr.Enabled {
		return protocol.AuditWarning(protocol.WarningDisabled), nil, nil
	}
	active := addr.SignedKeyList
	if active == nil {
		if _, err := a.env.CheckAbsenceProof(ctx, userID, addr.Email); err != nil {
			return protocol.UserAddressAuditResult{}, nil, err
		}
		// the address was never published, nothing to audit
		return protocol.AuditWarning(protocol.WarningAddressNotInKT), nil, nil
	}
	if active.IsObsolescence() {
		if err := a.verifyObsolescence(ctx, userID, addr); err != nil {
			return protocol.UserAddressAuditResult{}, nil, err
		}
		return protocol.AuditWarning(protocol.WarningObsolescence), nil, nil
	}

	verified, err := a.store.Fetch(ctx, userID, addr)
	if err != nil {
		return protocol.UserAddressAuditResult{}, nil, err
	}
	after := 0
	if verified != nil {
		after = verified.EpochID
	}
	newSKLs, err := a.env.Directory.GetSKLsAfterEpoch(ctx, userID, after, addr.Email)
	if err != nil {
		return protocol.UserAddressAuditResult{}, nil, err
	}
	initial, err := a.builder.Build(ctx, userID, addr, verified, newSKLs)
	if err != nil {
		return protocol.UserAddressAuditResult{}, nil, err
	}
	if initial == nil {
		return protocol.AuditWarning(protocol.WarningCreationTooRecent), nil, nil
	}

	var watermark *protocol.VerifiedEpochData
	if len(newSKLs) == 0 {
		watermark, err = a.auditNoChanges(ctx, userID, addr, initial)
	} else {
		watermark, err = a.auditChanges(ctx, userID, addr, initial, newSKLs)
	}
	if err != nil {
		return protocol.UserAddressAuditResult{}, nil, err
	}
	return protocol.AuditSuccess(), watermark, nil
}

// verifyObsolescence checks that the log proves addr obsolete in a fresh
// epoch at the max epoch of its marker, and that the proof continues the
// revision chain of the watermark.
func (a *AddressAuditor) verifyObsolescence(ctx context.Context, userID string,
	addr *protocol.UserAddress) error {
	marker := addr.SignedKeyList
	maxEpochID, err := protocol.CheckNotNil(marker.MaxEpochID, "obsolescence marker is not in the log")
	if err != nil {
		return err
	}
	state, revision, err := a.env.verifyIncludedInEpoch(ctx, userID, maxEpochID, addr.Email, marker)
	if err != nil {
		return err
	}
	if err := protocol.Check(state.Kind == protocol.StateObsolete, protocol.CheckBadProofType,
		"expected an obsolescence proof, got "+state.Kind.String()); err != nil {
		return err
	}
	if err := protocol.Check(a.env.Policies.IsFresh(state.NotBefore, a.env.now()),
		protocol.CheckStaleEpoch, "obsolescence proof epoch is too old"); err != nil {
		return err
	}
	verified, err := a.store.Fetch(ctx, userID, addr)
	if err != nil || verified == nil {
		return err
	}
	if err := protocol.Check(maxEpochID >= verified.EpochID, protocol.CheckBadEpoch,
		"obsolescence proof is older than the verified epoch"); err != nil {
		return err
	}
	return protocol.Check(revision == verified.Revision || revision == verified.Revision+1,
		protocol.CheckBadRevision, fmt.Sprintf("obsolescence revision %d does not follow %d",
			revision, verified.Revision))
}

// auditNoChanges re-verifies the active SKL at its max epoch and moves
// the watermark to that epoch if it is newer.
func (a *AddressAuditor) auditNoChanges(ctx context.Context, userID string,
	addr *protocol.UserAddress, initial *protocol.VerifiedEpochData) (*protocol.VerifiedEpochData, error) {
	active := addr.SignedKeyList
	maxEpochID, err := protocol.CheckNotNil(active.MaxEpochID, "active signed key list has no max epoch")
	if err != nil {
		return nil, err
	}
	state, revision, err := a.env.verifyIncludedInEpoch(ctx, userID, maxEpochID, addr.Email, active)
	if err != nil {
		return nil, err
	}
	if err := protocol.Check(a.env.Policies.IsFresh(state.NotBefore, a.env.now()),
		protocol.CheckStaleEpoch, "max epoch of the active signed key list is too old"); err != nil {
		return nil, err
	}
	if err := protocol.Check(revision == initial.Revision, protocol.CheckBadRevision,
		"revision changed but no signed key list was published"); err != nil {
		return nil, err
	}
	if maxEpochID <= initial.EpochID {
		return nil, nil
	}
	return &protocol.VerifiedEpochData{
		EpochID:         maxEpochID,
		Revision:        initial.Revision,
		SKLCreationTime: initial.SKLCreationTime,
	}, nil
}

// auditChanges walks newSKLs, oldest first, from the initial watermark.
// The new watermark is only returned once the whole chain verified.
func (a *AddressAuditor) auditChanges(ctx context.Context, userID string, addr *protocol.UserAddress,
	initial *protocol.VerifiedEpochData, newSKLs []*protocol.SignedKeyList) (*protocol.VerifiedEpochData, error) {
	previous := *initial
	previousCreation := initial.SKLCreationTime
	var certificateTime *int64
	now := a.env.now()

	for i, skl := range newSKLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		isFirst, isLast := i == 0, i == len(newSKLs)-1
		if !isLast {
			if _, err := protocol.CheckNotNil(skl.MaxEpochID,
				"signed key list without max epoch was not the last one"); err != nil {
				return nil, err
			}
		}

		var timestamp *int64
		if skl.Data != nil {
			ts, err := a.env.VerifySignedKeyListSignature(addr.Keys, skl)
			if err != nil {
				return nil, err
			}
			if err := protocol.Check(ts >= previousCreation, protocol.CheckBadTimestamp,
				"signed key list creation time must increase monotonically"); err != nil {
				return nil, err
			}
			previousCreation = ts
			timestamp = &ts
		}

		if skl.MaxEpochID != nil {
			state, revision, err := a.env.verifyIncludedInEpoch(ctx, userID, *skl.MaxEpochID, addr.Email, skl)
			if err != nil {
				return nil, err
			}
			consistent := revision == previous.Revision+1
			if isFirst {
				consistent = consistent || revision == previous.Revision
			}
			if err := protocol.Check(consistent, protocol.CheckBadRevision,
				fmt.Sprintf("revision chain is inconsistent: %d after %d", revision, previous.Revision)); err != nil {
				return nil, err
			}
			creation := previous.SKLCreationTime
			if timestamp != nil {
				creation = *timestamp
			}
			previous = protocol.VerifiedEpochData{
				EpochID:         *skl.MaxEpochID,
				Revision:        revision,
				SKLCreationTime: creation,
			}
			notBefore := state.NotBefore
			certificateTime = &notBefore
			continue
		}

		// the last SKL is not included yet
		ts, err := protocol.CheckNotNil(timestamp, "last signed key list is an obsolescence marker")
		if err != nil {
			return nil, err
		}
		if err := protocol.Check(a.env.Policies.IsFresh(ts, now), protocol.CheckNotIncluded,
			"last signed key list was not included after the max epoch interval"); err != nil {
			return nil, err
		}
	}

	if err := protocol.Check(addr.SignedKeyList.SameData(newSKLs[len(newSKLs)-1]), protocol.CheckBadKeyList,
		"last signed key list differs from the active one"); err != nil {
		return nil, err
	}
	if err := a.env.CheckSignedKeyListMatch(addr.Keys, addr.SignedKeyList); err != nil {
		return nil, err
	}
	if certificateTime == nil {
		// nothing was included since the watermark
		return nil, nil
	}
	if err := protocol.Check(a.env.Policies.IsFresh(*certificateTime, now), protocol.CheckStaleEpoch,
		"certificate of the new verified epoch is too old"); err != nil {
		return nil, err
	}
	return &previous, nil
}
