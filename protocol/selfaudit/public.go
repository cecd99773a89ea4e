package selfaudit

import (
	"context"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// ChangeRecorder records the address changes the log promised to
// include, so that a later self-audit can check they were.
type ChangeRecorder struct {
	env *Env
}

// NewChangeRecorder returns a ChangeRecorder.
func NewChangeRecorder(env *Env) *ChangeRecorder {
	return &ChangeRecorder{env: env}
}

// StoreAddressChange records the SKL observed for a contact's address.
// An obsolete SKL is dated with the current time, any other with its
// signature time. A change already recorded is not stored twice, and a
// change older than a recorded one is rejected.
func (r *ChangeRecorder) StoreAddressChange(ctx context.Context, userID, email string,
	keys []protocol.PublicKey, skl *protocol.SignedKeyList, isObsolete bool) error {
	expected, err := protocol.CheckNotNil(skl.ExpectedMinEpochID, "signed key list has no expected min epoch")
	if err != nil {
		return err
	}
	var creation int64
	if isObsolete {
		creation = r.env.now()
	} else {
		if creation, err = r.env.VerifySignedKeyListSignature(keys, skl); err != nil {
			return err
		}
	}

	stored, err := r.env.Changes.GetAddressChangesForAddress(ctx, userID, email)
	if err != nil {
		return err
	}
	for _, c := range stored {
		if c.CreationTimestamp == creation {
			// already recorded
			return nil
		}
		if err := protocol.Check(c.CreationTimestamp < creation, protocol.CheckBadTimestamp,
			"a more recent change is already recorded for the address"); err != nil {
			return err
		}
	}
	change := protocol.NewAddressChange(userID, email, len(stored), expected, creation,
		verificationKeyStrings(keys), isObsolete)
	return r.env.Changes.StoreAddressChange(ctx, change)
}

// StoreOwnAddressChange records a change the user made to one of their
// own addresses. It replaces the changes recorded before for the address.
func (r *ChangeRecorder) StoreOwnAddressChange(ctx context.Context, userID string,
	addr *protocol.UserAddress, skl *protocol.SignedKeyList) error {
	expected, err := protocol.CheckNotNil(skl.ExpectedMinEpochID, "signed key list has no expected min epoch")
	if err != nil {
		return err
	}
	creation, err := r.env.VerifySignedKeyListSignature(addr.Keys, skl)
	if err != nil {
		return err
	}
	if err := r.env.Changes.RemoveAddressChangesForAddress(ctx, userID, addr.Email); err != nil {
		return err
	}
	change := protocol.NewAddressChange(userID, addr.Email, 0, expected, creation,
		verificationKeyStrings(addr.Keys), false)
	return r.env.Changes.StoreAddressChange(ctx, change)
}

func verificationKeyStrings(keys []protocol.PublicKey) []string {
	var ret []string
	for _, k := range protocol.VerificationKeys(keys) {
		ret = append(ret, k.Key)
	}
	return ret
}

// PublicAddressVerifier verifies the keys served for a contact's
// address before they are used.
type PublicAddressVerifier struct {
	env      *Env
	recorder *ChangeRecorder
}

// NewPublicAddressVerifier returns a PublicAddressVerifier.
func NewPublicAddressVerifier(env *Env, recorder *ChangeRecorder) *PublicAddressVerifier {
	return &PublicAddressVerifier{env: env, recorder: recorder}
}

// Verify checks that the SKL of addr is in the log and matches its keys.
// An SKL the log did not include yet is recorded as a pending change.
func (v *PublicAddressVerifier) Verify(ctx context.Context, userID string,
	addr *protocol.PublicAddress) protocol.PublicKeyVerificationResult {
	state, err := v.verify(ctx, userID, addr)
	if err != nil {
		return protocol.PublicKeyVerificationResult{Err: err}
	}
	return protocol.PublicKeyVerificationResult{State: state}
}

func (v *PublicAddressVerifier) verify(ctx context.Context, userID string,
	addr *protocol.PublicAddress) (protocol.VerifiedState, error) {
	if addr.IgnoreKT != 0 {
		return protocol.Absent(v.env.now()), nil
	}
	skl := addr.SignedKeyList
	if skl == nil {
		return v.env.CheckAbsenceProof(ctx, userID, addr.Email)
	}
	if skl.MaxEpochID == nil {
		if err := v.recorder.StoreAddressChange(ctx, userID, addr.Email, addr.Keys, skl,
			skl.IsObsolescence()); err != nil {
			return protocol.VerifiedState{}, err
		}
		return protocol.NotYetIncluded(), nil
	}
	if !skl.IsObsolescence() {
		if _, err := v.env.VerifySignedKeyListSignature(addr.Keys, skl); err != nil {
			return protocol.VerifiedState{}, err
		}
		if err := v.env.CheckSignedKeyListMatch(addr.Keys, skl); err != nil {
			return protocol.VerifiedState{}, err
		}
	}
	state, _, err := v.env.verifyInEpoch(ctx, userID, *skl.MaxEpochID, addr.Email, skl)
	if err != nil {
		return state, err
	}
	if err := protocol.Check(v.env.Policies.IsFresh(state.NotBefore, v.env.now()),
		protocol.CheckStaleEpoch, "epoch of the contact's signed key list is too old"); err != nil {
		return protocol.VerifiedState{}, err
	}
	return state, nil
}
