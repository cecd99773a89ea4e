package selfaudit

import (
	"context"
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// VerifySignedKeyListSignature verifies the signature of skl with the
// verification-capable keys among keys, and returns the time the SKL
// was signed at.
func (env *Env) VerifySignedKeyListSignature(keys []protocol.PublicKey,
	skl *protocol.SignedKeyList) (int64, error) {
	data, err := protocol.CheckNotNil(skl.Data, "signed key list has no data")
	if err != nil {
		return 0, err
	}
	signature, err := protocol.CheckNotNil(skl.Signature, "signed key list has no signature")
	if err != nil {
		return 0, err
	}
	ts, err := env.Crypto.Verify(protocol.VerificationKeys(keys),
		protocol.KTSKLSignatureContext, []byte(data), []byte(signature))
	if err != nil {
		if protocol.IsVerificationError(err) {
			return 0, err
		}
		return 0, &protocol.VerificationError{Code: protocol.CheckBadSignature, Msg: err.Error()}
	}
	return ts, nil
}

// CheckSignedKeyListMatch checks that the SKL lists exactly the keys
// of the address, with the same fingerprints, flags and primary key.
func (env *Env) CheckSignedKeyListMatch(keys []protocol.PublicKey, skl *protocol.SignedKeyList) error {
	data, err := protocol.CheckNotNil(skl.Data, "signed key list has no data")
	if err != nil {
		return err
	}
	entries, err := protocol.ParseKeyList(data)
	if err != nil {
		return err
	}
	if err := protocol.Check(len(entries) == len(keys), protocol.CheckBadKeyList,
		fmt.Sprintf("signed key list has %d keys, the address has %d", len(entries), len(keys))); err != nil {
		return err
	}
	byFingerprint := make(map[string]protocol.KeyListEntry, len(entries))
	for _, e := range entries {
		byFingerprint[e.Fingerprint] = e
	}
	for _, k := range keys {
		fingerprint, err := env.Crypto.Fingerprint(k)
		if err != nil {
			return err
		}
		entry, ok := byFingerprint[fingerprint]
		if !ok {
			return &protocol.VerificationError{
				Code: protocol.CheckBadKeyList,
				Msg:  "key " + fingerprint + " is not in the signed key list",
			}
		}
		sha256Fingerprints, err := env.Crypto.SHA256Fingerprints(k)
		if err != nil {
			return err
		}
		if err := protocol.Check(equalStrings(entry.SHA256Fingerprints, sha256Fingerprints),
			protocol.CheckBadKeyList, "SHA-256 fingerprints of key "+fingerprint+" differ"); err != nil {
			return err
		}
		if err := protocol.Check(entry.Flags == k.Flags,
			protocol.CheckBadKeyList, "flags of key "+fingerprint+" differ"); err != nil {
			return err
		}
		if err := protocol.Check((entry.Primary == 1) == k.Primary,
			protocol.CheckBadKeyList, "primary key differs"); err != nil {
			return err
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CheckAbsenceProof verifies that the latest epoch proves email absent
// from the log, and that the epoch is fresh. It returns the state.
func (env *Env) CheckAbsenceProof(ctx context.Context, userID, email string) (protocol.VerifiedState, error) {
	epoch, err := env.KT.GetLatestEpoch(ctx, userID)
	if err != nil {
		return protocol.VerifiedState{}, err
	}
	proof, err := env.KT.GetProof(ctx, userID, epoch.EpochID, email)
	if err != nil {
		return protocol.VerifiedState{}, err
	}
	state, err := env.Verifier.VerifyProofInEpoch(ctx, email, nil, epoch, proof)
	if err != nil {
		return state, err
	}
	if err := protocol.Check(state.Kind == protocol.StateAbsent, protocol.CheckBadState,
		"address has no signed key list but the log does not prove its absence"); err != nil {
		return state, err
	}
	if err := protocol.Check(env.Policies.IsFresh(state.NotBefore, env.now()),
		protocol.CheckStaleEpoch, "absence proof epoch is too old"); err != nil {
		return state, err
	}
	return state, nil
}
