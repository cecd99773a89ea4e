package verifier

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

const now = int64(1700000000)

var clock = protocol.ClockFunc(func() int64 { return now })

func newSignedEpoch(t *testing.T, epochID int, certificateTime int64) *protocol.Epoch {
	sk := crypto.NewStaticTestLogKey()
	prev := hex.EncodeToString(crypto.Digest([]byte("previous")))
	tree := hex.EncodeToString(crypto.Digest([]byte("tree"), []byte{byte(epochID)}))
	chain, err := ChainHash(prev, tree)
	if err != nil {
		t.Fatal(err)
	}
	e := &protocol.Epoch{
		EpochID:           epochID,
		TreeHash:          tree,
		PreviousChainHash: prev,
		ChainHash:         chain,
		CertificateTime:   certificateTime,
	}
	e.Signature = sk.Sign(e.Serialize())
	return e
}

func newValidator() *SignedEpochValidator {
	pk, _ := crypto.NewStaticTestLogKey().Public()
	return NewSignedEpochValidator(pk, clock, protocol.DefaultPolicies())
}

func TestVerifyEpoch(t *testing.T) {
	v := newValidator()
	e := newSignedEpoch(t, 7, now-100)
	notBefore, err := v.VerifyEpoch(context.Background(), e)
	if err != nil {
		t.Fatal(err)
	}
	if notBefore != now-100 {
		t.Error("Expect", now-100, "got", notBefore)
	}
}

func TestVerifyEpochBadSignature(t *testing.T) {
	v := newValidator()
	e := newSignedEpoch(t, 7, now-100)
	e.Signature[0]++
	if _, err := v.VerifyEpoch(context.Background(), e); !errors.Is(err, protocol.CheckBadSignature) {
		t.Error("Expect", protocol.CheckBadSignature, "got", err)
	}
}

func TestVerifyEpochBadChainHash(t *testing.T) {
	v := newValidator()
	e := newSignedEpoch(t, 7, now-100)
	e.ChainHash = strings.Repeat("00", crypto.HashSizeByte)
	e.Signature = crypto.NewStaticTestLogKey().Sign(e.Serialize())
	if _, err := v.VerifyEpoch(context.Background(), e); !errors.Is(err, protocol.CheckBadEpoch) {
		t.Error("Expect", protocol.CheckBadEpoch, "got", err)
	}
}

func TestVerifyEpochTimestamps(t *testing.T) {
	v := newValidator()
	future := newSignedEpoch(t, 8, now+1)
	if _, err := v.VerifyEpoch(context.Background(), future); !errors.Is(err, protocol.CheckBadTimestamp) {
		t.Error("Expect", protocol.CheckBadTimestamp, "got", err)
	}
	p := protocol.DefaultPolicies()
	expired := newSignedEpoch(t, 1, now-p.EpochValidityPeriod-p.MaxEpochInterval-1)
	if _, err := v.VerifyEpoch(context.Background(), expired); !errors.Is(err, protocol.CheckStaleEpoch) {
		t.Error("Expect", protocol.CheckStaleEpoch, "got", err)
	}
	lastValid := newSignedEpoch(t, 2, now-p.EpochValidityPeriod-p.MaxEpochInterval)
	if _, err := v.VerifyEpoch(context.Background(), lastValid); err != nil {
		t.Error("Expect", nil, "got", err)
	}
}

type fixedEpochValidator struct {
	notBefore int64
	err       error
}

func (v fixedEpochValidator) VerifyEpoch(context.Context, *protocol.Epoch) (int64, error) {
	return v.notBefore, v.err
}

type recordingPaths struct {
	email string
	value *string
	err   error
}

func (r *recordingPaths) VerifyPath(email string, value *string, _ *protocol.Proof, _ string) error {
	r.email = email
	r.value = value
	return r.err
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func sklWithData(d string) *protocol.SignedKeyList {
	return &protocol.SignedKeyList{Data: strPtr(d), Signature: strPtr("sig")}
}

func TestVerifyProofInEpochStates(t *testing.T) {
	epoch := &protocol.Epoch{EpochID: 3, TreeHash: "00"}
	for _, tc := range []struct {
		name  string
		skl   *protocol.SignedKeyList
		proof *protocol.Proof
		want  protocol.StateKind
		value *string
	}{
		{"absent", nil, &protocol.Proof{Type: protocol.ProofAbsence}, protocol.StateAbsent, nil},
		{"existent", sklWithData("skl.data"),
			&protocol.Proof{Type: protocol.ProofExistence, Revision: intPtr(0)},
			protocol.StateExistent, strPtr("skl.data")},
		{"obsolete", &protocol.SignedKeyList{},
			&protocol.Proof{Type: protocol.ProofObsolescence, Revision: intPtr(2), ObsolescenceToken: strPtr("deadbeef")},
			protocol.StateObsolete, strPtr("deadbeef")},
	} {
		paths := &recordingPaths{}
		pv := NewProofVerifier(fixedEpochValidator{notBefore: 42}, paths)
		state, err := pv.VerifyProofInEpoch(context.Background(), "kt.test@proton.black", tc.skl, epoch, tc.proof)
		if err != nil {
			t.Fatal(tc.name, err)
		}
		if state.Kind != tc.want || state.NotBefore != 42 {
			t.Error(tc.name, "Expect", tc.want, "got", state)
		}
		if paths.email != "kttest@proton.black" {
			t.Error(tc.name, "Expect normalized email, got", paths.email)
		}
		if (paths.value == nil) != (tc.value == nil) || (tc.value != nil && *paths.value != *tc.value) {
			t.Error(tc.name, "Unexpected value passed to the path verifier")
		}
	}
}

func TestVerifyProofInEpochInconsistentTypes(t *testing.T) {
	epoch := &protocol.Epoch{EpochID: 3, TreeHash: "00"}
	pv := NewProofVerifier(fixedEpochValidator{}, &recordingPaths{})
	for _, tc := range []struct {
		name  string
		skl   *protocol.SignedKeyList
		proof *protocol.Proof
		code  protocol.ErrorCode
	}{
		{"absence with skl", sklWithData("d"), &protocol.Proof{Type: protocol.ProofAbsence}, protocol.CheckBadProofType},
		{"existence without data", &protocol.SignedKeyList{},
			&protocol.Proof{Type: protocol.ProofExistence, Revision: intPtr(1)}, protocol.CheckBadProofType},
		{"existence without skl", nil,
			&protocol.Proof{Type: protocol.ProofExistence, Revision: intPtr(1)}, protocol.CheckBadProofType},
		{"existence without revision", sklWithData("d"),
			&protocol.Proof{Type: protocol.ProofExistence}, protocol.CheckMissingField},
		{"obsolescence without token", nil,
			&protocol.Proof{Type: protocol.ProofObsolescence, Revision: intPtr(1)}, protocol.CheckMissingField},
		{"obsolescence with non-hex token", nil,
			&protocol.Proof{Type: protocol.ProofObsolescence, Revision: intPtr(1), ObsolescenceToken: strPtr("NON-HEXA-TOKEN;")},
			protocol.CheckBadProof},
		{"obsolescence without revision", nil,
			&protocol.Proof{Type: protocol.ProofObsolescence, ObsolescenceToken: strPtr("deadbeef")}, protocol.CheckMissingField},
		{"unknown type", nil, &protocol.Proof{Type: protocol.ProofType(9)}, protocol.CheckBadProofType},
	} {
		_, err := pv.VerifyProofInEpoch(context.Background(), "a@b.c", tc.skl, epoch, tc.proof)
		if !errors.Is(err, tc.code) {
			t.Error(tc.name, "Expect", tc.code, "got", err)
		}
	}
}

func TestVerifyProofInEpochFailures(t *testing.T) {
	epoch := &protocol.Epoch{EpochID: 3, TreeHash: "00"}
	proof := &protocol.Proof{Type: protocol.ProofAbsence}

	pv := NewProofVerifier(fixedEpochValidator{err: protocol.Check(false, protocol.CheckStaleEpoch, "old")}, &recordingPaths{})
	if _, err := pv.VerifyProofInEpoch(context.Background(), "a@b.c", nil, epoch, proof); !errors.Is(err, protocol.CheckStaleEpoch) {
		t.Error("Expect", protocol.CheckStaleEpoch, "got", err)
	}

	pv = NewProofVerifier(fixedEpochValidator{}, &recordingPaths{err: errors.New("root mismatch")})
	_, err := pv.VerifyProofInEpoch(context.Background(), "a@b.c", nil, epoch, proof)
	if !errors.Is(err, protocol.CheckBadProof) {
		t.Error("Expect", protocol.CheckBadProof, "got", err)
	}
}
