package keyring

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

var fixedClock = protocol.ClockFunc(func() int64 { return 1700000000 })

func TestSignVerify(t *testing.T) {
	kr := New(fixedClock)
	kr.Add("address-1", crypto.NewStaticTestSigningKey())
	pk, err := kr.PublicKey("address-1")
	if err != nil {
		t.Fatal(err)
	}

	data := []byte(`{"EpochID":1,"Revision":0,"SKLCreationTime":0}`)
	sig, err := kr.Sign("address-1", protocol.KTVerifiedEpochSignatureContext, data)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := kr.Verify([]protocol.PublicKey{pk}, protocol.KTVerifiedEpochSignatureContext, data, sig)
	if err != nil {
		t.Fatal(err)
	}
	if ts != 1700000000 {
		t.Error("Expect", 1700000000, "got", ts)
	}

	_, err = kr.Verify([]protocol.PublicKey{pk}, protocol.KTSKLSignatureContext, data, sig)
	if !errors.Is(err, protocol.CheckBadSignature) {
		t.Error("Expect", protocol.CheckBadSignature, "got", err)
	}

	// a compromised key may not verify
	compromised := pk
	compromised.Flags = protocol.KeyFlagNotObsolete
	_, err = kr.Verify([]protocol.PublicKey{compromised}, protocol.KTVerifiedEpochSignatureContext, data, sig)
	if !errors.Is(err, protocol.CheckBadSignature) {
		t.Error("Expect", protocol.CheckBadSignature, "got", err)
	}

	if _, err := kr.Sign("unknown", protocol.KTSKLSignatureContext, data); err == nil {
		t.Error("Expect signing with an unknown address to fail")
	}
}

func TestFingerprints(t *testing.T) {
	kr := New(fixedClock)
	kr.Add("address-1", crypto.NewStaticTestSigningKey())
	pk, _ := kr.PublicKey("address-1")
	fp, err := kr.Fingerprint(pk)
	if err != nil {
		t.Fatal(err)
	}
	if len(fp) != 2*crypto.HashSizeByte {
		t.Error("Unexpected fingerprint", fp)
	}
	sha, err := kr.SHA256Fingerprints(pk)
	if err != nil {
		t.Fatal(err)
	}
	if len(sha) != 1 || len(sha[0]) != 64 {
		t.Error("Unexpected SHA-256 fingerprints", sha)
	}
	if _, err := kr.Fingerprint(protocol.PublicKey{Key: "zz"}); err == nil {
		t.Error("Expect a malformed key to fail")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	kr := New(fixedClock)
	kr.Add("address-1", crypto.NewStaticTestSigningKey())
	kr.Add("address-2", crypto.NewStaticTestLogKey())
	if err := kr.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := kr.Save(path); err == nil {
		t.Error("Expect Save to refuse overwriting", path)
	}

	loaded, err := Load(path, fixedClock)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"address-1", "address-2"} {
		want, _ := kr.PublicKey(id)
		got, err := loaded.PublicKey(id)
		if err != nil || got != want {
			t.Error("Expect", want, "got", got, err)
		}
	}
}
