package protocol

import (
	"encoding/json"
)

// SignedKeyList binds an email address to its public keys at a point
// in time. Data is the serialized key list and Signature the detached,
// timestamped signature over it. Both are nil when the SKL marks the
// address as obsolete.
//
// MinEpochID is the first epoch the SKL was included in, MaxEpochID the
// last epoch in which it was still the latest one. ExpectedMinEpochID
// is the epoch the log promised to include a new SKL in.
type SignedKeyList struct {
	Data               *string `json:"Data"`
	Signature          *string `json:"Signature"`
	MinEpochID         *int    `json:"MinEpochID"`
	MaxEpochID         *int    `json:"MaxEpochID"`
	ExpectedMinEpochID *int    `json:"ExpectedMinEpochID"`
}

// IsObsolescence reports whether skl is an obsolescence marker.
func (skl *SignedKeyList) IsObsolescence() bool {
	return skl.Data == nil && skl.Signature == nil
}

// SameData reports whether two SKLs carry the same serialized key list.
// Two obsolescence markers have the same data.
func (skl *SignedKeyList) SameData(other *SignedKeyList) bool {
	return equalString(skl.Data, other.Data)
}

// SameSignature reports whether two SKLs carry the same signature.
func (skl *SignedKeyList) SameSignature(other *SignedKeyList) bool {
	return equalString(skl.Signature, other.Signature)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// KeyListEntry is one key of a serialized key list.
type KeyListEntry struct {
	Fingerprint        string   `json:"Fingerprint"`
	SHA256Fingerprints []string `json:"SHA256Fingerprints"`
	Flags              int      `json:"Flags"`
	Primary            int      `json:"Primary"`
}

// ParseKeyList decodes the data of a signed key list.
func ParseKeyList(data string) ([]KeyListEntry, error) {
	var entries []KeyListEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, &VerificationError{Code: CheckBadKeyList, Msg: "signed key list data is malformed: " + err.Error()}
	}
	return entries, nil
}
