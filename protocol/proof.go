package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ProofType tells which statement a proof makes about an address at
// an epoch.
type ProofType int

const (
	// ProofAbsence proves the address has no SKL in the epoch.
	ProofAbsence ProofType = iota
	// ProofExistence proves the SKL data is the leaf of the address.
	ProofExistence
	// ProofObsolescence proves the address was marked obsolete.
	ProofObsolescence
)

func (t ProofType) String() string {
	switch t {
	case ProofAbsence:
		return "absence"
	case ProofExistence:
		return "existence"
	case ProofObsolescence:
		return "obsolescence"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// MerklePath is the authentication path of an address's leaf: the
// sibling hashes from the root down to the leaf, hex-encoded.
type MerklePath struct {
	Neighbors []string `json:"Neighbors"`
}

// Proof is the server-supplied evidence for one address at one epoch.
// Revision counts the SKL changes of the address and is nil only for
// absence proofs. ObsolescenceToken is set for obsolescence proofs.
type Proof struct {
	Type              ProofType  `json:"Type"`
	Revision          *int       `json:"Revision"`
	ObsolescenceToken *string    `json:"ObsolescenceToken"`
	MerklePath        MerklePath `json:"Proof"`
}

// ObsolescenceTokenTimestamp returns the time embedded in an
// obsolescence token: its first 16 hex digits, read as a big-endian
// count of seconds.
func ObsolescenceTokenTimestamp(token string) (int64, error) {
	if len(token) < 16 {
		return 0, &VerificationError{Code: CheckBadProof, Msg: "obsolescence token is too short"}
	}
	raw, err := hex.DecodeString(token[:16])
	if err != nil {
		return 0, &VerificationError{Code: CheckBadProof, Msg: "obsolescence token is not hexadecimal"}
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// IsHex reports whether s is a non-empty hexadecimal string.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9':
		case 'a' <= c && c <= 'f':
		case 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}
