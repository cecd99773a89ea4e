package protocol

// Flags of a public key.
const (
	// KeyFlagNotCompromised is set when the key may still verify
	// signatures.
	KeyFlagNotCompromised = 1 << iota
	// KeyFlagNotObsolete is set when the key may still encrypt.
	KeyFlagNotObsolete
)

// PublicKey is one key of an address. Key is the hex-encoded public key.
type PublicKey struct {
	Key     string `json:"PublicKey"`
	Flags   int    `json:"Flags"`
	Primary bool   `json:"Primary"`
	Active  bool   `json:"Active"`
}

// CanVerify reports whether signatures may be verified with k.
func (k PublicKey) CanVerify() bool {
	return k.Active && k.Flags&KeyFlagNotCompromised != 0
}

// VerificationKeys filters keys to those that may verify signatures.
func VerificationKeys(keys []PublicKey) []PublicKey {
	var ret []PublicKey
	for _, k := range keys {
		if k.CanVerify() {
			ret = append(ret, k)
		}
	}
	return ret
}

// UserAddress is one of the user's own addresses, with the SKL the
// server currently serves for it.
type UserAddress struct {
	AddressID     string         `json:"ID"`
	Email         string         `json:"Email"`
	Enabled       bool           `json:"Enabled"`
	Keys          []PublicKey    `json:"Keys"`
	SignedKeyList *SignedKeyList `json:"SignedKeyList"`
}

// PublicAddress is the server's view of another identity's address.
// IgnoreKT is non-zero when the address is not covered by the log.
type PublicAddress struct {
	Email         string         `json:"Email"`
	Keys          []PublicKey    `json:"Keys"`
	SignedKeyList *SignedKeyList `json:"SignedKeyList"`
	IgnoreKT      int            `json:"IgnoreKT"`
}
