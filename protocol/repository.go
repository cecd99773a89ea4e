package protocol

import "context"

// KeyTransparencyRepository is the client's view of the transparency
// log. Requests for data the log has not produced yet fail with an
// error matching ErrUnprocessable; GetVerifiedEpoch fails with an error
// matching ErrNotFound when no watermark was ever uploaded.
type KeyTransparencyRepository interface {
	GetEpoch(ctx context.Context, userID string, epochID int) (*Epoch, error)
	GetLatestEpoch(ctx context.Context, userID string) (*Epoch, error)
	GetProof(ctx context.Context, userID string, epochID int, email string) (*Proof, error)
	GetVerifiedEpoch(ctx context.Context, userID, addressID string) (*VerifiedEpoch, error)
	UploadVerifiedEpoch(ctx context.Context, userID, addressID string, ve *VerifiedEpoch) error
}

// PublicAddressRepository is the server's directory of addresses and
// of their SKL history.
type PublicAddressRepository interface {
	// GetSKLsAfterEpoch returns, oldest first, the SKLs of email that
	// were published after epochID, including a pending one.
	GetSKLsAfterEpoch(ctx context.Context, userID string, epochID int, email string) ([]*SignedKeyList, error)
	// GetSKLAtEpoch returns the SKL of email that was the latest one
	// at epochID.
	GetSKLAtEpoch(ctx context.Context, userID string, epochID int, email string) (*SignedKeyList, error)
	GetPublicAddress(ctx context.Context, userID, email string) (*PublicAddress, error)
}

// AddressChangeRepository stores the pending address changes locally.
type AddressChangeRepository interface {
	GetAllAddressChanges(ctx context.Context, userID string) ([]*AddressChange, error)
	GetAddressChangesForAddress(ctx context.Context, userID, email string) ([]*AddressChange, error)
	StoreAddressChange(ctx context.Context, change *AddressChange) error
	RemoveAddressChange(ctx context.Context, change *AddressChange) error
	RemoveAddressChangesForAddress(ctx context.Context, userID, email string) error
}

// UserAddressRepository supplies the user's own addresses.
type UserAddressRepository interface {
	GetAddresses(ctx context.Context, userID string) ([]*UserAddress, error)
	// IsKeyTransparencyEnabled reports whether the account is covered
	// by the log.
	IsKeyTransparencyEnabled(ctx context.Context, userID string) (bool, error)
}

// Clock returns the current trusted time, in Unix seconds.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// CryptoContext gives access to the user's keys. Signatures made and
// verified through it are separated by a context string and carry the
// time they were made at.
type CryptoContext interface {
	// Sign signs data with the primary key of the address.
	Sign(addressID, context string, data []byte) ([]byte, error)
	// Verify checks signature over data under context with any of keys
	// and returns the signature time.
	Verify(keys []PublicKey, context string, data, signature []byte) (int64, error)
	// Fingerprint and SHA256Fingerprints identify a key inside an SKL.
	Fingerprint(key PublicKey) (string, error)
	SHA256Fingerprints(key PublicKey) ([]string, error)
}
