package protocol

import (
	"github.com/google/uuid"
)

// AddressChange is a locally persisted record of a key-binding change
// the log promised to include at EpochID. It is created when the user
// edits their own address or observes a change of a contact, and deleted
// once the change was found in the log or has expired.
type AddressChange struct {
	UserID            string   `json:"UserID"`
	ChangeID          string   `json:"ChangeID"`
	Counter           int      `json:"Counter"`
	Email             string   `json:"Email"`
	EpochID           int      `json:"EpochID"`
	CreationTimestamp int64    `json:"CreationTimestamp"`
	PublicKeys        []string `json:"PublicKeys"`
	IsObsolete        bool     `json:"IsObsolete"`
}

// NewAddressChange returns a change with a fresh ChangeID.
func NewAddressChange(userID, email string, counter, epochID int,
	creation int64, publicKeys []string, isObsolete bool) *AddressChange {
	return &AddressChange{
		UserID:            userID,
		ChangeID:          uuid.NewString(),
		Counter:           counter,
		Email:             email,
		EpochID:           epochID,
		CreationTimestamp: creation,
		PublicKeys:        publicKeys,
		IsObsolete:        isObsolete,
	}
}
