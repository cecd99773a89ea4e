package selfaudit

import (
	"context"
	"errors"
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// EpochStore fetches and uploads the self-signed watermarks of the
// user's addresses. The server is not trusted to keep them intact, so
// every fetched watermark is re-verified.
type EpochStore struct {
	env *Env
}

// NewEpochStore returns an EpochStore.
func NewEpochStore(env *Env) *EpochStore {
	return &EpochStore{env: env}
}

// Fetch returns the watermark of addr, or nil if it was never set or its
// signature does not verify with the address's keys. A nil watermark
// forces a new bootstrap.
func (s *EpochStore) Fetch(ctx context.Context, userID string,
	addr *protocol.UserAddress) (*protocol.VerifiedEpochData, error) {
	ve, err := s.env.KT.GetVerifiedEpoch(ctx, userID, addr.AddressID)
	if errors.Is(err, protocol.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch verified epoch: %w", err)
	}
	if _, err := s.env.Crypto.Verify(protocol.VerificationKeys(addr.Keys),
		protocol.KTVerifiedEpochSignatureContext,
		[]byte(ve.Data), []byte(ve.Signature)); err != nil {
		s.env.logger().Warn("Verified epoch signature does not verify, bootstrapping again",
			"address", addr.AddressID, "error", err)
		return nil, nil
	}
	data, err := protocol.ParseVerifiedEpochData(ve.Data)
	if err != nil {
		return nil, &protocol.VerificationError{
			Code: protocol.CheckMissingField,
			Msg:  "signed verified epoch is malformed: " + err.Error(),
		}
	}
	return data, nil
}

// Upload signs the canonical form of data with the address's key and
// stores it on the server.
func (s *EpochStore) Upload(ctx context.Context, userID, addressID string,
	data *protocol.VerifiedEpochData) error {
	serialized, err := data.Serialize()
	if err != nil {
		return err
	}
	signature, err := s.env.Crypto.Sign(addressID, protocol.KTVerifiedEpochSignatureContext, []byte(serialized))
	if err != nil {
		return err
	}
	ve := &protocol.VerifiedEpoch{Data: serialized, Signature: string(signature)}
	if err := s.env.KT.UploadVerifiedEpoch(ctx, userID, addressID, ve); err != nil {
		return fmt.Errorf("upload verified epoch: %w", err)
	}
	return nil
}
