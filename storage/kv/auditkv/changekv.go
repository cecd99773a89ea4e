// Package auditkv persists the local state of the self-audit, the
// pending address changes and the outcome of the last pass, in a kv.DB.
package auditkv

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv"
)

// ChangeStore stores address changes under
// ChangeIdentifier | userID | email | changeID.
type ChangeStore struct {
	db kv.DB
	// serializes read-modify-write sequences
	mu sync.Mutex
}

var _ protocol.AddressChangeRepository = (*ChangeStore)(nil)

// NewChangeStore returns a ChangeStore on top of db.
func NewChangeStore(db kv.DB) *ChangeStore {
	return &ChangeStore{db: db}
}

func changeKey(c *protocol.AddressChange) []byte {
	return kv.Key(ChangeIdentifier, c.UserID, c.Email, c.ChangeID)
}

// GetAllAddressChanges returns the changes of userID, ordered by
// address and counter.
func (s *ChangeStore) GetAllAddressChanges(ctx context.Context, userID string) ([]*protocol.AddressChange, error) {
	return s.list(ctx, kv.Key(ChangeIdentifier, userID))
}

// GetAddressChangesForAddress returns the changes of one address,
// ordered by counter.
func (s *ChangeStore) GetAddressChangesForAddress(ctx context.Context, userID,
	email string) ([]*protocol.AddressChange, error) {
	return s.list(ctx, kv.Key(ChangeIdentifier, userID, email))
}

func (s *ChangeStore) list(ctx context.Context, prefix []byte) ([]*protocol.AddressChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter := s.db.NewIterator(kv.BytesPrefix(prefix))
	defer iter.Release()
	var changes []*protocol.AddressChange
	for ok := iter.First(); ok; ok = iter.Next() {
		c := new(protocol.AddressChange)
		if err := json.Unmarshal(iter.Value(), c); err != nil {
			return nil, kv.ErrCorruptedValue
		}
		changes = append(changes, c)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Email != changes[j].Email {
			return changes[i].Email < changes[j].Email
		}
		return changes[i].Counter < changes[j].Counter
	})
	return changes, nil
}

// StoreAddressChange stores c, replacing a change with the same id.
func (s *ChangeStore) StoreAddressChange(ctx context.Context, c *protocol.AddressChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(changeKey(c), buf)
}

// RemoveAddressChange removes c. Removing a change twice is not an
// error.
func (s *ChangeStore) RemoveAddressChange(ctx context.Context, c *protocol.AddressChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Delete(changeKey(c))
	if err == s.db.ErrNotFound() {
		return nil
	}
	return err
}

// RemoveAddressChangesForAddress removes all the changes of an address
// in one batch.
func (s *ChangeStore) RemoveAddressChangesForAddress(ctx context.Context, userID, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wb := s.db.NewBatch()
	iter := s.db.NewIterator(kv.BytesPrefix(kv.Key(ChangeIdentifier, userID, email)))
	for ok := iter.First(); ok; ok = iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		wb.Delete(key)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return s.db.Write(wb)
}
