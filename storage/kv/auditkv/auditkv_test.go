package auditkv

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv/leveldbkv"
	"github.com/syndtr/goleveldb/leveldb"
)

func withDB(f func(kv.DB)) {
	dir, err := os.MkdirTemp("", "auditkv")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		panic(err)
	}
	defer db.Close()
	f(leveldbkv.Wrap(db))
}

func TestChangeStore(t *testing.T) {
	withDB(func(db kv.DB) {
		ctx := context.Background()
		s := NewChangeStore(db)
		c1 := protocol.NewAddressChange("user", "alice@proton.black", 0, 10, 100, []string{"aa"}, false)
		c2 := protocol.NewAddressChange("user", "alice@proton.black", 1, 11, 200, []string{"bb"}, true)
		c3 := protocol.NewAddressChange("user", "bob@proton.black", 0, 12, 300, nil, false)
		other := protocol.NewAddressChange("user2", "alice@proton.black", 0, 10, 100, nil, false)
		for _, c := range []*protocol.AddressChange{c2, c1, c3, other} {
			if err := s.StoreAddressChange(ctx, c); err != nil {
				t.Fatal(err)
			}
		}

		all, err := s.GetAllAddressChanges(ctx, "user")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 {
			t.Fatal("Expect", 3, "changes, got", len(all))
		}
		if all[0].ChangeID != c1.ChangeID || all[1].ChangeID != c2.ChangeID || all[2].ChangeID != c3.ChangeID {
			t.Error("Unexpected order", all)
		}
		if !all[1].IsObsolete || all[1].EpochID != 11 || all[0].PublicKeys[0] != "aa" {
			t.Error("Bad change loading/storing", all[1])
		}

		alice, err := s.GetAddressChangesForAddress(ctx, "user", "alice@proton.black")
		if err != nil || len(alice) != 2 {
			t.Fatal("Expect", 2, "changes, got", len(alice), err)
		}

		if err := s.RemoveAddressChange(ctx, c1); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveAddressChange(ctx, c1); err != nil {
			t.Error("Expect removing twice to succeed, got", err)
		}
		if err := s.RemoveAddressChangesForAddress(ctx, "user", "alice@proton.black"); err != nil {
			t.Fatal(err)
		}
		all, _ = s.GetAllAddressChanges(ctx, "user")
		if len(all) != 1 || all[0].ChangeID != c3.ChangeID {
			t.Error("Expect only", c3.ChangeID, "got", all)
		}
		others, _ := s.GetAllAddressChanges(ctx, "user2")
		if len(others) != 1 {
			t.Error("Expect the other user's change to be kept, got", others)
		}
	})
}

func TestChangeStoreCancelled(t *testing.T) {
	withDB(func(db kv.DB) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewChangeStore(db).GetAllAddressChanges(ctx, "user"); !errors.Is(err, context.Canceled) {
			t.Error("Expect", context.Canceled, "got", err)
		}
	})
}

func TestAuditStateStore(t *testing.T) {
	withDB(func(db kv.DB) {
		state, err := LoadAuditState(db, "user")
		if err != nil || state.LastRun != 0 || state.Last != nil {
			t.Fatal("Expect the zero state, got", state, err)
		}

		change := protocol.NewAddressChange("user", "bob@proton.black", 0, 12, 300, nil, false)
		want := protocol.AuditState{
			LastRun: 1700000000,
			Last: &protocol.SelfAuditResult{
				Timestamp: 1700000000,
				Addresses: map[string]protocol.UserAddressAuditResult{
					"a1": protocol.AuditSuccess(),
					"a2": protocol.AuditWarning(protocol.WarningCreationTooRecent),
				},
				Contacts: []protocol.AddressChangeAuditResult{
					{Change: change, Err: protocol.Check(false, protocol.CheckNotIncluded, "late")},
				},
			},
		}
		if err := StoreAuditState(db, "user", want); err != nil {
			t.Fatal(err)
		}
		got, err := LoadAuditState(db, "user")
		if err != nil {
			t.Fatal(err)
		}
		if got.LastRun != want.LastRun || got.Last.Timestamp != want.Last.Timestamp || !got.Last.Succeeded() {
			t.Error("Bad state loading/storing", got)
		}
		if got.Last.Addresses["a2"].Warning != protocol.WarningCreationTooRecent {
			t.Error("Expect", protocol.WarningCreationTooRecent, "got", got.Last.Addresses["a2"])
		}
		if len(got.Last.Contacts) != 1 || got.Last.Contacts[0].Succeeded() ||
			got.Last.Contacts[0].Change.ChangeID != change.ChangeID {
			t.Error("Bad contact loading/storing", got.Last.Contacts)
		}

		failed := protocol.AuditState{
			LastRun: 1700000100,
			Last:    &protocol.SelfAuditResult{Timestamp: 1700000100, Err: errors.New("audit address a1: boom")},
		}
		if err := StoreAuditState(db, "user", failed); err != nil {
			t.Fatal(err)
		}
		got, _ = LoadAuditState(db, "user")
		if got.Last.Succeeded() || got.Last.Err.Error() != "audit address a1: boom" {
			t.Error("Expect", failed.Last.Err, "got", got.Last.Err)
		}
	})
}

func TestAuditStateCorrupted(t *testing.T) {
	withDB(func(db kv.DB) {
		if err := db.Put(auditStateKey("user"), []byte("{")); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAuditState(db, "user"); err != kv.ErrCorruptedValue {
			t.Error("Expect", kv.ErrCorruptedValue, "got", err)
		}
	})
}
