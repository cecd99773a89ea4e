package auditkv

import (
	"encoding/json"
	"errors"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/storage/kv"
)

// The stored form of an audit state. Errors do not survive a round trip
// through the database, only their message does.
type storedState struct {
	LastRun int64        `json:"LastRun"`
	Last    *storedAudit `json:"Last,omitempty"`
}

type storedAudit struct {
	Timestamp int64                    `json:"Timestamp"`
	Cause     string                   `json:"Cause,omitempty"`
	Addresses map[string]storedAddress `json:"Addresses,omitempty"`
	Contacts  []storedContact          `json:"Contacts,omitempty"`
}

type storedAddress struct {
	Kind    protocol.ResultKind  `json:"Kind"`
	Warning protocol.WarningKind `json:"Warning,omitempty"`
	Cause   string               `json:"Cause,omitempty"`
}

type storedContact struct {
	Change *protocol.AddressChange `json:"Change"`
	Cause  string                  `json:"Cause,omitempty"`
}

func cause(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func fromCause(c string) error {
	if c == "" {
		return nil
	}
	return errors.New(c)
}

func auditStateKey(userID string) []byte {
	return kv.Key(AuditStateIdentifier, userID)
}

// StoreAuditState stores the state of the self-audit of userID.
func StoreAuditState(db kv.DB, userID string, state protocol.AuditState) error {
	stored := storedState{LastRun: state.LastRun}
	if r := state.Last; r != nil {
		audit := &storedAudit{Timestamp: r.Timestamp, Cause: cause(r.Err)}
		if len(r.Addresses) > 0 {
			audit.Addresses = make(map[string]storedAddress, len(r.Addresses))
			for id, a := range r.Addresses {
				audit.Addresses[id] = storedAddress{Kind: a.Kind, Warning: a.Warning, Cause: cause(a.Err)}
			}
		}
		for _, c := range r.Contacts {
			audit.Contacts = append(audit.Contacts, storedContact{Change: c.Change, Cause: cause(c.Err)})
		}
		stored.Last = audit
	}
	buf, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return db.Put(auditStateKey(userID), buf)
}

// LoadAuditState loads the state of the self-audit of userID. A user
// that was never audited has the zero state.
func LoadAuditState(db kv.DB, userID string) (protocol.AuditState, error) {
	buf, err := db.Get(auditStateKey(userID))
	if err == db.ErrNotFound() {
		return protocol.AuditState{}, nil
	}
	if err != nil {
		return protocol.AuditState{}, err
	}
	var stored storedState
	if err := json.Unmarshal(buf, &stored); err != nil {
		return protocol.AuditState{}, kv.ErrCorruptedValue
	}
	state := protocol.AuditState{LastRun: stored.LastRun}
	if a := stored.Last; a != nil {
		r := &protocol.SelfAuditResult{Timestamp: a.Timestamp, Err: fromCause(a.Cause)}
		if len(a.Addresses) > 0 {
			r.Addresses = make(map[string]protocol.UserAddressAuditResult, len(a.Addresses))
			for id, addr := range a.Addresses {
				r.Addresses[id] = protocol.UserAddressAuditResult{
					Kind:    addr.Kind,
					Warning: addr.Warning,
					Err:     fromCause(addr.Cause),
				}
			}
		}
		for _, c := range a.Contacts {
			r.Contacts = append(r.Contacts, protocol.AddressChangeAuditResult{
				Change: c.Change,
				Err:    fromCause(c.Cause),
			})
		}
		state.Last = r
	}
	return state, nil
}
