package protocol

// StateKind is the outcome of verifying one proof.
type StateKind int

const (
	StateNotYetIncluded StateKind = iota
	StateExistent
	StateAbsent
	StateObsolete
)

func (k StateKind) String() string {
	switch k {
	case StateExistent:
		return "existent"
	case StateAbsent:
		return "absent"
	case StateObsolete:
		return "obsolete"
	}
	return "not yet included"
}

// VerifiedState is the state of an address in an epoch, as proved by
// the log. NotBefore is the earliest time the log claims the epoch was
// valid; it is meaningless for StateNotYetIncluded.
type VerifiedState struct {
	Kind      StateKind
	NotBefore int64
}

// Existent, Absent, Obsolete and NotYetIncluded build the four states.
func Existent(notBefore int64) VerifiedState {
	return VerifiedState{Kind: StateExistent, NotBefore: notBefore}
}

func Absent(notBefore int64) VerifiedState {
	return VerifiedState{Kind: StateAbsent, NotBefore: notBefore}
}

func Obsolete(notBefore int64) VerifiedState {
	return VerifiedState{Kind: StateObsolete, NotBefore: notBefore}
}

func NotYetIncluded() VerifiedState {
	return VerifiedState{Kind: StateNotYetIncluded}
}

// HasTime reports whether the state carries a NotBefore time.
func (s VerifiedState) HasTime() bool {
	return s.Kind != StateNotYetIncluded
}

// IsIncluded reports whether the state proves an SKL or an
// obsolescence marker is in the log.
func (s VerifiedState) IsIncluded() bool {
	return s.Kind == StateExistent || s.Kind == StateObsolete
}
