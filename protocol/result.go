package protocol

// ResultKind is the outcome class of an audit.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultWarning
	ResultFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultWarning:
		return "warning"
	}
	return "failure"
}

// WarningKind lists the expected, non-compromise outcomes of an
// address audit.
type WarningKind int

const (
	NoWarning WarningKind = iota
	// WarningDisabled: the address is disabled and was not audited.
	WarningDisabled
	// WarningAddressNotInKT: the address has no SKL and the log proves
	// its absence.
	WarningAddressNotInKT
	// WarningCreationTooRecent: the address cannot be bootstrapped yet
	// because its first SKL was not included in an epoch.
	WarningCreationTooRecent
	// WarningObsolescence: the address is enabled but its SKL marks it
	// obsolete.
	WarningObsolescence
)

func (w WarningKind) String() string {
	switch w {
	case WarningDisabled:
		return "disabled"
	case WarningAddressNotInKT:
		return "address not in key transparency"
	case WarningCreationTooRecent:
		return "creation too recent"
	case WarningObsolescence:
		return "obsolescence"
	}
	return "none"
}

// UserAddressAuditResult is the outcome of auditing one own address.
// Err is set for failures only.
type UserAddressAuditResult struct {
	Kind    ResultKind
	Warning WarningKind
	Err     error
}

// AuditSuccess, AuditWarning and AuditFailure build address results.
func AuditSuccess() UserAddressAuditResult {
	return UserAddressAuditResult{Kind: ResultSuccess}
}

func AuditWarning(w WarningKind) UserAddressAuditResult {
	return UserAddressAuditResult{Kind: ResultWarning, Warning: w}
}

func AuditFailure(err error) UserAddressAuditResult {
	return UserAddressAuditResult{Kind: ResultFailure, Err: err}
}

// AddressChangeAuditResult is the outcome of checking one pending
// change. A nil Err means the check passed or was deferred.
type AddressChangeAuditResult struct {
	Change *AddressChange
	Err    error
}

// Succeeded reports whether the change check passed.
func (r AddressChangeAuditResult) Succeeded() bool {
	return r.Err == nil
}

// SelfAuditResult aggregates one self-audit pass. Addresses is keyed
// by address id. A failed pass only carries Timestamp and Err.
type SelfAuditResult struct {
	Timestamp int64
	Contacts  []AddressChangeAuditResult
	Addresses map[string]UserAddressAuditResult
	Err       error
}

// Succeeded reports whether the pass completed.
func (r *SelfAuditResult) Succeeded() bool {
	return r.Err == nil
}

// AuditState is the state a self-audit carries from one pass to the
// next: when the last pass ran and what it found.
type AuditState struct {
	LastRun int64
	Last    *SelfAuditResult
}

// PublicKeyVerificationResult is the outcome of verifying the keys of
// a contact's address. Err is set when the verification failed.
type PublicKeyVerificationResult struct {
	State VerifiedState
	Err   error
}
