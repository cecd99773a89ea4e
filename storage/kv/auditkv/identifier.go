package auditkv

const (
	// ChangeIdentifier is the domain separation for address changes.
	ChangeIdentifier = 'C'
	// AuditStateIdentifier is the domain separation for the state of
	// the self-audit.
	AuditStateIdentifier = 'A'
)
