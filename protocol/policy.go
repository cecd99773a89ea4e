package protocol

// These are the default time windows, in seconds.
const (
	// KTMaxEpochIntervalSeconds is the longest time the log may take
	// between two epochs. An epoch older than that is stale.
	KTMaxEpochIntervalSeconds int64 = 72 * 60 * 60
	// KTEpochValidityPeriodSeconds is how long the log keeps an epoch
	// and the SKLs included in it available.
	KTEpochValidityPeriodSeconds int64 = 90 * 24 * 60 * 60
	// KTSelfAuditIntervalSeconds is the minimal time between two
	// self-audits of the same user.
	KTSelfAuditIntervalSeconds int64 = 4 * 60 * 60
)

// Signature contexts used to separate the signatures made by the client.
const (
	KTVerifiedEpochSignatureContext = "key-transparency.verified-epoch"
	KTSKLSignatureContext           = "key-transparency.key-list"
)

// Policies is a summary of the time windows the client enforces while
// auditing. All values are in seconds.
type Policies struct {
	MaxEpochInterval    int64 `toml:"max_epoch_interval"`
	EpochValidityPeriod int64 `toml:"epoch_validity_period"`
	SelfAuditInterval   int64 `toml:"self_audit_interval"`
}

// DefaultPolicies returns the policies the log is operated with.
func DefaultPolicies() Policies {
	return Policies{
		MaxEpochInterval:    KTMaxEpochIntervalSeconds,
		EpochValidityPeriod: KTEpochValidityPeriodSeconds,
		SelfAuditInterval:   KTSelfAuditIntervalSeconds,
	}
}

// WithDefaults fills the zero fields of p with the default values.
func (p Policies) WithDefaults() Policies {
	d := DefaultPolicies()
	if p.MaxEpochInterval <= 0 {
		p.MaxEpochInterval = d.MaxEpochInterval
	}
	if p.EpochValidityPeriod <= 0 {
		p.EpochValidityPeriod = d.EpochValidityPeriod
	}
	if p.SelfAuditInterval <= 0 {
		p.SelfAuditInterval = d.SelfAuditInterval
	}
	return p
}

// IsFresh reports whether a timestamp is at most MaxEpochInterval
// older than now.
func (p Policies) IsFresh(ts, now int64) bool {
	return ts >= now-p.MaxEpochInterval
}

// IsExpired reports whether a timestamp is older than the epoch
// validity period.
func (p Policies) IsExpired(ts, now int64) bool {
	return ts < now-p.EpochValidityPeriod
}
