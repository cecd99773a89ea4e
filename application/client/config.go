package client

import (
	"github.com/coniks-sys/coniks-selfaudit/application"
	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
)

// Defaults of the request limiter.
const (
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 10
)

// Config contains the auditor's configuration: the base URL of the key
// transparency API and the user to audit, the path to the log's signing
// public-key file and the actual public-key parsed from that file, the
// keyring holding the address keys, the local database, and the limits
// and time windows enforced while auditing.
type Config struct {
	*application.CommonConfig

	Address string `toml:"address"`
	UserID  string `toml:"user_id"`

	KeyringPath   string         `toml:"keyring_path"`
	LogPubkeyPath string         `toml:"log_pubkey_path"`
	LogPubKey     sign.PublicKey `toml:"-"`
	DatabasePath  string         `toml:"database_path"`

	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`

	Policies         protocol.Policies `toml:"policies"`
	AuditConcurrency int               `toml:"audit_concurrency"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new auditor configuration at the
// given file path, with the given config encoding, logger
// configuration, API address and user.
func NewConfig(file, encoding string, logger *application.LoggerConfig,
	address, userID string) *Config {
	var conf = Config{
		CommonConfig:      application.NewCommonConfig(file, encoding, logger),
		Address:           address,
		UserID:            userID,
		KeyringPath:       "keyring.toml",
		LogPubkeyPath:     "log.pub",
		DatabasePath:      "auditor.db",
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		Policies:          protocol.DefaultPolicies(),
		AuditConcurrency:  4,
	}

	return &conf
}

// Load initializes an auditor's configuration from the given file
// using the given encoding.
// It reads the log's signing public-key file and parses the actual key.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	loader, err := conf.GetLoader()
	if err != nil {
		return err
	}
	if err := loader.Decode(conf); err != nil {
		return err
	}
	if conf.Logger == nil {
		conf.Logger = &application.LoggerConfig{Environment: "production"}
	}
	conf.Policies = conf.Policies.WithDefaults()

	logPubKey, err := application.LoadSigningPubKey(conf.LogPubkeyPath, file)
	if err != nil {
		return err
	}
	conf.LogPubKey = logPubKey

	return nil
}

// Save writes an auditor's configuration.
func (conf *Config) Save() error {
	loader, err := conf.GetLoader()
	if err != nil {
		return err
	}
	return loader.Encode(conf)
}

// GetPath returns the auditor's configuration file path.
func (conf *Config) GetPath() string {
	return conf.Path
}
