package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/utils"
)

// AppConfig provides an abstraction of the
// underlying encoding format for the configs.
type AppConfig interface {
	Load(file, encoding string) error
	Save() error
	GetPath() string
}

// CommonConfig is the generic type used to specify the configuration of
// an application-level executable. It contains some common configuration
// values including the file path, logger configuration, and the
// encoding of the file.
type CommonConfig struct {
	Path     string        `toml:"-"`
	Logger   *LoggerConfig `toml:"logger"`
	Encoding string        `toml:"-"`
}

// NewCommonConfig initializes an application's config file path,
// its encoding, and the logger configuration.
// Note: This constructor must be called in each Load() method
// implementation of an AppConfig.
func NewCommonConfig(file, encoding string, logger *LoggerConfig) *CommonConfig {
	return &CommonConfig{
		Path:     file,
		Logger:   logger,
		Encoding: encoding,
	}
}

// GetLoader returns the loader of the config's encoding.
func (conf *CommonConfig) GetLoader() (ConfigLoader, error) {
	return newConfigLoader(conf.Encoding)
}

// LoadSigningPubKey loads a public signing key at the given path
// specified in the given config file. The key file holds either the raw
// 32-byte key or its hex encoding.
// If there is any parsing error or the key is malformed,
// LoadSigningPubKey() returns an error with a nil key.
func LoadSigningPubKey(path, file string) (sign.PublicKey, error) {
	signPath := utils.ResolvePath(path, file)
	signPubKey, err := os.ReadFile(signPath)
	if err != nil {
		return nil, fmt.Errorf("Cannot read signing key: %v", err)
	}
	if len(signPubKey) != sign.PublicKeySize {
		pk, err := sign.PublicKeyFromHex(strings.TrimSpace(string(signPubKey)))
		if err != nil {
			return nil, fmt.Errorf("Signing public-key must be 32 bytes or their hex encoding (got %d bytes)",
				len(signPubKey))
		}
		return pk, nil
	}
	return signPubKey, nil
}
