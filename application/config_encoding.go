package application

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/coniks-sys/coniks-selfaudit/utils"
)

// ConfigLoader reads and writes an AppConfig in one encoding.
type ConfigLoader interface {
	Encode(conf AppConfig) error
	Decode(conf AppConfig) error
}

// DefaultEncoding is the encoding of the files written by init.
const DefaultEncoding = "toml"

var configEncodings = map[string]ConfigLoader{
	"toml": new(TomlLoader),
}

// newConfigLoader returns the loader of encoding, matched case
// insensitively. An empty encoding selects DefaultEncoding.
func newConfigLoader(encoding string) (ConfigLoader, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loader, ok := configEncodings[strings.ToLower(encoding)]
	if !ok {
		return nil, fmt.Errorf("Unsupported config encoding %q", encoding)
	}
	return loader, nil
}

// TomlLoader reads and writes TOML configuration files.
type TomlLoader struct{}

var _ ConfigLoader = (*TomlLoader)(nil)

// Encode writes conf to its path. The file is readable by its owner
// only, since the config points at the keyring.
func (ld *TomlLoader) Encode(conf AppConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		return fmt.Errorf("Cannot encode config: %v", err)
	}
	return utils.WriteFile(conf.GetPath(), buf.Bytes(), 0600)
}

// Decode fills conf from its path. Keys that match no field of conf
// are reported, since they are most likely misspelled settings.
func (ld *TomlLoader) Decode(conf AppConfig) error {
	buf, err := os.ReadFile(conf.GetPath())
	if err != nil {
		return fmt.Errorf("Failed to load config: %v", err)
	}
	md, err := toml.Decode(string(buf), conf)
	if err != nil {
		return fmt.Errorf("Failed to load config %s: %v", conf.GetPath(), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("Unknown keys in config %s: %s", conf.GetPath(), strings.Join(keys, ", "))
	}
	return nil
}
