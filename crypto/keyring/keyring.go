// Package keyring keeps the signing keys of a user's addresses and
// implements the signature capability the audit engine consumes.
package keyring

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/coniks-sys/coniks-selfaudit/crypto"
	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/utils"
)

// A Keyring maps address ids to their primary signing key.
// It is safe for concurrent use.
type Keyring struct {
	mu    sync.RWMutex
	keys  map[string]sign.PrivateKey
	clock protocol.Clock
}

var _ protocol.CryptoContext = (*Keyring)(nil)

// New returns an empty keyring that timestamps its signatures with clock.
func New(clock protocol.Clock) *Keyring {
	return &Keyring{
		keys:  make(map[string]sign.PrivateKey),
		clock: clock,
	}
}

// Add sets the signing key of an address.
func (kr *Keyring) Add(addressID string, sk sign.PrivateKey) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.keys[addressID] = sk
}

// PublicKey returns the primary public key of an address.
func (kr *Keyring) PublicKey(addressID string) (protocol.PublicKey, error) {
	kr.mu.RLock()
	sk, ok := kr.keys[addressID]
	kr.mu.RUnlock()
	if !ok {
		return protocol.PublicKey{}, fmt.Errorf("[keyring] no key for address %q", addressID)
	}
	pk, _ := sk.Public()
	return protocol.PublicKey{
		Key:     hex.EncodeToString(pk),
		Flags:   protocol.KeyFlagNotCompromised | protocol.KeyFlagNotObsolete,
		Primary: true,
		Active:  true,
	}, nil
}

// Sign signs data with the key of addressID under context.
func (kr *Keyring) Sign(addressID, context string, data []byte) ([]byte, error) {
	kr.mu.RLock()
	sk, ok := kr.keys[addressID]
	kr.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("[keyring] no key for address %q", addressID)
	}
	return []byte(sk.SignWithContext(context, kr.clock.Now(), data)), nil
}

// Verify tries every verification-capable key in keys and returns the
// signature time from the first one that verifies the signature.
func (kr *Keyring) Verify(keys []protocol.PublicKey, context string, data, signature []byte) (int64, error) {
	for _, k := range protocol.VerificationKeys(keys) {
		pk, err := sign.PublicKeyFromHex(k.Key)
		if err != nil {
			continue
		}
		if ts, err := pk.VerifyWithContext(context, data, string(signature)); err == nil {
			return ts, nil
		}
	}
	return 0, &protocol.VerificationError{
		Code: protocol.CheckBadSignature,
		Msg:  "no key verifies the signature under " + context,
	}
}

// Fingerprint returns the fingerprint of a key: the hex-encoded
// digest of the raw key.
func (kr *Keyring) Fingerprint(key protocol.PublicKey) (string, error) {
	pk, err := sign.PublicKeyFromHex(key.Key)
	if err != nil {
		return "", err
	}
	return crypto.HexDigest(pk), nil
}

// SHA256Fingerprints returns the SHA-256 fingerprints of a key.
func (kr *Keyring) SHA256Fingerprints(key protocol.PublicKey) ([]string, error) {
	pk, err := sign.PublicKeyFromHex(key.Key)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(pk)
	return []string{hex.EncodeToString(sum[:])}, nil
}

type keyEntry struct {
	AddressID string `toml:"address_id"`
	SecretKey string `toml:"secret_key"`
}

type keyFile struct {
	Keys []keyEntry `toml:"keys"`
}

// Load reads a keyring file.
func Load(path string, clock protocol.Clock) (*Keyring, error) {
	var kf keyFile
	if _, err := toml.DecodeFile(path, &kf); err != nil {
		return nil, fmt.Errorf("[keyring] Failed to load keyring: %v", err)
	}
	kr := New(clock)
	for _, e := range kf.Keys {
		sk, err := sign.PrivateKeyFromHex(e.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("[keyring] Bad key for address %q: %v", e.AddressID, err)
		}
		kr.Add(e.AddressID, sk)
	}
	return kr, nil
}

// Save writes the keyring to path. It refuses to overwrite an existing
// file.
func (kr *Keyring) Save(path string) error {
	kr.mu.RLock()
	var kf keyFile
	for id, sk := range kr.keys {
		kf.Keys = append(kf.Keys, keyEntry{AddressID: id, SecretKey: hex.EncodeToString(sk)})
	}
	kr.mu.RUnlock()
	sort.Slice(kf.Keys, func(i, j int) bool { return kf.Keys[i].AddressID < kf.Keys[j].AddressID })

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(kf); err != nil {
		return err
	}
	return utils.WriteFile(path, buf.Bytes(), os.FileMode(0600))
}
