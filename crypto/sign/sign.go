// Package sign implements the ed25519 signatures used by a key
// transparency client: plain signatures for the log's epochs, and
// context-separated, timestamped signatures for what the client signs
// itself.
package sign

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/ed25519"
)

const (
	PrivateKeySize = 64
	PublicKeySize  = 32
	SignatureSize  = 64

	timestampSize = 8
)

var (
	// ErrBadSignature is returned when a signature does not verify.
	ErrBadSignature = errors.New("[sign] Signature does not verify")
	// ErrMalformedSignature is returned when an armored signature
	// cannot be decoded.
	ErrMalformedSignature = errors.New("[sign] Malformed signature")
	// ErrBadKey is returned when a key has the wrong size.
	ErrBadKey = errors.New("[sign] Malformed key")
)

type PrivateKey ed25519.PrivateKey
type PublicKey ed25519.PublicKey

// GenerateKey generates a new key pair using randomness from rnd,
// or from crypto/rand if rnd is nil.
func GenerateKey(rnd io.Reader) (PrivateKey, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	_, sk, err := ed25519.GenerateKey(rnd)
	return PrivateKey(sk), err
}

func (key PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(key), message)
}

func (key PrivateKey) Public() (PublicKey, bool) {
	pk, ok := ed25519.PrivateKey(key).Public().(ed25519.PublicKey)
	return PublicKey(pk), ok
}

func (pk PublicKey) Verify(message, sig []byte) bool {
	if len(pk) != PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk), message, sig)
}

// PublicKeyFromHex decodes a hex-encoded public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != PublicKeySize {
		return nil, ErrBadKey
	}
	return PublicKey(raw), nil
}

// PrivateKeyFromHex decodes a hex-encoded private key.
func PrivateKeyFromHex(s string) (PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != PrivateKeySize {
		return nil, ErrBadKey
	}
	return PrivateKey(raw), nil
}

// signedMessage binds the message to its context and timestamp.
func signedMessage(context string, timestamp int64, message []byte) []byte {
	ts := make([]byte, timestampSize)
	binary.BigEndian.PutUint64(ts, uint64(timestamp))
	buf := make([]byte, 0, len(context)+1+timestampSize+len(message))
	buf = append(buf, context...)
	buf = append(buf, 0)
	buf = append(buf, ts...)
	return append(buf, message...)
}

// SignWithContext signs message under context at timestamp and returns
// the armored signature: the base64 encoding of the big-endian timestamp
// followed by the ed25519 signature.
func (key PrivateKey) SignWithContext(context string, timestamp int64, message []byte) string {
	sig := key.Sign(signedMessage(context, timestamp, message))
	raw := make([]byte, timestampSize, timestampSize+SignatureSize)
	binary.BigEndian.PutUint64(raw, uint64(timestamp))
	return base64.StdEncoding.EncodeToString(append(raw, sig...))
}

// VerifyWithContext verifies an armored signature made by
// SignWithContext and returns its timestamp.
func (pk PublicKey) VerifyWithContext(context string, message []byte, armored string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(armored)
	if err != nil || len(raw) != timestampSize+SignatureSize {
		return 0, ErrMalformedSignature
	}
	timestamp := int64(binary.BigEndian.Uint64(raw[:timestampSize]))
	if !pk.Verify(signedMessage(context, timestamp, message), raw[timestampSize:]) {
		return 0, ErrBadSignature
	}
	return timestamp, nil
}
