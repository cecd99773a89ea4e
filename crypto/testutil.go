package crypto

import (
	"bytes"

	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
)

// NewStaticTestSigningKey returns a static private signing key for _tests_.
func NewStaticTestSigningKey() sign.PrivateKey {
	return newStaticKey("deterministic tests need 256 bit")
}

// NewStaticTestLogKey returns a static private key for _tests_ that
// play the role of the log.
func NewStaticTestLogKey() sign.PrivateKey {
	return newStaticKey("the log signs its epochs: 256 b.")
}

func newStaticKey(seed string) sign.PrivateKey {
	sk, err := sign.GenerateKey(bytes.NewReader([]byte(seed)))
	if err != nil {
		panic(err)
	}
	return sk
}
