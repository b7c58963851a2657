// Package cryptoutil provides the symmetric obfuscation used to keep tenant
// secrets out of cleartext in the metadata store. This is obfuscation, not
// confidentiality against a capable adversary: the key is derived from a
// passphrase that must be supplied out-of-band via environment.
package cryptoutil

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/s3gw/proxy/internal/gwerr"
)

// PassphraseEnv is the environment variable holding the passphrase used to
// derive the obfuscation key.
const PassphraseEnv = "TENANT_SECRET_PASSPHRASE"

func deriveKey() ([]byte, error) {
	value := os.Getenv(PassphraseEnv)
	if value == "" {
		return nil, fmt.Errorf("%s must be set to store credentials securely: %w", PassphraseEnv, gwerr.ErrMisconfigured)
	}
	sum := sha256.Sum256([]byte(value))
	return sum[:], nil
}

func xorStream(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// Encrypt obfuscates secret using the passphrase from PassphraseEnv,
// returning a URL-safe base64 token.
func Encrypt(secret string) (string, error) {
	key, err := deriveKey()
	if err != nil {
		return "", err
	}
	encrypted := xorStream([]byte(secret), key)
	return base64.URLEncoding.EncodeToString(encrypted), nil
}

// Decrypt reverses Encrypt.
func Decrypt(token string) (string, error) {
	key, err := deriveKey()
	if err != nil {
		return "", err
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return string(xorStream(data, key)), nil
}
