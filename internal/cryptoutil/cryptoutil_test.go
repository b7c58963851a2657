package cryptoutil

import (
	"os"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	os.Setenv(PassphraseEnv, "correct-horse-battery-staple")
	defer os.Unsetenv(PassphraseEnv)

	cases := []string{
		"",
		"hello",
		"secret123",
		"a much longer secret key with spaces and punctuation!@#$",
	}
	for _, c := range cases {
		token, err := Encrypt(c)
		if err != nil {
			t.Fatalf("Encrypt(%q) error: %v", c, err)
		}
		got, err := Decrypt(token)
		if err != nil {
			t.Fatalf("Decrypt error: %v", err)
		}
		if got != c {
			t.Errorf("round trip mismatch: want %q, got %q", c, got)
		}
	}
}

func TestEncryptRequiresPassphrase(t *testing.T) {
	os.Unsetenv(PassphraseEnv)
	if _, err := Encrypt("secret"); err == nil {
		t.Fatal("expected error when passphrase unset")
	}
}
