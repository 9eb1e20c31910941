package keyvault

import (
	"strings"
	"testing"
)

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if words := len(strings.Fields(m)); words != 24 {
		t.Errorf("mnemonic has %d words, want 24", words)
	}
	if !ValidateMnemonic(m) {
		t.Error("generated mnemonic does not validate")
	}
}

func TestKeyFromMnemonic_Deterministic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	k1, err := KeyFromMnemonic(m)
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	k2, err := KeyFromMnemonic(m)
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	if k1.Address() != k2.Address() {
		t.Errorf("same mnemonic gave different addresses: %s vs %s", k1.Address(), k2.Address())
	}
}

func TestKeyFromMnemonic_KnownVector(t *testing.T) {
	// BIP-39 test mnemonic; address for m/44'/60'/0'/0/0 with empty passphrase.
	const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	const want = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	key, err := KeyFromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	if got := key.Address().String(); got != want {
		t.Errorf("derived address = %s, want %s", got, want)
	}
}

func TestKeyFromMnemonic_Invalid(t *testing.T) {
	if _, err := KeyFromMnemonic("not a real phrase at all"); err == nil {
		t.Error("invalid mnemonic should fail")
	}
}
