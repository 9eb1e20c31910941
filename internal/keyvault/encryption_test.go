package keyvault

import (
	"bytes"
	"errors"
	"testing"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // 64 KiB (minimal)
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	password := []byte("strong-password-123")

	w, err := Encrypt(key, password, fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	got, err := Decrypt(w, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	defer got.Zero()

	if !bytes.Equal(got.Bytes(), key.Bytes()) {
		t.Error("decrypted key differs from original")
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	w, err := Encrypt(key, []byte("correct-horse"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	_, err = Decrypt(w, []byte("battery-staple"))
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Decrypt() error = %v, want ErrWrongPassword", err)
	}
}

func TestDecrypt_TruncatedBlob(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	w, err := Encrypt(key, []byte("secret-pw"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	w.Blob = w.Blob[:headerSize] // header only, no ciphertext
	_, err = Decrypt(w, []byte("secret-pw"))
	if !errors.Is(err, ErrMalformedKeystore) {
		t.Errorf("Decrypt() error = %v, want ErrMalformedKeystore", err)
	}
	if errors.Is(err, ErrWrongPassword) {
		t.Error("truncated blob must not look like a bad password")
	}
}

func TestEncrypt_AddressIndependentOfPassword(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := key.Address()

	for _, pw := range []string{"first-pw", "second-pw", "third-pw"} {
		w, err := Encrypt(key, []byte(pw), fastParams())
		if err != nil {
			t.Fatalf("Encrypt(%s) error: %v", pw, err)
		}
		if w.Address != want {
			t.Errorf("address under %q = %s, want %s", pw, w.Address, want)
		}
	}
}

func TestImport_DerivesSameAddress(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	imported, err := Import(key.Bytes())
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if imported.Address() != key.Address() {
		t.Errorf("imported address %s != generated %s", imported.Address(), key.Address())
	}
}

func TestImport_RejectsBadLength(t *testing.T) {
	if _, err := Import(make([]byte, 31)); err == nil {
		t.Error("Import(31 bytes) should fail")
	}
	if _, err := Import(nil); err == nil {
		t.Error("Import(nil) should fail")
	}
}
