package keyvault

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/famvault/famvault/pkg/types"
)

// Encryption constants.
const (
	SaltSize = 32
	// Blob format: [salt(32)][memory(4)][iterations(4)][parallelism(1)][nonce(24)][ciphertext...]
	headerSize = SaltSize + 4 + 4 + 1
)

// Decryption failure modes. A wrong password is distinguishable from a
// corrupted or truncated blob.
var (
	ErrWrongPassword     = errors.New("wrong wallet password")
	ErrMalformedKeystore = errors.New("malformed wallet keystore")
)

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// EncryptedWallet is the at-rest representation of a private key. The
// address is stored beside the ciphertext so it never requires the
// password; the blob carries its own KDF parameters.
type EncryptedWallet struct {
	Address types.Address `json:"address"`
	Blob    []byte        `json:"blob"`
}

// deriveKey uses Argon2id to derive a 32-byte encryption key from password and salt.
func deriveKey(password, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

// Encrypt seals a private key under a password using Argon2id +
// XChaCha20-Poly1305 and records the derived address beside it.
func Encrypt(key *Key, password []byte, params EncryptionParams) (EncryptedWallet, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return EncryptedWallet{}, fmt.Errorf("generate salt: %w", err)
	}

	derived := deriveKey(password, salt, params)
	defer zero(derived)

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return EncryptedWallet{}, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedWallet{}, fmt.Errorf("generate nonce: %w", err)
	}

	plaintext := key.Bytes()
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	zero(plaintext)

	blob := make([]byte, 0, headerSize+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = binary.LittleEndian.AppendUint32(blob, params.Memory)
	blob = binary.LittleEndian.AppendUint32(blob, params.Iterations)
	blob = append(blob, params.Parallelism)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return EncryptedWallet{
		Address: key.Address(),
		Blob:    blob,
	}, nil
}

// Decrypt recovers the private key from an encrypted wallet. It returns
// ErrWrongPassword when the password does not match and
// ErrMalformedKeystore when the blob itself is unusable.
func Decrypt(w EncryptedWallet, password []byte) (*Key, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(w.Blob) < minSize {
		return nil, fmt.Errorf("%w: blob is %d bytes, need at least %d", ErrMalformedKeystore, len(w.Blob), minSize)
	}

	salt := w.Blob[:SaltSize]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(w.Blob[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(w.Blob[SaltSize+4:]),
		Parallelism: w.Blob[SaltSize+8],
	}
	nonce := w.Blob[headerSize : headerSize+nonceSize]
	ciphertext := w.Blob[headerSize+nonceSize:]

	derived := deriveKey(password, salt, params)
	defer zero(derived)

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// AEAD failure with an intact header means the key was wrong.
		return nil, ErrWrongPassword
	}
	defer zero(plaintext)

	if len(plaintext) != PrivateKeySize {
		return nil, fmt.Errorf("%w: decrypted key is %d bytes", ErrMalformedKeystore, len(plaintext))
	}

	key, err := Import(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKeystore, err)
	}
	if key.Address() != w.Address {
		key.Zero()
		return nil, fmt.Errorf("%w: address mismatch", ErrMalformedKeystore)
	}
	return key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
