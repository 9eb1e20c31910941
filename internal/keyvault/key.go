// Package keyvault implements custody primitives: key generation, EVM
// address derivation, and password-based encryption of private keys into
// portable, self-describing blobs.
package keyvault

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/famvault/famvault/pkg/types"
)

// PrivateKeySize is the length of a raw private key scalar.
const PrivateKeySize = 32

// Key wraps a secp256k1 private key. Callers holding a Key must call
// Zero() on every exit path once signing material is no longer needed.
type Key struct {
	priv *secp256k1.PrivateKey
}

// Generate creates a new random key from the CSPRNG.
func Generate() (*Key, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{priv: priv}, nil
}

// Import wraps an existing 32-byte private key scalar.
func Import(raw []byte) (*Key, error) {
	if len(raw) != PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", PrivateKeySize, len(raw))
	}
	return &Key{priv: secp256k1.PrivKeyFromBytes(raw)}, nil
}

// Address derives the account address: the last 20 bytes of
// keccak256 over the uncompressed public key body.
func (k *Key) Address() types.Address {
	pub := k.priv.PubKey().SerializeUncompressed()
	sum := types.Keccak256(pub[1:])
	addr, _ := types.AddressFromBytes(sum[12:])
	return addr
}

// Bytes returns the 32-byte private key scalar.
func (k *Key) Bytes() []byte {
	return k.priv.Serialize()
}

// Secp256k1 exposes the underlying key for signing.
func (k *Key) Secp256k1() *secp256k1.PrivateKey {
	return k.priv
}

// Zero scrubs the private key material.
func (k *Key) Zero() {
	k.priv.Zero()
}
