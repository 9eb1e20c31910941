// Package family owns the guardian/dependent account graph: identity
// records, the bidirectional supervision edges between them, credential
// verification, and session tokens.
//
// Guardians are uniquely keyed by email; dependents inherit their creating
// guardian's email and are not unique. Every dependent has at least one
// guardian from the moment it exists. The relation is a many-to-many
// graph stored as a single edge table; both directions are derived views.
package family

import (
	"errors"
	"time"

	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/pkg/types"
)

// Domain errors.
var (
	ErrDuplicateEmail = errors.New("email already registered to a guardian")
	ErrNoDependents   = errors.New("add a dependent before adding a co-guardian")
	ErrMemberNotFound = errors.New("no family member matches that reference")
	ErrNotFound       = errors.New("identity not found")
	ErrBadCredentials = errors.New("invalid credentials")
)

// Role tags the two identity variants.
type Role string

const (
	RoleGuardian  Role = "guardian"
	RoleDependent Role = "dependent"
)

// Identity is a custodial account: a guardian or a dependent. The two
// variants share one record shape; the Role tag and the edge table carry
// the asymmetry (email uniqueness, who may create whom).
type Identity struct {
	ID           string                   `json:"id"`
	Role         Role                     `json:"role"`
	Email        string                   `json:"email"`
	Name         string                   `json:"name"`
	PasswordHash string                   `json:"password_hash"`
	Wallet       keyvault.EncryptedWallet `json:"wallet"`
	CreatedAt    time.Time                `json:"created_at"`
}

// Address returns the identity's wallet address without touching secrets.
func (i *Identity) Address() types.Address {
	return i.Wallet.Address
}

// IsGuardian reports whether the identity is a guardian.
func (i *Identity) IsGuardian() bool {
	return i.Role == RoleGuardian
}

// KeySource selects where a new identity's private key comes from.
// Zero value means generate a fresh one.
type KeySource struct {
	Raw      []byte // 32-byte private key, optional
	Mnemonic string // BIP-39 phrase, optional
}

// key materializes the source into a private key.
func (s KeySource) key() (*keyvault.Key, error) {
	switch {
	case len(s.Raw) > 0:
		return keyvault.Import(s.Raw)
	case s.Mnemonic != "":
		return keyvault.KeyFromMnemonic(s.Mnemonic)
	default:
		return keyvault.Generate()
	}
}
