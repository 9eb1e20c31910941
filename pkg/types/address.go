// Package types defines the shared primitive types for famvault:
// EVM addresses, human-scaled amounts, and asset kinds.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address represents a 160-bit account address.
type Address [AddressSize]byte

// ParseAddress decodes a 0x-prefixed hex address of any case.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("address must start with 0x: %q", s)
	}
	raw, err := hex.DecodeString(strings.ToLower(s[2:]))
	if err != nil {
		return a, fmt.Errorf("invalid address hex: %w", err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// AddressFromBytes builds an Address from a 20-byte slice.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// LooksLikeAddress reports whether s is shaped like a 0x hex address.
// Used to decide between verbatim destinations and member resolution.
func LooksLikeAddress(s string) bool {
	if len(s) != 2+AddressSize*2 {
		return false
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	_, err := hex.DecodeString(strings.ToLower(s[2:]))
	return err == nil
}

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// String returns the checksum-cased hex form (EIP-55): each hex letter is
// uppercased when the corresponding nibble of keccak256(lowercase hex) >= 8.
func (a Address) String() string {
	buf := []byte(hex.EncodeToString(a[:]))
	sum := Keccak256(buf)
	for i, c := range buf {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			buf[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(buf)
}

// MarshalJSON encodes the address as its checksum string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes an address from its string form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Keccak256 computes the legacy Keccak-256 digest used for address
// derivation and transaction hashing.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
