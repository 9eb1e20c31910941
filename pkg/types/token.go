package types

// TokenKind selects which asset a transfer moves.
type TokenKind string

const (
	// TokenNative is the chain's base settlement asset.
	TokenNative TokenKind = "native"
	// TokenSecondary is the pre-configured on-chain token contract.
	TokenSecondary TokenKind = "secondary"
)

// ParseTokenKind maps an API token segment to a TokenKind. The second
// return is false for anything unrecognized; callers decide the error.
func ParseTokenKind(s string) (TokenKind, bool) {
	switch TokenKind(s) {
	case TokenNative:
		return TokenNative, true
	case TokenSecondary:
		return TokenSecondary, true
	}
	return "", false
}

// TokenInfo describes one configured asset.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}
