package chainclient

import "math/big"

// Minimal RLP encoder covering the legacy-transaction subset: byte
// strings, unsigned integers (minimal big-endian form), and lists.

// rlpBytes encodes a byte string.
func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(rlpLength(len(b), 0x80), b...)
}

// rlpUint encodes an unsigned integer as its minimal big-endian bytes.
// Zero (and nil) encode as the empty string.
func rlpUint(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return []byte{0x80}
	}
	return rlpBytes(n.Bytes())
}

// rlpList concatenates already-encoded items under a list header.
func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	return append(rlpLength(len(payload), 0xc0), payload...)
}

// rlpLength builds the length prefix for a string (offset 0x80) or list
// (offset 0xc0) payload.
func rlpLength(n int, offset byte) []byte {
	if n <= 55 {
		return []byte{offset + byte(n)}
	}
	// Length-of-length form.
	var lenBytes []byte
	for v := n; v > 0; v >>= 8 {
		lenBytes = append([]byte{byte(v)}, lenBytes...)
	}
	return append([]byte{offset + 55 + byte(len(lenBytes))}, lenBytes...)
}
