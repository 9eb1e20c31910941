package chainclient

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/pkg/types"
)

// txSpec describes a legacy (pre-EIP-1559) transaction.
type txSpec struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *types.Address // nil would mean contract creation; unused here
	Value    *big.Int
	Data     []byte
}

// signTx RLP-encodes and signs a legacy transaction with EIP-155 replay
// protection, returning the raw bytes ready for eth_sendRawTransaction.
func signTx(key *keyvault.Key, spec txSpec, chainID int64) ([]byte, error) {
	var toBytes []byte
	if spec.To != nil {
		toBytes = spec.To.Bytes()
	}

	// Signing payload: (nonce, gasPrice, gas, to, value, data, chainID, 0, 0).
	sigPayload := rlpList(
		rlpUint(new(big.Int).SetUint64(spec.Nonce)),
		rlpUint(spec.GasPrice),
		rlpUint(new(big.Int).SetUint64(spec.Gas)),
		rlpBytes(toBytes),
		rlpUint(spec.Value),
		rlpBytes(spec.Data),
		rlpUint(big.NewInt(chainID)),
		rlpUint(new(big.Int)),
		rlpUint(new(big.Int)),
	)
	sigHash := types.Keccak256(sigPayload)

	// Compact signature layout: [27+recid][R(32)][S(32)].
	compact := ecdsa.SignCompact(key.Secp256k1(), sigHash, false)
	if len(compact) != 65 {
		return nil, fmt.Errorf("unexpected signature length %d", len(compact))
	}
	recID := int64(compact[0]) - 27
	r := new(big.Int).SetBytes(compact[1:33])
	s := new(big.Int).SetBytes(compact[33:65])
	v := big.NewInt(chainID*2 + 35 + recID)

	raw := rlpList(
		rlpUint(new(big.Int).SetUint64(spec.Nonce)),
		rlpUint(spec.GasPrice),
		rlpUint(new(big.Int).SetUint64(spec.Gas)),
		rlpBytes(toBytes),
		rlpUint(spec.Value),
		rlpBytes(spec.Data),
		rlpUint(v),
		rlpUint(r),
		rlpUint(s),
	)
	return raw, nil
}

// ── ERC-20 calldata ─────────────────────────────────────────────────────

// 4-byte function selectors: keccak256 of the canonical signature.
const (
	selectorBalanceOf = "70a08231" // balanceOf(address)
	selectorTransfer  = "a9059cbb" // transfer(address,uint256)
)

// balanceOfData builds calldata for balanceOf(address).
func balanceOfData(addr types.Address) string {
	return "0x" + selectorBalanceOf + hex.EncodeToString(leftPad(addr.Bytes(), 32))
}

// transferData builds calldata for transfer(address,uint256).
func transferData(to types.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	selector, _ := hex.DecodeString(selectorTransfer)
	data = append(data, selector...)
	data = append(data, leftPad(to.Bytes(), 32)...)
	data = append(data, leftPad(amount.Bytes(), 32)...)
	return data
}

// leftPad zero-pads b on the left to size bytes.
func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

// ── Hex quantity helpers ────────────────────────────────────────────────

// parseQuantity decodes a 0x-prefixed hex quantity.
func parseQuantity(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("quantity missing 0x prefix: %q", s)
	}
	body := s[2:]
	if body == "" {
		return nil, fmt.Errorf("empty quantity: %q", s)
	}
	n, ok := new(big.Int).SetString(body, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity: %q", s)
	}
	return n, nil
}

// encodeBytes hex-encodes raw bytes with a 0x prefix.
func encodeBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
