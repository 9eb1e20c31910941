package chainclient

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/pkg/types"
)

// The signing test vector from the EIP-155 specification.
func TestSignTx_EIP155Vector(t *testing.T) {
	rawKey, _ := hex.DecodeString("4646464646464646464646464646464646464646464646464646464646464646")
	key, err := keyvault.Import(rawKey)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	to, err := types.ParseAddress("0x3535353535353535353535353535353535353535")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}

	value, _ := new(big.Int).SetString("1000000000000000000", 10)
	spec := txSpec{
		Nonce:    9,
		GasPrice: big.NewInt(20_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    value,
	}

	raw, err := signTx(key, spec, 1)
	if err != nil {
		t.Fatalf("signTx: %v", err)
	}

	want := "f86c098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a76400008025a028ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276a067cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83"
	if got := hex.EncodeToString(raw); got != want {
		t.Errorf("signed tx =\n%s\nwant\n%s", got, want)
	}
}

func TestTransferData(t *testing.T) {
	to, err := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	data := transferData(to, big.NewInt(1000))

	if len(data) != 4+32+32 {
		t.Fatalf("calldata length = %d, want 68", len(data))
	}
	if hex.EncodeToString(data[:4]) != selectorTransfer {
		t.Errorf("selector = %x, want %s", data[:4], selectorTransfer)
	}
	// Address argument is left-padded into the first slot.
	if hex.EncodeToString(data[4+12:4+32]) != "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" {
		t.Errorf("padded address wrong: %x", data[4:36])
	}
	// Amount occupies the second slot.
	if got := new(big.Int).SetBytes(data[36:]); got.Int64() != 1000 {
		t.Errorf("amount = %s, want 1000", got)
	}
}

func TestBalanceOfData(t *testing.T) {
	addr, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	got := balanceOfData(addr)
	want := "0x70a082310000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	if got != want {
		t.Errorf("balanceOfData = %s, want %s", got, want)
	}
}

func TestParseQuantity(t *testing.T) {
	n, err := parseQuantity("0xde0b6b3a7640000")
	if err != nil {
		t.Fatalf("parseQuantity: %v", err)
	}
	want, _ := new(big.Int).SetString("1000000000000000000", 10)
	if n.Cmp(want) != 0 {
		t.Errorf("parseQuantity = %s, want %s", n, want)
	}

	for _, bad := range []string{"", "123", "0x", "0xzz"} {
		if _, err := parseQuantity(bad); err == nil {
			t.Errorf("parseQuantity(%q) should fail", bad)
		}
	}
}
