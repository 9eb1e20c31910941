package chainclient

import (
	"math/big"
	"testing"

	"github.com/famvault/famvault/internal/keyvault"
)

func mustKey(t *testing.T) *keyvault.Key {
	t.Helper()
	key, err := keyvault.Generate()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func big1() *big.Int {
	return big.NewInt(1_000_000_000)
}
