package types

import (
	"math/big"
	"testing"
)

func TestAmountWeiRoundtrip(t *testing.T) {
	a, err := ParseAmount("1.5")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	wei := a.ToWei(18)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Errorf("ToWei = %s, want %s", wei, want)
	}
	back := AmountFromWei(wei, 18)
	if back.Cmp(a) != 0 {
		t.Errorf("roundtrip = %s, want %s", back, a)
	}
}

func TestAmountTruncatesBeyondDecimals(t *testing.T) {
	a, err := ParseAmount("0.123456789")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	wei := a.ToWei(6)
	if wei.Int64() != 123456 {
		t.Errorf("ToWei(6) = %s, want 123456", wei)
	}
}

func TestParseAmount_Negative(t *testing.T) {
	if _, err := ParseAmount("-3"); err == nil {
		t.Error("negative amount should fail")
	}
}

func TestAmountCmp(t *testing.T) {
	a, _ := ParseAmount("100")
	b, _ := ParseAmount("150")
	if a.Cmp(b) != -1 {
		t.Errorf("100 < 150 expected")
	}
	if b.Cmp(a) != 1 {
		t.Errorf("150 > 100 expected")
	}
	if a.Cmp(a) != 0 {
		t.Errorf("100 == 100 expected")
	}
}
