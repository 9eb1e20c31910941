package types

import (
	"encoding/json"
	"strings"
	"testing"
)

// Known EIP-55 vectors.
var checksumVectors = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestAddressChecksum(t *testing.T) {
	for _, want := range checksumVectors {
		addr, err := ParseAddress(strings.ToLower(want))
		if err != nil {
			t.Fatalf("ParseAddress(%q) error: %v", want, err)
		}
		if got := addr.String(); got != want {
			t.Errorf("checksum = %s, want %s", got, want)
		}
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{
		"",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",       // no prefix
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe",      // short
		"0xzzAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",     // bad hex
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00",   // long
	}
	for _, c := range cases {
		if _, err := ParseAddress(c); err == nil {
			t.Errorf("ParseAddress(%q) should fail", c)
		}
	}
}

func TestLooksLikeAddress(t *testing.T) {
	if !LooksLikeAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed") {
		t.Error("valid address not recognized")
	}
	if LooksLikeAddress("alice") {
		t.Error("name mistaken for address")
	}
	if LooksLikeAddress("alice@example.com") {
		t.Error("email mistaken for address")
	}
}

func TestAddressJSONRoundtrip(t *testing.T) {
	addr, err := ParseAddress(checksumVectors[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Address
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != addr {
		t.Errorf("roundtrip mismatch: %s != %s", back, addr)
	}
}
