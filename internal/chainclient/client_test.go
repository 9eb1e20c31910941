package chainclient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/famvault/famvault/pkg/types"
)

// fakeNode answers JSON-RPC requests with canned results per method.
func fakeNode(t *testing.T, results map[string]interface{}, rpcErrs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req request
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		resp := response{JSONRPC: "2.0", ID: req.ID}
		if msg, ok := rpcErrs[req.Method]; ok {
			resp.Error = &rpcError{Code: -32000, Message: msg}
		} else if res, ok := results[req.Method]; ok {
			raw, _ := json.Marshal(res)
			resp.Result = raw
		} else {
			resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(t *testing.T, srv *httptest.Server) *HTTPClient {
	t.Helper()
	return New(Options{
		Endpoint:       srv.URL,
		ChainID:        97,
		NativeDecimals: 18,
		TokenDecimals:  18,
		GasLimitNative: 2_000_000,
		GasLimitToken:  200_000,
	})
}

func TestBalanceNative_HumanScaled(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"eth_getBalance": "0xde0b6b3a7640000", // 1e18
	}, nil)
	defer srv.Close()

	addr, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bal, err := testClient(t, srv).BalanceNative(addr)
	if err != nil {
		t.Fatalf("BalanceNative: %v", err)
	}
	one, _ := types.ParseAmount("1")
	if bal.Cmp(one) != 0 {
		t.Errorf("balance = %s, want 1", bal)
	}
}

func TestBalanceToken_HumanScaled(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"eth_call": "0x00000000000000000000000000000000000000000000003635c9adc5dea00000", // 1000e18
	}, nil)
	defer srv.Close()

	token, _ := types.ParseAddress("0xC0A2Db0E13e29141DCb7Da723eEEAE3c5517DB52")
	addr, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bal, err := testClient(t, srv).BalanceToken(token, addr)
	if err != nil {
		t.Fatalf("BalanceToken: %v", err)
	}
	want, _ := types.ParseAmount("1000")
	if bal.Cmp(want) != 0 {
		t.Errorf("token balance = %s, want 1000", bal)
	}
}

func TestNextNonceAndGasPrice(t *testing.T) {
	srv := fakeNode(t, map[string]interface{}{
		"eth_getTransactionCount": "0x2a",
		"eth_gasPrice":            "0x4a817c800",
	}, nil)
	defer srv.Close()

	c := testClient(t, srv)
	addr, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	nonce, err := c.NextNonce(addr)
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if nonce != 42 {
		t.Errorf("nonce = %d, want 42", nonce)
	}

	price, err := c.GasPrice()
	if err != nil {
		t.Fatalf("GasPrice: %v", err)
	}
	if price.Int64() != 20_000_000_000 {
		t.Errorf("gas price = %s, want 20000000000", price)
	}
}

func TestBroadcast_Rejection(t *testing.T) {
	srv := fakeNode(t, nil, map[string]string{
		"eth_sendRawTransaction": "insufficient funds for gas * price + value",
	})
	defer srv.Close()

	c := testClient(t, srv)
	key := mustKey(t)
	defer key.Zero()
	to, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	amount, _ := types.ParseAmount("1")

	_, err := c.SignAndBroadcastNative(key, to, amount, 0, big1())
	if !errors.Is(err, ErrBroadcastRejected) {
		t.Errorf("error = %v, want ErrBroadcastRejected", err)
	}
}

func TestReceiptStatus(t *testing.T) {
	cases := []struct {
		result interface{}
		want   ReceiptStatus
	}{
		{map[string]string{"status": "0x1"}, ReceiptConfirmed},
		{map[string]string{"status": "0x0"}, ReceiptReverted},
		{nil, ReceiptNotFound},
	}
	for _, c := range cases {
		srv := fakeNode(t, map[string]interface{}{
			"eth_getTransactionReceipt": c.result,
		}, nil)
		got, err := testClient(t, srv).ReceiptStatus("0xabc")
		srv.Close()
		if err != nil {
			t.Fatalf("ReceiptStatus: %v", err)
		}
		if got != c.want {
			t.Errorf("status = %v, want %v", got, c.want)
		}
	}
}
