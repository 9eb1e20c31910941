// Package chainclient talks JSON-RPC 2.0 to a single EVM chain endpoint:
// balance and nonce queries, gas price, raw transaction broadcast, and
// receipt lookups. Transaction signing happens locally; private keys never
// leave the process.
package chainclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/pkg/types"
)

// ErrBroadcastRejected is returned when the node refuses a transaction at
// submission time (nonce race, underpriced gas, insufficient fee balance).
var ErrBroadcastRejected = errors.New("broadcast rejected by node")

// TxHash is a 0x-prefixed transaction hash as reported by the node.
type TxHash string

// ReceiptStatus classifies a single receipt lookup.
type ReceiptStatus int

const (
	// ReceiptNotFound means the transaction is not yet mined (or unknown).
	ReceiptNotFound ReceiptStatus = iota
	// ReceiptConfirmed means the transaction executed successfully.
	ReceiptConfirmed
	// ReceiptReverted means the transaction was mined but reverted.
	ReceiptReverted
)

// Client is the chain boundary the transfer engine depends on. The real
// implementation is HTTPClient; tests substitute a fake.
type Client interface {
	BalanceNative(addr types.Address) (types.Amount, error)
	BalanceToken(token, addr types.Address) (types.Amount, error)
	NextNonce(addr types.Address) (uint64, error)
	GasPrice() (*big.Int, error)
	SignAndBroadcastNative(key *keyvault.Key, to types.Address, amount types.Amount, nonce uint64, gasPrice *big.Int) (TxHash, error)
	SignAndBroadcastToken(key *keyvault.Key, token, to types.Address, amount types.Amount, nonce uint64, gasPrice *big.Int) (TxHash, error)
	ReceiptStatus(hash TxHash) (ReceiptStatus, error)
}

// Options configures an HTTPClient.
type Options struct {
	Endpoint       string
	ChainID        int64
	NativeDecimals int32
	TokenDecimals  int32
	GasLimitNative uint64
	GasLimitToken  uint64
	Timeout        time.Duration
}

// HTTPClient implements Client over JSON-RPC 2.0 HTTP.
type HTTPClient struct {
	opts Options
	http *http.Client
}

// New creates a chain client targeting the configured endpoint.
func New(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the node responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the
// provided pointer. If result is nil, the response result is discarded.
func (c *HTTPClient) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.opts.Endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// BalanceNative returns the human-scaled base-asset balance.
func (c *HTTPClient) BalanceNative(addr types.Address) (types.Amount, error) {
	var hexBal string
	if err := c.Call("eth_getBalance", []interface{}{addr.String(), "latest"}, &hexBal); err != nil {
		return types.Amount{}, fmt.Errorf("get balance: %w", err)
	}
	wei, err := parseQuantity(hexBal)
	if err != nil {
		return types.Amount{}, fmt.Errorf("get balance: %w", err)
	}
	return types.AmountFromWei(wei, c.opts.NativeDecimals), nil
}

// callParam is the eth_call transaction object.
type callParam struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// BalanceToken returns the human-scaled token balance via balanceOf.
func (c *HTTPClient) BalanceToken(token, addr types.Address) (types.Amount, error) {
	var hexBal string
	params := []interface{}{
		callParam{To: token.String(), Data: balanceOfData(addr)},
		"latest",
	}
	if err := c.Call("eth_call", params, &hexBal); err != nil {
		return types.Amount{}, fmt.Errorf("token balance: %w", err)
	}
	wei, err := parseQuantity(hexBal)
	if err != nil {
		return types.Amount{}, fmt.Errorf("token balance: %w", err)
	}
	return types.AmountFromWei(wei, c.opts.TokenDecimals), nil
}

// NextNonce returns the pending transaction count for an address. Values
// are monotonically non-decreasing as observed by the node; concurrent
// callers may see the same nonce and race at broadcast time.
func (c *HTTPClient) NextNonce(addr types.Address) (uint64, error) {
	var hexNonce string
	if err := c.Call("eth_getTransactionCount", []interface{}{addr.String(), "pending"}, &hexNonce); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	n, err := parseQuantity(hexNonce)
	if err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return n.Uint64(), nil
}

// GasPrice returns the node's suggested gas price in smallest units.
func (c *HTTPClient) GasPrice() (*big.Int, error) {
	var hexPrice string
	if err := c.Call("eth_gasPrice", nil, &hexPrice); err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	price, err := parseQuantity(hexPrice)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	return price, nil
}

// SignAndBroadcastNative signs and submits a base-asset transfer.
func (c *HTTPClient) SignAndBroadcastNative(key *keyvault.Key, to types.Address, amount types.Amount, nonce uint64, gasPrice *big.Int) (TxHash, error) {
	spec := txSpec{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      c.opts.GasLimitNative,
		To:       &to,
		Value:    amount.ToWei(c.opts.NativeDecimals),
	}
	return c.broadcast(key, spec)
}

// SignAndBroadcastToken signs and submits a token transfer carried as
// transfer(address,uint256) calldata addressed to the token contract.
func (c *HTTPClient) SignAndBroadcastToken(key *keyvault.Key, token, to types.Address, amount types.Amount, nonce uint64, gasPrice *big.Int) (TxHash, error) {
	spec := txSpec{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      c.opts.GasLimitToken,
		To:       &token,
		Value:    new(big.Int),
		Data:     transferData(to, amount.ToWei(c.opts.TokenDecimals)),
	}
	return c.broadcast(key, spec)
}

func (c *HTTPClient) broadcast(key *keyvault.Key, spec txSpec) (TxHash, error) {
	raw, err := signTx(key, spec, c.opts.ChainID)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	var hash string
	if err := c.Call("eth_sendRawTransaction", []interface{}{encodeBytes(raw)}, &hash); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %s", ErrBroadcastRejected, rpcErr.Message)
		}
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return TxHash(hash), nil
}

// receiptResult is the subset of eth_getTransactionReceipt we read.
type receiptResult struct {
	Status string `json:"status"`
}

// ReceiptStatus performs a single receipt lookup.
func (c *HTTPClient) ReceiptStatus(hash TxHash) (ReceiptStatus, error) {
	var rec *receiptResult
	if err := c.Call("eth_getTransactionReceipt", []interface{}{string(hash)}, &rec); err != nil {
		return ReceiptNotFound, fmt.Errorf("get receipt: %w", err)
	}
	if rec == nil {
		return ReceiptNotFound, nil
	}
	if rec.Status == "0x1" {
		return ReceiptConfirmed, nil
	}
	return ReceiptReverted, nil
}
