package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/famvault/famvault/internal/chainclient"
	"github.com/famvault/famvault/internal/family"
	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/internal/log"
	"github.com/famvault/famvault/pkg/types"
)

// Engine errors.
var (
	// ErrWrongPassword means the confirmation password failed. Nothing is
	// persisted for this case.
	ErrWrongPassword = errors.New("confirmation password does not match")
	// ErrUnrecognizedAsset means the token kind is not supported. No state
	// changes.
	ErrUnrecognizedAsset = errors.New("unrecognized token kind")
)

// Resolver resolves in-family destination references to addresses.
// *family.Graph implements it.
type Resolver interface {
	ResolveMember(actingID, reference string) (types.Address, error)
}

// Config holds the engine's asset configuration.
type Config struct {
	TokenContract types.Address
	NativeSymbol  string
	TokenSymbol   string
}

// Engine orchestrates one value transfer per call. It is request-scoped:
// no state is carried between calls beyond the durable stores, and
// concurrent transfers from one address are not mutually excluded — the
// chain's own nonce and balance enforcement settles races, surfaced here
// as broadcast rejections.
type Engine struct {
	graph   Resolver
	chain   chainclient.Client
	records *Store
	cfg     Config
	logger  zerolog.Logger
}

// NewEngine wires the transfer engine.
func NewEngine(graph Resolver, chain chainclient.Client, records *Store, cfg Config) *Engine {
	return &Engine{
		graph:   graph,
		chain:   chain,
		records: records,
		cfg:     cfg,
		logger:  log.Transfer,
	}
}

// Request describes one transfer attempt.
type Request struct {
	TokenKind       string       // "native" or "secondary"
	Destination     string       // hex address, guardian email, or dependent name
	Amount          types.Amount // human-scaled
	ConfirmPassword string       // second factor, re-verified per transfer
}

// Result is the classified outcome of a transfer attempt.
type Result struct {
	Status     Status
	TxHash     chainclient.TxHash
	ShortAsset string // which asset was short, when Status is insufficient
	Record     *Record
}

// Send runs the transfer state machine once:
//
//	Init -> Authenticated -> BalanceChecked -> Signed -> Broadcast -> Classified
//
// Early exits: wrong password (no record), insufficient balance (record
// persisted). Exactly one record is written for every call that gets past
// authentication. No retries; the caller owns retry decisions.
func (e *Engine) Send(actor *family.Identity, req Request) (*Result, error) {
	kind, ok := types.ParseTokenKind(req.TokenKind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedAsset, req.TokenKind)
	}

	// A live session is not sufficient to move funds: the password is
	// re-verified as a second factor on every transfer.
	if !family.Verify(req.ConfirmPassword, actor.PasswordHash) {
		return nil, ErrWrongPassword
	}

	// The wallet is sealed under the credential hash; the verified
	// password proves the right to use it.
	key, err := keyvault.Decrypt(actor.Wallet, []byte(actor.PasswordHash))
	if err != nil {
		return nil, fmt.Errorf("unlock wallet: %w", err)
	}
	defer key.Zero()

	dest, err := e.resolveDestination(actor.ID, req.Destination)
	if err != nil {
		return nil, err
	}

	symbol := e.symbol(kind)
	from := actor.Address()

	balance, err := e.balance(kind, from)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if balance.Cmp(req.Amount) < 0 {
		rec, err := e.persist(from, dest, req.Amount, symbol, StatusInsufficient, "")
		if err != nil {
			return nil, err
		}
		e.logger.Info().Str("record", rec.ID).Str("asset", symbol).Msg("transfer short of funds")
		return &Result{Status: StatusInsufficient, ShortAsset: symbol, Record: rec}, nil
	}

	hash, err := e.broadcast(kind, key, dest, req.Amount, from)
	if err != nil {
		if errors.Is(err, chainclient.ErrBroadcastRejected) && kind == types.TokenSecondary {
			// A token-path rejection is indistinguishable from a fee-asset
			// shortfall at this layer; it classifies as the native asset
			// being short.
			rec, perr := e.persist(from, dest, req.Amount, symbol, StatusInsufficient, "")
			if perr != nil {
				return nil, perr
			}
			e.logger.Info().Str("record", rec.ID).Msg("token broadcast rejected, classified insufficient")
			return &Result{Status: StatusInsufficient, ShortAsset: e.cfg.NativeSymbol, Record: rec}, nil
		}
		// Native-path rejections and transport failures are hard errors;
		// the attempt is still recorded for audit.
		status := StatusPending
		if errors.Is(err, chainclient.ErrBroadcastRejected) {
			status = StatusReverted
		}
		if _, perr := e.persist(from, dest, req.Amount, symbol, status, ""); perr != nil {
			return nil, errors.Join(err, perr)
		}
		return nil, err
	}

	status := e.classify(hash)
	rec, err := e.persist(from, dest, req.Amount, symbol, status, hash)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("record", rec.ID).
		Str("tx", string(hash)).
		Str("status", status.String()).
		Msg("transfer broadcast")
	return &Result{Status: status, TxHash: hash, Record: rec}, nil
}

// History lists an address's transfer records, most recent first.
func (e *Engine) History(addr types.Address, limit int) ([]*Record, error) {
	return e.records.ListByAddress(addr, limit)
}

// resolveDestination accepts a verbatim hex address or resolves a family
// member reference through the graph.
func (e *Engine) resolveDestination(actorID, reference string) (types.Address, error) {
	if types.LooksLikeAddress(reference) {
		return types.ParseAddress(reference)
	}
	return e.graph.ResolveMember(actorID, reference)
}

func (e *Engine) symbol(kind types.TokenKind) string {
	if kind == types.TokenNative {
		return e.cfg.NativeSymbol
	}
	return e.cfg.TokenSymbol
}

func (e *Engine) balance(kind types.TokenKind, addr types.Address) (types.Amount, error) {
	if kind == types.TokenNative {
		return e.chain.BalanceNative(addr)
	}
	return e.chain.BalanceToken(e.cfg.TokenContract, addr)
}

func (e *Engine) broadcast(kind types.TokenKind, key *keyvault.Key, dest types.Address, amount types.Amount, from types.Address) (chainclient.TxHash, error) {
	nonce, err := e.chain.NextNonce(from)
	if err != nil {
		return "", fmt.Errorf("query nonce: %w", err)
	}
	gasPrice, err := e.chain.GasPrice()
	if err != nil {
		return "", fmt.Errorf("query gas price: %w", err)
	}

	if kind == types.TokenNative {
		return e.chain.SignAndBroadcastNative(key, dest, amount, nonce, gasPrice)
	}
	return e.chain.SignAndBroadcastToken(key, e.cfg.TokenContract, dest, amount, nonce, gasPrice)
}

// classify performs the single post-broadcast receipt lookup. A receipt
// that cannot be fetched yet records optimistically as pending.
func (e *Engine) classify(hash chainclient.TxHash) Status {
	receipt, err := e.chain.ReceiptStatus(hash)
	if err != nil {
		e.logger.Warn().Err(err).Str("tx", string(hash)).Msg("receipt lookup failed")
		return StatusPending
	}
	switch receipt {
	case chainclient.ReceiptConfirmed:
		return StatusConfirmed
	case chainclient.ReceiptReverted:
		return StatusReverted
	}
	return StatusPending
}

func (e *Engine) persist(from, to types.Address, amount types.Amount, symbol string, status Status, hash chainclient.TxHash) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		Status:    status,
		Token:     symbol,
		TxHash:    hash,
		Timestamp: time.Now().UTC(),
	}
	if err := e.records.Put(rec); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}
	return rec, nil
}
