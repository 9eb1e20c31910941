// Package transfer implements the custodial transfer engine: a single
// pass through authenticate, balance-check, sign, broadcast, classify,
// with a durable audit record for every attempt that gets past
// authentication.
package transfer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/famvault/famvault/internal/chainclient"
	"github.com/famvault/famvault/internal/storage"
	"github.com/famvault/famvault/pkg/types"
)

// Status classifies a transfer attempt. The legacy scheme overloaded one
// code for both "insufficient" and "reverted"; these are kept distinct
// here: 0=pending, 1=insufficient, 2=confirmed, 3=reverted.
type Status int

const (
	StatusPending      Status = 0
	StatusInsufficient Status = 1
	StatusConfirmed    Status = 2
	StatusReverted     Status = 3
)

// String returns the API name for a status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInsufficient:
		return "insufficient"
	case StatusConfirmed:
		return "confirmed"
	case StatusReverted:
		return "reverted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Record is the durable audit entry for one attempted value movement.
// Immutable once written.
type Record struct {
	ID        string            `json:"id"`
	From      types.Address     `json:"from"`
	To        types.Address     `json:"to"`
	Amount    types.Amount      `json:"amount"`
	Status    Status            `json:"status"`
	Token     string            `json:"token"`
	TxHash    chainclient.TxHash `json:"tx_hash,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Storage key prefixes within the store's namespace.
const (
	keyRecord = "rec:"
	keyAddr   = "addr:" // addr:<hex-address>:<reverse-ts>:<id> -> record id
)

// Store persists transfer records and a per-address, most-recent-first
// index covering both sides of each transfer.
type Store struct {
	db storage.DB
}

// NewStore creates a record store on the given (prefixed) database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Put writes a record and its address index rows.
func (s *Store) Put(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.db.Put([]byte(keyRecord+rec.ID), data); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	for _, addr := range []types.Address{rec.From, rec.To} {
		if err := s.db.Put(indexKey(addr, rec), []byte(rec.ID)); err != nil {
			return fmt.Errorf("index record: %w", err)
		}
	}
	return nil
}

// Get loads a record by id.
func (s *Store) Get(id string) (*Record, error) {
	data, err := s.db.Get([]byte(keyRecord + id))
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", id, err)
	}
	return &rec, nil
}

// ListByAddress returns up to limit records involving an address,
// most recent first.
func (s *Store) ListByAddress(addr types.Address, limit int) ([]*Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var out []*Record
	prefix := []byte(keyAddr + addrHex(addr) + ":")
	errDone := errors.New("done")
	err := s.db.ForEach(prefix, func(_, value []byte) error {
		rec, err := s.Get(string(value))
		if err != nil {
			return err
		}
		out = append(out, rec)
		if len(out) >= limit {
			return errDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return nil, err
	}
	return out, nil
}

// indexKey orders entries newest-first by complementing the timestamp.
func indexKey(addr types.Address, rec *Record) []byte {
	var inv [8]byte
	binary.BigEndian.PutUint64(inv[:], ^uint64(rec.Timestamp.UnixNano()))
	key := keyAddr + addrHex(addr) + ":" + fmt.Sprintf("%x", inv) + ":" + rec.ID
	return []byte(key)
}

func addrHex(addr types.Address) string {
	return strings.ToLower(addr.String())
}
