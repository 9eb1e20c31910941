package transfer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/famvault/famvault/internal/storage"
	"github.com/famvault/famvault/pkg/types"
)

func TestStore_ListByAddress_NewestFirst(t *testing.T) {
	store := NewStore(storage.NewMemory())
	alice, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob, _ := types.ParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &Record{
			ID:        fmt.Sprintf("tx-%d", i),
			From:      alice,
			To:        bob,
			Amount:    amount(t, "10"),
			Status:    StatusConfirmed,
			Token:     "BNB",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Put(rec); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	recs, err := store.ListByAddress(alice, 100)
	if err != nil {
		t.Fatalf("ListByAddress: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("got %d records, want 5", len(recs))
	}
	for i, rec := range recs {
		want := fmt.Sprintf("tx-%d", 4-i)
		if rec.ID != want {
			t.Errorf("recs[%d].ID = %s, want %s", i, rec.ID, want)
		}
	}

	// The counterparty sees the same history.
	recs, err = store.ListByAddress(bob, 100)
	if err != nil {
		t.Fatalf("ListByAddress(bob): %v", err)
	}
	if len(recs) != 5 {
		t.Errorf("bob sees %d records, want 5", len(recs))
	}
}

func TestStore_ListByAddress_Limit(t *testing.T) {
	store := NewStore(storage.NewMemory())
	alice, _ := types.ParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob, _ := types.ParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

	base := time.Now()
	for i := 0; i < 10; i++ {
		rec := &Record{
			ID:        fmt.Sprintf("tx-%d", i),
			From:      alice,
			To:        bob,
			Amount:    amount(t, "1"),
			Status:    StatusConfirmed,
			Token:     "STP",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Put(rec); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	recs, err := store.ListByAddress(alice, 3)
	if err != nil {
		t.Fatalf("ListByAddress: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].ID != "tx-9" {
		t.Errorf("first record = %s, want tx-9", recs[0].ID)
	}

	recs, err = store.ListByAddress(alice, 0)
	if err != nil {
		t.Fatalf("ListByAddress(0): %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("limit 0 returned %d records", len(recs))
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := NewStore(storage.NewMemory())
	if _, err := store.Get("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}
