package family

import (
	"errors"
	"testing"
	"time"

	"github.com/famvault/famvault/internal/storage"
)

func newTestSessions(ttl time.Duration) *Sessions {
	return NewSessions(storage.NewMemory(), []byte("test-secret"), ttl)
}

func TestSessionRoundtrip(t *testing.T) {
	s := newTestSessions(time.Hour)
	ident := &Identity{ID: "id-1", Role: RoleGuardian}

	token, err := s.Issue(ident)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, role, err := s.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id != "id-1" || role != RoleGuardian {
		t.Errorf("Authenticate = (%s, %s), want (id-1, guardian)", id, role)
	}
}

func TestSessionRevoke(t *testing.T) {
	s := newTestSessions(time.Hour)
	token, err := s.Issue(&Identity{ID: "id-1", Role: RoleDependent})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := s.Revoke(token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, _, err := s.Authenticate(token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("revoked token error = %v, want ErrSessionInvalid", err)
	}
}

func TestSessionTampered(t *testing.T) {
	s := newTestSessions(time.Hour)
	token, err := s.Issue(&Identity{ID: "id-1", Role: RoleGuardian})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := s.Authenticate(token + "x"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("tampered token error = %v, want ErrSessionInvalid", err)
	}
}

func TestSessionExpired(t *testing.T) {
	db := storage.NewMemory()
	s := NewSessions(db, []byte("test-secret"), -time.Minute) // already expired at issue time
	token, err := s.Issue(&Identity{ID: "id-1", Role: RoleGuardian})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := s.Authenticate(token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expired token error = %v, want ErrSessionInvalid", err)
	}
	// Authenticating an expired token drops its index entry.
	if ok, _ := db.Has(digestKey(token)); ok {
		t.Error("index entry still present after expired Authenticate")
	}
}

func TestSessionPruneExpired(t *testing.T) {
	db := storage.NewMemory()
	secret := []byte("test-secret")
	expired := NewSessions(db, secret, -time.Minute)
	live := NewSessions(db, secret, time.Hour)

	if _, err := expired.Issue(&Identity{ID: "id-old", Role: RoleGuardian}); err != nil {
		t.Fatalf("Issue expired: %v", err)
	}
	liveToken, err := live.Issue(&Identity{ID: "id-new", Role: RoleGuardian})
	if err != nil {
		t.Fatalf("Issue live: %v", err)
	}

	n, err := live.PruneExpired()
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d entries, want 1", n)
	}

	if id, _, err := live.Authenticate(liveToken); err != nil || id != "id-new" {
		t.Errorf("live session after prune = (%s, %v), want id-new", id, err)
	}

	var remaining int
	db.ForEach([]byte(keySession), func(_, _ []byte) error {
		remaining++
		return nil
	})
	if remaining != 1 {
		t.Errorf("index holds %d entries after prune, want 1", remaining)
	}
}
