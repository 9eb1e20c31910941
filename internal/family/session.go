package family

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zeebo/blake3"

	"github.com/famvault/famvault/internal/storage"
)

const keySession = "tok:"

// ErrSessionInvalid covers expired, revoked, and forged session tokens.
var ErrSessionInvalid = errors.New("session token invalid")

// Sessions issues and checks the session-bound opaque tokens that key the
// identity store. Tokens are HS256 JWTs; only a blake3 digest of each
// issued token is stored, so the store holds no usable credential.
type Sessions struct {
	db     storage.DB
	secret []byte
	ttl    time.Duration
}

// NewSessions creates a session manager on the given (prefixed) database.
func NewSessions(db storage.DB, secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{db: db, secret: secret, ttl: ttl}
}

type sessionClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// sessionEntry is the stored side of the token index. The expiry lets
// stale entries be swept without re-parsing any token.
type sessionEntry struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue mints a session token for an identity and indexes its digest.
func (s *Sessions) Issue(ident *Identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: ident.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "famvault",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	entry, err := json.Marshal(sessionEntry{ID: ident.ID, ExpiresAt: now.Add(s.ttl)})
	if err != nil {
		return "", fmt.Errorf("encode session entry: %w", err)
	}
	if err := s.db.Put(digestKey(token), entry); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	return token, nil
}

// Authenticate verifies a token's signature, expiry, and index presence,
// returning the bound identity id and role.
func (s *Sessions) Authenticate(token string) (string, Role, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// The token authenticated its own digest; drop the dead entry.
			_ = s.db.Delete(digestKey(token))
		}
		return "", "", ErrSessionInvalid
	}

	data, err := s.db.Get(digestKey(token))
	if errors.Is(err, storage.ErrNotFound) {
		return "", "", ErrSessionInvalid
	}
	if err != nil {
		return "", "", fmt.Errorf("session index: %w", err)
	}
	var entry sessionEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.ID != claims.Subject {
		return "", "", ErrSessionInvalid
	}
	return claims.Subject, claims.Role, nil
}

// PruneExpired removes index entries whose expiry has passed, returning
// how many were dropped. Revoke and the lazy delete in Authenticate keep
// the index small for active users; this sweep catches abandoned
// sessions.
func (s *Sessions) PruneExpired() (int, error) {
	now := time.Now()
	var stale [][]byte
	err := s.db.ForEach([]byte(keySession), func(key, value []byte) error {
		var entry sessionEntry
		if err := json.Unmarshal(value, &entry); err != nil || entry.ExpiresAt.Before(now) {
			k := make([]byte, len(key))
			copy(k, key)
			stale = append(stale, k)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}
	for _, key := range stale {
		if err := s.db.Delete(key); err != nil {
			return 0, fmt.Errorf("prune session: %w", err)
		}
	}
	return len(stale), nil
}

// Revoke removes a token from the index, ending the session.
func (s *Sessions) Revoke(token string) error {
	return s.db.Delete(digestKey(token))
}

func digestKey(token string) []byte {
	sum := blake3.Sum256([]byte(token))
	return []byte(keySession + hex.EncodeToString(sum[:]))
}
