package family

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/internal/log"
	"github.com/famvault/famvault/internal/storage"
	"github.com/famvault/famvault/pkg/types"
)

// Storage key prefixes within the graph's namespace.
const (
	keyGuardian  = "g:"
	keyDependent = "d:"
	keyEmail     = "email:"
	keyEdge      = "edge:" // edge:<guardian-id>:<dependent-id> -> creation order
)

// Graph is the account hierarchy store. All reads of the relation derive
// from the single edge table, so both directions stay consistent by
// construction.
type Graph struct {
	db     storage.DB
	params keyvault.EncryptionParams
	logger zerolog.Logger
}

// NewGraph creates a Graph on the given (already prefixed) database.
func NewGraph(db storage.DB, params keyvault.EncryptionParams) *Graph {
	return &Graph{
		db:     db,
		params: params,
		logger: log.Family,
	}
}

// CreateGuardian registers a new top-level account. The email must not be
// used by another guardian; dependents are exempt from uniqueness.
func (g *Graph) CreateGuardian(email, name, password string, src KeySource) (*Identity, error) {
	return g.createGuardian(email, name, password, src, nil)
}

// createGuardian writes the identity, its email index entry, and any
// linkTo edges in one batch, so a partial write can never surface.
func (g *Graph) createGuardian(email, name, password string, src KeySource, linkTo []*Identity) (*Identity, error) {
	if ok, err := g.db.Has([]byte(keyEmail + email)); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if ok {
		return nil, ErrDuplicateEmail
	}

	ident, err := g.newIdentity(RoleGuardian, email, name, password, src)
	if err != nil {
		return nil, err
	}

	batch := storage.NewBatch(g.db)
	if err := g.putIdentity(batch, ident); err != nil {
		return nil, err
	}
	if err := batch.Put([]byte(keyEmail+email), []byte(ident.ID)); err != nil {
		return nil, fmt.Errorf("index email: %w", err)
	}
	for _, dep := range linkTo {
		if err := g.putEdge(batch, ident.ID, dep.ID); err != nil {
			return nil, err
		}
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit guardian: %w", err)
	}

	g.logger.Info().Str("id", ident.ID).Str("address", ident.Address().String()).Msg("guardian created")
	return ident, nil
}

// CreateDependent provisions a subordinate account under a guardian. The
// dependent inherits the guardian's email and is linked immediately, so it
// never exists without a supervising guardian.
func (g *Graph) CreateDependent(guardianID, name, password string) (*Identity, error) {
	guardian, err := g.Get(guardianID)
	if err != nil {
		return nil, err
	}
	if !guardian.IsGuardian() {
		return nil, fmt.Errorf("%w: only guardians may create dependents", ErrNotFound)
	}

	ident, err := g.newIdentity(RoleDependent, guardian.Email, name, password, KeySource{})
	if err != nil {
		return nil, err
	}

	// Identity and edge commit together: a dependent must never be
	// readable without at least one supervising guardian.
	batch := storage.NewBatch(g.db)
	if err := g.putIdentity(batch, ident); err != nil {
		return nil, err
	}
	if err := g.putEdge(batch, guardian.ID, ident.ID); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit dependent: %w", err)
	}

	g.logger.Info().Str("id", ident.ID).Str("guardian", guardian.ID).Msg("dependent created")
	return ident, nil
}

// LinkGuardian creates a co-guardian and attaches it to every dependent of
// the acting guardian. It fails with ErrNoDependents when the acting
// guardian supervises nobody: a guardian-only subgraph would have no
// shared dependent anchoring it to the family.
func (g *Graph) LinkGuardian(actingGuardianID, email, name, password string, src KeySource) (*Identity, error) {
	deps, err := g.Dependents(actingGuardianID)
	if err != nil {
		return nil, err
	}
	if len(deps) == 0 {
		return nil, ErrNoDependents
	}

	coGuardian, err := g.createGuardian(email, name, password, src, deps)
	if err != nil {
		return nil, err
	}

	g.logger.Info().Str("id", coGuardian.ID).Int("dependents", len(deps)).Msg("co-guardian linked")
	return coGuardian, nil
}

// ResolveMember maps a destination reference to a wallet address. A
// reference containing "@" resolves the unique guardian with that email;
// anything else resolves a dependent with that name among the acting
// identity's own dependents. This is the only in-family resolution path —
// external addresses bypass the graph entirely.
func (g *Graph) ResolveMember(actingID, reference string) (types.Address, error) {
	if strings.Contains(reference, "@") {
		guardian, err := g.GuardianByEmail(reference)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return types.Address{}, ErrMemberNotFound
			}
			return types.Address{}, err
		}
		return guardian.Address(), nil
	}

	deps, err := g.Dependents(actingID)
	if err != nil {
		return types.Address{}, err
	}
	for _, dep := range deps {
		if dep.Name == reference {
			return dep.Address(), nil
		}
	}
	return types.Address{}, ErrMemberNotFound
}

// FamilyView returns the acting identity's directly connected guardians
// and dependents. For a dependent, the dependents list is derived from the
// first connected guardian's dependent set — a quirk kept from the
// original behavior, not corrected.
func (g *Graph) FamilyView(actingID string) (guardians, dependents []*Identity, err error) {
	acting, err := g.Get(actingID)
	if err != nil {
		return nil, nil, err
	}

	if acting.IsGuardian() {
		dependents, err = g.Dependents(acting.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(dependents) > 0 {
			guardians, err = g.Guardians(dependents[0].ID)
			if err != nil {
				return nil, nil, err
			}
		}
		return guardians, dependents, nil
	}

	guardians, err = g.Guardians(acting.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(guardians) > 0 {
		dependents, err = g.Dependents(guardians[0].ID)
		if err != nil {
			return nil, nil, err
		}
	}
	return guardians, dependents, nil
}

// Login authenticates by reference: email selects a guardian, a bare name
// selects a dependent. Returns ErrBadCredentials for unknown references
// and wrong passwords alike.
func (g *Graph) Login(reference, password string) (*Identity, error) {
	var (
		ident *Identity
		err   error
	)
	if strings.Contains(reference, "@") {
		ident, err = g.GuardianByEmail(reference)
	} else {
		ident, err = g.DependentByName(reference)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !Verify(password, ident.PasswordHash) {
		return nil, ErrBadCredentials
	}
	return ident, nil
}

// Get loads an identity by id, checking both variants.
func (g *Graph) Get(id string) (*Identity, error) {
	for _, prefix := range []string{keyGuardian, keyDependent} {
		data, err := g.db.Get([]byte(prefix + id))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load identity: %w", err)
		}
		return decodeIdentity(data)
	}
	return nil, ErrNotFound
}

// GuardianByEmail resolves the unique guardian owning an email.
func (g *Graph) GuardianByEmail(email string) (*Identity, error) {
	id, err := g.db.Get([]byte(keyEmail + email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("email index: %w", err)
	}
	return g.Get(string(id))
}

// DependentByName returns the first dependent with the given display name.
// Dependent names carry no uniqueness guarantee; first match wins, as in
// name-based login.
func (g *Graph) DependentByName(name string) (*Identity, error) {
	var found *Identity
	err := g.db.ForEach([]byte(keyDependent), func(_, value []byte) error {
		ident, err := decodeIdentity(value)
		if err != nil {
			return err
		}
		if ident.Name == name {
			found = ident
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Dependents returns a guardian's dependents in link-creation order.
func (g *Graph) Dependents(guardianID string) ([]*Identity, error) {
	ids, err := g.edgeScan([]byte(keyEdge+guardianID+":"), func(key []byte) string {
		return strings.TrimPrefix(string(key), keyEdge+guardianID+":")
	})
	if err != nil {
		return nil, err
	}
	return g.loadAll(ids)
}

// Guardians returns a dependent's guardians in link-creation order.
func (g *Graph) Guardians(dependentID string) ([]*Identity, error) {
	ids, err := g.edgeScan([]byte(keyEdge), func(key []byte) string {
		rest := strings.TrimPrefix(string(key), keyEdge)
		gid, did, ok := strings.Cut(rest, ":")
		if !ok || did != dependentID {
			return ""
		}
		return gid
	})
	if err != nil {
		return nil, err
	}
	return g.loadAll(ids)
}

// ── internals ───────────────────────────────────────────────────────────

var errStopIteration = errors.New("stop iteration")

func (g *Graph) newIdentity(role Role, email, name, password string, src KeySource) (*Identity, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	key, err := src.key()
	if err != nil {
		return nil, fmt.Errorf("obtain key: %w", err)
	}
	defer key.Zero()

	// The wallet is sealed under the credential hash, so the stored hash
	// is sufficient to decrypt once the plaintext password has verified.
	wallet, err := keyvault.Encrypt(key, []byte(hash), g.params)
	if err != nil {
		return nil, fmt.Errorf("encrypt wallet: %w", err)
	}

	return &Identity{
		ID:           uuid.NewString(),
		Role:         role,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Wallet:       wallet,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (g *Graph) putIdentity(batch storage.Batch, ident *Identity) error {
	prefix := keyGuardian
	if ident.Role == RoleDependent {
		prefix = keyDependent
	}
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := batch.Put([]byte(prefix+ident.ID), data); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

// putEdge stages one row of the edge table. Both derived directions read
// from the same row, so they stay consistent; the value records creation
// order for stable "first guardian" semantics.
func (g *Graph) putEdge(batch storage.Batch, guardianID, dependentID string) error {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(time.Now().UnixNano()))
	key := keyEdge + guardianID + ":" + dependentID
	if err := batch.Put([]byte(key), seq[:]); err != nil {
		return fmt.Errorf("store edge: %w", err)
	}
	return nil
}

// edgeScan collects ids from edge rows ordered by creation sequence.
func (g *Graph) edgeScan(prefix []byte, extract func(key []byte) string) ([]string, error) {
	type row struct {
		id  string
		seq uint64
	}
	var rows []row
	err := g.db.ForEach(prefix, func(key, value []byte) error {
		id := extract(key)
		if id == "" {
			return nil
		}
		var seq uint64
		if len(value) == 8 {
			seq = binary.BigEndian.Uint64(value)
		}
		rows = append(rows, row{id: id, seq: seq})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan edges: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids, nil
}

func (g *Graph) loadAll(ids []string) ([]*Identity, error) {
	out := make([]*Identity, 0, len(ids))
	for _, id := range ids {
		ident, err := g.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, nil
}

func decodeIdentity(data []byte) (*Identity, error) {
	var ident Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	return &ident, nil
}
