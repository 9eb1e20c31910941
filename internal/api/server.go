// Package api exposes the family wallet over HTTP: guardian
// registration and login, family management, and the transfer surface.
// All routes except register and login require a bearer session token.
package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/famvault/famvault/internal/chainclient"
	"github.com/famvault/famvault/internal/family"
	"github.com/famvault/famvault/internal/keyvault"
	"github.com/famvault/famvault/internal/log"
	"github.com/famvault/famvault/internal/transfer"
	"github.com/famvault/famvault/pkg/types"
)

// Password bounds enforced at the boundary; the stores accept anything.
const (
	minPasswordLen = 6
	maxPasswordLen = 20
)

const maxBodyBytes = 1 << 20

const defaultHistoryLimit = 50

type ctxKey int

const identityKey ctxKey = 0

// Server handles the HTTP surface. It owns no state of its own; all
// durable state lives behind the graph, sessions and engine.
type Server struct {
	graph    *family.Graph
	sessions *family.Sessions
	engine   *transfer.Engine
	chain    chainclient.Client
	cfg      Config
	logger   zerolog.Logger
}

// Config carries the configured assets the wallet view reports.
type Config struct {
	TokenContract types.Address
	Native        types.TokenInfo
	Token         types.TokenInfo
}

// NewServer wires the HTTP layer.
func NewServer(graph *family.Graph, sessions *family.Sessions, engine *transfer.Engine, chain chainclient.Client, cfg Config) *Server {
	return &Server{
		graph:    graph,
		sessions: sessions,
		engine:   engine,
		chain:    chain,
		cfg:      cfg,
		logger:   log.API,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	auth := r.PathPrefix("/api").Subrouter()
	auth.Use(s.requireSession)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/wallet", s.handleWallet).Methods(http.MethodGet)
	auth.HandleFunc("/family", s.handleFamily).Methods(http.MethodGet)
	auth.HandleFunc("/family/dependents", s.handleAddDependent).Methods(http.MethodPost)
	auth.HandleFunc("/family/guardians", s.handleAddGuardian).Methods(http.MethodPost)
	auth.HandleFunc("/resolve", s.handleResolve).Methods(http.MethodPost)
	auth.HandleFunc("/transfer/{kind}", s.handleTransfer).Methods(http.MethodPost)
	auth.HandleFunc("/transfers", s.handleTransfers).Methods(http.MethodGet)
	return r
}

// requireSession authenticates the bearer token and loads the caller's
// identity into the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		id, _, err := s.sessions.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "session expired or invalid")
			return
		}
		ident, err := s.graph.Get(id)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "session subject no longer exists")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func validPassword(p string) bool {
	return len(p) >= minPasswordLen && len(p) <= maxPasswordLen
}

type registerRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	PrivateKey string `json:"private_key,omitempty"` // hex, optional
	Mnemonic   string `json:"mnemonic,omitempty"`    // BIP-39, optional
}

type memberView struct {
	ID      string        `json:"id"`
	Role    family.Role   `json:"role"`
	Email   string        `json:"email,omitempty"`
	Name    string        `json:"name"`
	Address types.Address `json:"address"`
}

func viewOf(i *family.Identity) memberView {
	v := memberView{ID: i.ID, Role: i.Role, Name: i.Name, Address: i.Address()}
	if i.IsGuardian() {
		v.Email = i.Email
	}
	return v
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and name are required")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "invalid_password", "password must be 6-20 characters")
		return
	}
	src, ok := keySource(w, req.PrivateKey, req.Mnemonic)
	if !ok {
		return
	}

	ident, err := s.graph.CreateGuardian(req.Email, req.Name, req.Password, src)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info().Str("id", ident.ID).Msg("guardian registered")
	writeJSON(w, http.StatusCreated, viewOf(ident))
}

func keySource(w http.ResponseWriter, privateKey, mnemonic string) (family.KeySource, bool) {
	var src family.KeySource
	if privateKey != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(privateKey, "0x"))
		if err != nil || len(raw) != 32 {
			writeError(w, http.StatusBadRequest, "invalid_key", "private key must be 32 bytes of hex")
			return src, false
		}
		src.Raw = raw
	}
	if mnemonic != "" && !keyvault.ValidateMnemonic(mnemonic) {
		writeError(w, http.StatusBadRequest, "invalid_mnemonic", "mnemonic failed BIP-39 validation")
		return src, false
	}
	src.Mnemonic = mnemonic
	return src, true
}

type loginRequest struct {
	Reference string `json:"reference"` // guardian email or dependent name
	Password  string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	ident, err := s.graph.Login(req.Reference, req.Password)
	if err != nil {
		// One code for unknown reference and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid reference or password")
		return
	}
	token, err := s.sessions.Issue(ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"member": viewOf(ident),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.sessions.Revoke(token); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type balanceView struct {
	types.TokenInfo
	Amount string `json:"amount"`
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	addr := ident.Address()

	native, err := s.chain.BalanceNative(addr)
	if err != nil {
		s.logger.Error().Err(err).Msg("native balance lookup failed")
		writeError(w, http.StatusBadGateway, "chain_unavailable", "balance lookup failed")
		return
	}
	token, err := s.chain.BalanceToken(s.cfg.TokenContract, addr)
	if err != nil {
		s.logger.Error().Err(err).Msg("token balance lookup failed")
		writeError(w, http.StatusBadGateway, "chain_unavailable", "balance lookup failed")
		return
	}
	recent, err := s.engine.History(addr, defaultHistoryLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member":  viewOf(ident),
		"address": addr,
		"balances": []balanceView{
			{TokenInfo: s.cfg.Native, Amount: native.String()},
			{TokenInfo: s.cfg.Token, Amount: token.String()},
		},
		"transfers": recordViews(recent),
	})
}

func (s *Server) handleFamily(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	guardians, dependents, err := s.graph.FamilyView(ident.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	gs := make([]memberView, 0, len(guardians))
	for _, g := range guardians {
		gs = append(gs, viewOf(g))
	}
	ds := make([]memberView, 0, len(dependents))
	for _, d := range dependents {
		ds = append(ds, viewOf(d))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"guardians":  gs,
		"dependents": ds,
	})
}

type addDependentRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleAddDependent(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	if !ident.IsGuardian() {
		writeError(w, http.StatusForbidden, "guardian_only", "only guardians can add dependents")
		return
	}
	var req addDependentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "invalid_password", "password must be 6-20 characters")
		return
	}
	dep, err := s.graph.CreateDependent(ident.ID, req.Name, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info().Str("guardian", ident.ID).Str("dependent", dep.ID).Msg("dependent added")
	writeJSON(w, http.StatusCreated, viewOf(dep))
}

func (s *Server) handleAddGuardian(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	if !ident.IsGuardian() {
		writeError(w, http.StatusForbidden, "guardian_only", "only guardians can add co-guardians")
		return
	}
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and name are required")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "invalid_password", "password must be 6-20 characters")
		return
	}
	src, ok := keySource(w, req.PrivateKey, req.Mnemonic)
	if !ok {
		return
	}
	co, err := s.graph.LinkGuardian(ident.ID, req.Email, req.Name, req.Password, src)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info().Str("guardian", ident.ID).Str("co_guardian", co.ID).Msg("co-guardian linked")
	writeJSON(w, http.StatusCreated, viewOf(co))
}

type resolveRequest struct {
	Reference string `json:"reference"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	var req resolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	addr, err := s.graph.ResolveMember(ident.ID, req.Reference)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Address{"address": addr})
}

type transferRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Password    string `json:"password"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	kind := mux.Vars(r)["kind"]

	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := types.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amount must be a non-negative decimal")
		return
	}

	started := time.Now()
	res, err := s.engine.Send(ident, transfer.Request{
		TokenKind:       kind,
		Destination:     req.Destination,
		Amount:          amount,
		ConfirmPassword: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info().
		Str("from", ident.ID).
		Str("status", res.Status.String()).
		Dur("took", time.Since(started)).
		Msg("transfer handled")

	body := map[string]interface{}{"status": res.Status.String()}
	if res.Status == transfer.StatusInsufficient {
		body["short_asset"] = res.ShortAsset
	}
	if res.TxHash != "" {
		body["tx_hash"] = string(res.TxHash)
	}
	if res.Record != nil {
		body["record"] = recordView(res.Record)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := s.engine.History(ident.Address(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transfers": recordViews(recs)})
}

type transferView struct {
	ID        string        `json:"id"`
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Amount    string        `json:"amount"`
	Status    string        `json:"status"`
	Token     string        `json:"token"`
	TxHash    string        `json:"tx_hash,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func recordView(rec *transfer.Record) transferView {
	return transferView{
		ID:        rec.ID,
		From:      rec.From,
		To:        rec.To,
		Amount:    rec.Amount.String(),
		Status:    rec.Status.String(),
		Token:     rec.Token,
		TxHash:    string(rec.TxHash),
		Timestamp: rec.Timestamp,
	}
}

func recordViews(recs []*transfer.Record) []transferView {
	out := make([]transferView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordView(rec))
	}
	return out
}
