// Package node assembles a runnable famvault service from configuration:
// storage, the family graph, the chain client, the transfer engine, and
// the HTTP API.
package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/famvault/famvault/config"
	"github.com/famvault/famvault/internal/api"
	"github.com/famvault/famvault/internal/chainclient"
	"github.com/famvault/famvault/internal/family"
	"github.com/famvault/famvault/internal/keyvault"
	flog "github.com/famvault/famvault/internal/log"
	"github.com/famvault/famvault/internal/storage"
	"github.com/famvault/famvault/internal/transfer"
	"github.com/famvault/famvault/pkg/types"
)

// Storage key namespaces within the single badger database.
var (
	prefixFamily   = []byte("fam:")
	prefixSessions = []byte("sess:")
	prefixRecords  = []byte("xfer:")
)

// Node is a fully-initialized famvault service.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db       storage.DB
	graph    *family.Graph
	sessions *family.Sessions
	chain    chainclient.Client
	engine   *transfer.Engine

	httpServer *http.Server
	listenAddr string
	stopSweep  chan struct{}
}

// sessionSweepInterval is how often expired session index entries are
// pruned.
const sessionSweepInterval = time.Hour

// New creates and initializes a Node. All wiring happens here; Start
// only binds the listener.
func New(cfg *config.Config) (*Node, error) {
	logFile := cfg.Log.File
	if logFile == "" {
		if err := os.MkdirAll(cfg.LogsDir(), 0o700); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(cfg.LogsDir(), "famvault.log")
	}
	if err := flog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := flog.WithComponent("node")

	tokenContract, err := types.ParseAddress(cfg.Token.Contract)
	if err != nil {
		return nil, fmt.Errorf("token contract: %w", err)
	}

	logger.Info().
		Int64("chain_id", cfg.Chain.ChainID).
		Str("token", tokenContract.String()).
		Msg("Starting famvault service")

	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	params := keyvault.EncryptionParams{
		Memory:      cfg.Vault.MemoryKiB,
		Iterations:  cfg.Vault.Iterations,
		Parallelism: cfg.Vault.Parallelism,
	}
	graph := family.NewGraph(storage.NewPrefixDB(db, prefixFamily), params)
	sessions := family.NewSessions(
		storage.NewPrefixDB(db, prefixSessions),
		[]byte(cfg.Session.Secret),
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
	)

	chain := chainclient.New(chainclient.Options{
		Endpoint:       cfg.Chain.RPCURL,
		ChainID:        cfg.Chain.ChainID,
		NativeDecimals: cfg.Chain.NativeDecimals,
		TokenDecimals:  cfg.Token.Decimals,
		GasLimitNative: cfg.Chain.GasLimitNative,
		GasLimitToken:  cfg.Chain.GasLimitToken,
	})

	records := transfer.NewStore(storage.NewPrefixDB(db, prefixRecords))
	engine := transfer.NewEngine(graph, chain, records, transfer.Config{
		TokenContract: tokenContract,
		NativeSymbol:  cfg.Chain.NativeSymbol,
		TokenSymbol:   cfg.Token.Symbol,
	})

	server := api.NewServer(graph, sessions, engine, chain, api.Config{
		TokenContract: tokenContract,
		Native:        types.TokenInfo{Symbol: cfg.Chain.NativeSymbol, Decimals: cfg.Chain.NativeDecimals},
		Token:         types.TokenInfo{Symbol: cfg.Token.Symbol, Decimals: cfg.Token.Decimals},
	})

	addr := net.JoinHostPort(cfg.API.Addr, strconv.Itoa(cfg.API.Port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Node{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		graph:      graph,
		sessions:   sessions,
		chain:      chain,
		engine:     engine,
		httpServer: httpServer,
		stopSweep:  make(chan struct{}),
	}, nil
}

// Start binds the API listener and serves in the background.
func (n *Node) Start() error {
	ln, err := net.Listen("tcp", n.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.httpServer.Addr, err)
	}
	n.listenAddr = ln.Addr().String()
	n.logger.Info().Str("addr", n.listenAddr).Msg("HTTP API listening")

	go func() {
		if err := n.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			n.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
	go n.sweepSessions()
	return nil
}

// sweepSessions periodically prunes expired session index entries so the
// token namespace does not grow without bound.
func (n *Node) sweepSessions() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pruned, err := n.sessions.PruneExpired()
			if err != nil {
				n.logger.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if pruned > 0 {
				n.logger.Info().Int("pruned", pruned).Msg("expired sessions swept")
			}
		case <-n.stopSweep:
			return
		}
	}
}

// Stop shuts down the API and closes storage.
func (n *Node) Stop() {
	close(n.stopSweep)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.httpServer.Shutdown(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("HTTP shutdown")
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("closing database")
		}
	}
	n.logger.Info().Msg("Goodbye!")
}

// APIAddr returns the address the HTTP API is listening on.
func (n *Node) APIAddr() string {
	return n.listenAddr
}
