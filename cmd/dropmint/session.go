package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantasim/dropmint/internal/chain"
	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/db"
	"github.com/Fantasim/dropmint/internal/logging"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/mint"
	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/seadrop"
	"github.com/Fantasim/dropmint/internal/wallet"
)

// runFlags are the flags shared by mint and preview.
type runFlags struct {
	chain    string
	nft      string
	total    int
	gas      string
	gasLimit uint64
	mode     string
	keys     string
	rpcFile  string
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.chain, "chain", "", "Chain ID or name (default: DROPMINT_CHAIN_ID, 0 auto-detects)")
	fs.StringVar(&f.nft, "nft", "", "NFT contract address (required)")
	fs.IntVar(&f.total, "total", 1, "Units to mint per wallet")
	fs.StringVar(&f.gas, "gas", "", "Gas price in gwei (default: suggested price x DROPMINT_GAS_MULTIPLIER)")
	fs.Uint64Var(&f.gasLimit, "gas-limit", 0, "Gas limit per transaction (default: DROPMINT_GAS_LIMIT)")
	fs.StringVar(&f.mode, "mode", string(models.ModeHybrid), "Submission mode: hybrid or sequential")
	fs.StringVar(&f.keys, "keys", "", "Private key file (default: DROPMINT_KEYS_FILE)")
	fs.StringVar(&f.rpcFile, "rpc-file", "", "RPC file (default: DROPMINT_RPC_FILE)")
}

// runConfig validates the flags and builds the engine's run configuration.
func (f *runFlags) runConfig(cfg *config.Config) (mint.RunConfig, error) {
	if !common.IsHexAddress(f.nft) {
		return mint.RunConfig{}, fmt.Errorf("%w: -nft %q is not a hex address", config.ErrInvalidConfig, f.nft)
	}
	if f.total < 1 {
		return mint.RunConfig{}, fmt.Errorf("%w: %d", config.ErrInvalidTotal, f.total)
	}
	mode, err := models.ParseMode(f.mode)
	if err != nil {
		return mint.RunConfig{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if f.gas != "" {
		if wei, err := mint.ParseGasPrice(f.gas); err != nil || wei.Sign() <= 0 {
			return mint.RunConfig{}, fmt.Errorf("%w: -gas %q must be a positive gwei amount", config.ErrInvalidConfig, f.gas)
		}
	}

	gasLimit := cfg.GasLimit
	if f.gasLimit > 0 {
		gasLimit = f.gasLimit
	}

	return mint.RunConfig{
		NFT:           common.HexToAddress(f.nft),
		Total:         f.total,
		GasPrice:      f.gas,
		GasLimit:      gasLimit,
		DispatchDelay: cfg.DispatchDelay,
		Poll: mint.PollerConfig{
			Interval:    cfg.PollInterval,
			MaxTicks:    cfg.PollMaxTicks,
			MaxDuration: cfg.PollMaxDuration,
		},
		Mode: mode,
	}, nil
}

// parseChain accepts a numeric chain ID or a registry name.
func parseChain(s string, fallback int64) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id < 0 {
			return 0, fmt.Errorf("%w: chain id %d", config.ErrInvalidConfig, id)
		}
		return id, nil
	}
	info, err := config.ChainByName(s)
	if err != nil {
		return 0, err
	}
	return info.ID, nil
}

// session holds everything a mint or preview command needs.
type session struct {
	cfg      *config.Config
	chain    config.ChainRPC
	pool     *chain.Pool
	database *db.DB
	metrics  *metrics.Metrics
	engine   *mint.Engine
	wallets  []*wallet.Wallet
	closers  []io.Closer
}

func (s *session) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i].Close()
	}
}

// loadConfig loads configuration and starts logging.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return cfg, logCloser, nil
}

// openDB opens and migrates the run history database.
func openDB(path string) (*db.DB, error) {
	database, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database ready", "path", path)
	return database, nil
}

// connectChain connects to the selected chain, or auto-detects the first
// reachable one when chainID is 0.
func connectChain(ctx context.Context, rpcs config.RPCFile, chainID int64, opts chain.ConnectOptions) (*chain.Pool, config.ChainRPC, error) {
	if chainID == 0 {
		return chain.Detect(ctx, rpcs, opts)
	}

	urls, err := rpcs.Endpoints(chainID)
	if err != nil {
		return nil, config.ChainRPC{}, err
	}
	pool, err := chain.Connect(ctx, chainID, urls, opts)
	if err != nil {
		return nil, config.ChainRPC{}, err
	}

	entry := rpcs[chainID]
	if entry.Name == "" {
		if info, ok := config.LookupChain(chainID); ok {
			entry.ChainInfo = info
		}
	}
	entry.ID = chainID
	return pool, entry, nil
}

// loadWallets derives wallets from the mnemonic file when one is set,
// otherwise reads the private key file.
func loadWallets(cfg *config.Config) ([]*wallet.Wallet, error) {
	var (
		wallets []*wallet.Wallet
		err     error
	)
	if cfg.MnemonicFile != "" {
		mnemonic, err := wallet.ReadMnemonicFromFile(cfg.MnemonicFile)
		if err != nil {
			return nil, err
		}
		wallets, err = wallet.DeriveWallets(mnemonic, cfg.MnemonicCount)
		if err != nil {
			return nil, err
		}
		slog.Info("wallets derived from mnemonic", "count", len(wallets))
	} else {
		wallets, err = wallet.LoadKeyFile(cfg.KeysFile)
		if err != nil {
			return nil, err
		}
		slog.Info("wallets loaded from key file", "file", cfg.KeysFile, "count", len(wallets))
	}

	if len(wallets) == 0 {
		return nil, config.ErrNoKeys
	}
	return wallets, nil
}

// openSession loads wallets, connects to the chain, opens the run history
// and builds the engine.
func openSession(ctx context.Context, cfg *config.Config, f *runFlags, report mint.Reporter) (*session, error) {
	if f.keys != "" {
		cfg.KeysFile = f.keys
		cfg.MnemonicFile = ""
	}
	if f.rpcFile != "" {
		cfg.RPCFile = f.rpcFile
	}

	chainID, err := parseChain(f.chain, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	wallets, err := loadWallets(cfg)
	if err != nil {
		return nil, err
	}

	rpcs, err := config.LoadRPCFile(cfg.RPCFile)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, wallets: wallets, metrics: metrics.New()}

	connectCtx, cancel := context.WithTimeout(ctx, config.DialTimeout+config.HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	pool, entry, err := connectChain(connectCtx, rpcs, chainID, chain.ConnectOptions{
		RPS:     cfg.RPCRequestsPerSecond,
		Metrics: s.metrics,
	})
	if err != nil {
		return nil, err
	}
	s.pool, s.chain = pool, entry
	pool.RunHealthChecks(connectCtx)

	slog.Info("connected",
		"chainID", pool.Chain(),
		"name", entry.Name,
		"primary", pool.Primary(),
		"endpoints", pool.Size(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.database = database
	s.closers = append(s.closers, database)

	sale := seadrop.NewSaleView(pool, common.HexToAddress(cfg.SeaDropAddress))
	s.engine = mint.NewEngine(pool, sale, mint.EngineOptions{
		ChainID:       pool.Chain(),
		MultiMint:     common.HexToAddress(cfg.MultiMintAddress),
		GasMultiplier: cfg.GasMultiplier,
		Store:         database,
		Metrics:       s.metrics,
		Reporter:      report,
	})
	return s, nil
}

func (s *session) symbol() string {
	if s.chain.Symbol != "" {
		return s.chain.Symbol
	}
	return config.NativeSymbol(s.pool.Chain())
}
