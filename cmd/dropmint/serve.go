package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Fantasim/dropmint/internal/api"
	"github.com/Fantasim/dropmint/internal/chain"
	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 0, "Listen port (default: DROPMINT_PORT)")
	chainFlag := fs.String("chain", "", "Chain whose endpoints /api/health reports (default: DROPMINT_CHAIN_ID)")
	noRPC := fs.Bool("no-rpc", false, "Serve run history without connecting to any endpoint")
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if *port != 0 {
		cfg.Port = *port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	slog.Info("starting dropmint status server",
		"version", api.Version,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
	)

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := database.MarkInterruptedRuns(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	deps := api.Deps{Runs: database, Metrics: m.Handler()}

	if !*noRPC {
		health, err := connectHealth(ctx, cfg, *chainFlag, m)
		if err != nil {
			slog.Warn("serving without endpoint health", "error", err)
		} else {
			defer health.Close()
			deps.Health = health
		}
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        api.NewRouter(deps),
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// connectHealth opens a pool for the health endpoint and probes it once.
func connectHealth(ctx context.Context, cfg *config.Config, chainFlag string, m *metrics.Metrics) (*chain.Pool, error) {
	chainID, err := parseChain(chainFlag, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	rpcs, err := config.LoadRPCFile(cfg.RPCFile)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.DialTimeout+config.HealthCheckTimeout)
	defer cancel()

	pool, _, err := connectChain(connectCtx, rpcs, chainID, chain.ConnectOptions{
		RPS:     cfg.RPCRequestsPerSecond,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}
	pool.RunHealthChecks(connectCtx)
	return pool, nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", config.DefaultHistoryLimit, "Number of runs to list")
	runID := fs.String("run", "", "Show the transactions of one run")
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if *runID != "" {
		detail, err := database.GetRun(*runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "run %s  %s  %s  chain %d\n\n", detail.ID, detail.Wallet, detail.Outcome, detail.ChainID)
		fmt.Fprintln(tw, "SEQ\tNONCE\tSTATUS\tBLOCK\tTX")
		for _, tx := range detail.Txs {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", tx.Sequence, tx.Nonce, tx.Status, tx.BlockNumber, tx.TxHash)
		}
		return nil
	}

	runs, err := database.ListRuns(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(tw, "no runs recorded")
		return nil
	}

	fmt.Fprintln(tw, "STARTED\tRUN\tWALLET\tCHAIN\tMODE\tOUTCOME\tCONFIRMED\tREVERTED\tUNRESOLVED\tTARGET")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.StartedAt, r.ID, r.Wallet, r.ChainID, r.Mode, r.Outcome,
			r.Tally.Confirmed, r.Tally.Reverted, r.Tally.Unresolved, r.Tally.Target)
	}
	return nil
}

func runChains(args []string) error {
	fs := flag.NewFlagSet("chains", flag.ExitOnError)
	rpcFile := fs.String("rpc-file", "", "RPC file (default: DROPMINT_RPC_FILE)")
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if *rpcFile != "" {
		cfg.RPCFile = *rpcFile
	}
	rpcs, err := config.LoadRPCFile(cfg.RPCFile)
	if err != nil {
		slog.Warn("rpc file unavailable", "file", cfg.RPCFile, "error", err)
		rpcs = config.RPCFile{}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSYMBOL\tRPCS")
	listed := make(map[int64]bool)
	for _, c := range config.KnownChains() {
		listed[c.ID] = true
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", c.ID, c.Name, c.Symbol, len(rpcs[c.ID].RPCs))
	}
	for _, id := range rpcs.ChainIDs() {
		if listed[id] {
			continue
		}
		c := rpcs[id]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", id, c.Name, c.Symbol, len(c.RPCs))
	}
	return nil
}

func runAddChain(args []string) error {
	fs := flag.NewFlagSet("add-chain", flag.ExitOnError)
	id := fs.Int64("id", 0, "Chain ID (required)")
	name := fs.String("name", "", "Chain name (default: registry name)")
	symbol := fs.String("symbol", "", "Native currency symbol (default: registry symbol)")
	rpcList := fs.String("rpcs", "", "Comma-separated RPC URLs (required)")
	rpcFile := fs.String("rpc-file", "", "RPC file (default: DROPMINT_RPC_FILE)")
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if *rpcFile != "" {
		cfg.RPCFile = *rpcFile
	}

	rpcs, err := config.LoadRPCFile(cfg.RPCFile)
	if errors.Is(err, os.ErrNotExist) {
		rpcs = config.RPCFile{}
	} else if err != nil {
		return err
	}

	entry := config.ChainRPC{ChainInfo: config.ChainInfo{ID: *id, Name: *name, Symbol: *symbol}}
	if info, ok := config.LookupChain(*id); ok {
		if entry.Name == "" {
			entry.Name = info.Name
		}
		if entry.Symbol == "" {
			entry.Symbol = info.Symbol
		}
	}
	for _, u := range strings.Split(*rpcList, ",") {
		if u = strings.TrimSpace(u); u != "" {
			entry.RPCs = append(entry.RPCs, u)
		}
	}

	if err := rpcs.AddChain(cfg.RPCFile, entry); err != nil {
		return err
	}
	fmt.Printf("chain %d (%s) saved to %s with %d endpoint(s)\n", entry.ID, entry.Name, cfg.RPCFile, len(entry.RPCs))
	return nil
}
