package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Fantasim/dropmint/internal/mint"
	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/wallet"
)

func runMint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	var f runFlags
	f.register(fs)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	runCfg, err := f.runConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, &f, newPrinter().event)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.engine.Preview(ctx, s.wallets[0].Address(), runCfg)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	printPreview(s, p)

	if !*yes && !confirm(fmt.Sprintf("Mint %d unit(s) from %d wallet(s)?", runCfg.Total, len(s.wallets))) {
		fmt.Println("aborted")
		return nil
	}

	signers := make([]mint.Signer, len(s.wallets))
	for i, w := range s.wallets {
		signers[i] = w
	}

	slog.Info("mint starting",
		"chainID", s.pool.Chain(),
		"nft", runCfg.NFT.Hex(),
		"total", runCfg.Total,
		"mode", runCfg.Mode,
		"wallets", len(signers),
	)

	start := time.Now()
	results := s.engine.RunAll(ctx, signers, runCfg)
	printResults(results)

	slog.Info("mint finished",
		"wallets", len(results),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	var f runFlags
	f.register(fs)
	fs.Parse(args)

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	runCfg, err := f.runConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, &f, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, w := range s.wallets {
		p, err := s.engine.Preview(ctx, w.Address(), runCfg)
		if err != nil {
			return fmt.Errorf("preview %s: %w", w.Address().Hex(), err)
		}
		printPreview(s, p)
	}
	return nil
}

// printer serializes status lines from the dispatch and poll goroutines.
type printer struct {
	mu sync.Mutex
}

func newPrinter() *printer { return &printer{} }

func (p *printer) event(e mint.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Printf("[%s] %s\n", wallet.ShortAddress(e.Wallet), e)
}

func printPreview(s *session, p *mint.Preview) {
	sym := s.symbol()
	fmt.Printf("\nWallet      %s\n", p.Wallet.Hex())
	fmt.Printf("Chain       %s (%d)\n", s.chain.Name, s.pool.Chain())
	fmt.Printf("Drop        %s, %s to %s\n", p.State,
		time.Unix(p.StartTime, 0).UTC().Format(time.RFC3339),
		time.Unix(p.EndTime, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Price       %s %s x %d = %s %s\n",
		mint.FormatEther(p.PricePerUnit), sym, p.Total, mint.FormatEther(p.MintCost), sym)
	fmt.Printf("Gas         %s gwei x %d, %d tx(s) = %s %s\n",
		mint.FormatGwei(p.GasPrice), p.GasLimit, p.Transactions, mint.FormatEther(p.GasCost), sym)
	fmt.Printf("Needed      %s %s\n", mint.FormatEther(p.TotalNeeded), sym)
	fmt.Printf("Balance     %s %s\n", mint.FormatEther(p.Balance), sym)
	if p.LowBalance {
		fmt.Println("WARNING     balance is below the estimated cost")
	}
	if p.OverCap {
		fmt.Printf("WARNING     total exceeds the per-wallet cap of %d\n", p.MaxPerWallet)
	}
	fmt.Println()
}

func printResults(results []mint.WalletResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nWALLET\tOUTCOME\tATTEMPTED\tSUBMITTED\tCONFIRMED\tREVERTED\tUNRESOLVED\tERROR")
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			wallet.ShortAddress(r.Wallet), r.Outcome,
			r.Tally.Attempted, r.Tally.Submitted, r.Tally.Confirmed,
			r.Tally.Reverted, r.Tally.Unresolved, errText)
	}
	tw.Flush()

	for _, r := range results {
		if r.LowBalance {
			fmt.Printf("%s: balance was below the estimated cost at start\n", wallet.ShortAddress(r.Wallet))
		}
		if r.Outcome == models.OutcomeCompleted && r.Tally.ShortBy() > 0 {
			fmt.Printf("%s: %d of %d never submitted\n",
				wallet.ShortAddress(r.Wallet), r.Tally.ShortBy(), r.Tally.Target)
		}
	}
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
