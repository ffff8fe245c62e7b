package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Fantasim/dropmint/internal/api"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mint":
		err = runMint(os.Args[2:])
	case "preview":
		err = runPreview(os.Args[2:])
	case "chains":
		err = runChains(os.Args[2:])
	case "add-chain":
		err = runAddChain(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Printf("dropmint %s\n", api.Version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: dropmint <command> [flags]

Commands:
  mint       Wait for the drop and mint from every loaded wallet
  preview    Show the cost breakdown for the first wallet
  chains     List supported chains and configured RPC endpoints
  add-chain  Add or replace a chain in the RPC file
  history    List recent runs
  serve      Start the local status server
  version    Print version information

Run "dropmint <command> -h" for command flags.
`)
}
