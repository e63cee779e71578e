package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "sendsol",
		Usage: "Solana balance and transfer CLI",
		Description: `A command-line tool for checking account balances, sending native SOL
transfers, and waiting for transaction confirmation.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			balanceCommand(),
			sendCommand(),
			awaitCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC endpoint URL",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.devnet.solana.com",
			},
			&cli.StringFlag{
				Name:    "commitment",
				Usage:   "Commitment level: processed, confirmed, or finalized",
				EnvVars: []string{"SOLANA_COMMITMENT"},
				Value:   "confirmed",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "error",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
