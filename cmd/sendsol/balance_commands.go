package main

import (
	"fmt"

	"github.com/brojonat/sendsol/service/config"
	solanasvc "github.com/brojonat/sendsol/service/solana"
	"github.com/urfave/cli/v2"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Fetch the balance and recent transactions for an address",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "history-limit",
				Usage:   "Number of recent transaction signatures to fetch",
				EnvVars: []string{"HISTORY_LIMIT"},
				Value:   config.DefaultHistoryLimit,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON output (can be specified multiple times)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)

			logger := newLogger(c.String("log-level"))
			rpcClient, commitment, err := rpcFromFlags(c)
			if err != nil {
				return err
			}

			reader := solanasvc.NewReader(
				rpcClient,
				commitment,
				c.Int("history-limit"),
				c.String("rpc-url"),
				nil, // no metrics in the CLI
				logger,
			)

			snapshot, err := reader.FetchSnapshot(c.Context, address)
			if err != nil {
				return fmt.Errorf("failed to fetch snapshot: %w", err)
			}

			if jqExprs := c.StringSlice("jq"); len(jqExprs) > 0 {
				return runJQ(snapshot, jqExprs)
			}
			if c.Bool("json") {
				return printJSON(snapshot)
			}

			fmt.Printf("Address:  %s\n", snapshot.Address)
			fmt.Printf("Balance:  %s SOL (%d lamports)\n", snapshot.SOL(), snapshot.Lamports)
			if len(snapshot.Signatures) == 0 {
				fmt.Println("No recent transactions.")
				return nil
			}
			fmt.Printf("Recent transactions (newest first):\n")
			for _, sig := range snapshot.Signatures {
				fmt.Printf("  %s\n", sig)
			}
			return nil
		},
	}
}
