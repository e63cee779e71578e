package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brojonat/sendsol/service/config"
	"github.com/brojonat/sendsol/service/orchestrator"
	"github.com/brojonat/sendsol/service/signer"
	solanasvc "github.com/brojonat/sendsol/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send native SOL and wait for confirmation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Recipient address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount in SOL (decimal, e.g. 1.5)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "keypair",
				Usage:   "Path to a solana-keygen keypair file",
				EnvVars: []string{"SOLANA_KEYPAIR"},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Confirmation poll interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   config.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "How long to wait for confirmation",
				EnvVars: []string{"POLL_TIMEOUT"},
				Value:   config.DefaultPollTimeout,
			},
			&cli.IntFlag{
				Name:    "history-limit",
				Usage:   "Number of recent transaction signatures in the refreshed snapshot",
				EnvVars: []string{"HISTORY_LIMIT"},
				Value:   config.DefaultHistoryLimit,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c.String("log-level"))
			rpcClient, commitment, err := rpcFromFlags(c)
			if err != nil {
				return err
			}

			keys, err := loadSigner(c.String("keypair"))
			if err != nil {
				return err
			}

			endpoint := c.String("rpc-url")
			reader := solanasvc.NewReader(rpcClient, commitment, c.Int("history-limit"), endpoint, nil, logger)
			submitter := solanasvc.NewSubmitter(rpcClient, keys, commitment, endpoint, nil, logger)
			poller := solanasvc.NewPoller(rpcClient, c.Duration("interval"), c.Duration("timeout"), endpoint, nil, logger)
			orch := orchestrator.New(reader, submitter, poller, logger)

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Sending %s SOL from %s to %s...\n",
					c.String("amount"), keys.Address(), c.String("to"))
			}

			result, err := orch.RequestTransfer(c.Context, c.String("amount"), c.String("to"))
			if err != nil {
				if msg, ok := orch.ErrMessage(); ok {
					return fmt.Errorf("%s", msg)
				}
				return err
			}

			if c.Bool("json") {
				out := map[string]interface{}{
					"signature": result.Signature.String(),
					"status":    string(result.Status),
				}
				if result.FailureReason != "" {
					out["failure_reason"] = result.FailureReason
				}
				if snapshot, ok := orch.Snapshot(); ok {
					out["snapshot"] = snapshot
				}
				return printJSON(out)
			}

			fmt.Printf("Signature: %s\n", result.Signature)
			switch result.Status {
			case solanasvc.StatusConfirmed, solanasvc.StatusFinalized:
				fmt.Printf("Status:    %s\n", result.Status)
				if snapshot, ok := orch.Snapshot(); ok {
					fmt.Printf("Balance:   %s SOL\n", snapshot.SOL())
				}
			case solanasvc.StatusTimedOut:
				fmt.Printf("Status:    not confirmed within %v; it may still land. Check the signature later.\n",
					c.Duration("timeout"))
			default:
				fmt.Printf("Status:    %s (%s)\n", result.Status, result.FailureReason)
			}
			return nil
		},
	}
}

func awaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Poll an existing transaction signature to a terminal state",
		ArgsUsage: "SIGNATURE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Confirmation poll interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   config.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "How long to wait for confirmation",
				EnvVars: []string{"POLL_TIMEOUT"},
				Value:   config.DefaultPollTimeout,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction signature is required")
			}
			sig, err := solana.SignatureFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}

			logger := newLogger(c.String("log-level"))
			rpcClient, _, err := rpcFromFlags(c)
			if err != nil {
				return err
			}

			poller := solanasvc.NewPoller(
				rpcClient,
				c.Duration("interval"),
				c.Duration("timeout"),
				c.String("rpc-url"),
				nil,
				logger,
			)

			status, err := poller.Await(c.Context, sig)
			if err != nil {
				return fmt.Errorf("confirmation poll failed: %w", err)
			}

			if c.Bool("json") {
				return printJSON(map[string]string{
					"signature": sig.String(),
					"status":    string(status),
				})
			}
			if status == solanasvc.StatusTimedOut {
				fmt.Printf("Not confirmed within %v; it may still land.\n", c.Duration("timeout"))
				return nil
			}
			fmt.Printf("Status: %s\n", status)
			return nil
		},
	}
}

// loadSigner resolves the keypair to sign with: an explicit file path,
// the SOLANA_PRIVATE_KEY env var, or the default solana CLI keypair.
func loadSigner(keypairPath string) (*signer.Keypair, error) {
	if keypairPath != "" {
		return signer.FromFile(keypairPath)
	}
	if encoded := os.Getenv("SOLANA_PRIVATE_KEY"); encoded != "" {
		return signer.FromBase58(encoded)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("no keypair: set --keypair or SOLANA_PRIVATE_KEY: %w", err)
	}
	defaultPath := filepath.Join(home, ".config", "solana", "id.json")
	if _, err := os.Stat(defaultPath); err != nil {
		return nil, fmt.Errorf("no keypair: set --keypair or SOLANA_PRIVATE_KEY (default %s not found)", defaultPath)
	}
	return signer.FromFile(defaultPath)
}
