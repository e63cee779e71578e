package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/brojonat/sendsol/service/config"
	solanasvc "github.com/brojonat/sendsol/service/solana"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// newLogger builds the CLI logger. Output goes to stderr so stdout stays
// clean for command output and jq pipelines.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	default:
		l = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// rpcFromFlags builds the real RPC client from the global flags.
func rpcFromFlags(c *cli.Context) (solanasvc.RPCClient, rpc.CommitmentType, error) {
	commitment, err := config.ParseCommitment(c.String("commitment"))
	if err != nil {
		return nil, "", err
	}
	return solanasvc.NewRPCClient(c.String("rpc-url"), commitment), commitment, nil
}

// runJQ compiles each expression, runs it over the value's JSON form,
// and prints every result to stdout, one per line.
func runJQ(v interface{}, expressions []string) error {
	// Round-trip through JSON so gojq sees plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal for jq: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal for jq: %w", err)
	}

	for _, expr := range expressions {
		query, err := gojq.Parse(expr)
		if err != nil {
			return fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}

		iter := code.Run(doc)
		for {
			out, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := out.(error); isErr {
				return fmt.Errorf("jq filter %q: %w", expr, err)
			}
			line, err := json.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to marshal jq result: %w", err)
			}
			fmt.Println(string(line))
		}
	}
	return nil
}

// printJSON pretty-prints a value to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
