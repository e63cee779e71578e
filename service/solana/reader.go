package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/sendsol/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Reader fetches account snapshots: the current balance and a bounded
// list of recent transaction signatures. It is stateless and reentrant;
// each call produces a fresh snapshot.
type Reader struct {
	rpc          RPCClient
	commitment   rpc.CommitmentType
	historyLimit int
	logger       *slog.Logger
	metrics      *metrics.Metrics
	endpoint     string
}

// NewReader creates a new account reader. The endpoint parameter is used
// for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If m is nil, no metrics will be recorded.
func NewReader(rpcClient RPCClient, commitment rpc.CommitmentType, historyLimit int, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Reader {
	return &Reader{
		rpc:          rpcClient,
		commitment:   commitment,
		historyLimit: historyLimit,
		logger:       logger,
		metrics:      m,
		endpoint:     endpoint,
	}
}

// FetchSnapshot reads the balance and recent signatures for an address.
// The address is validated locally first; a malformed address fails with
// ErrInvalidAddress before any network call is made. The balance and the
// signature list are two independent reads and either failing fails the
// whole fetch with ErrNetwork.
func (r *Reader) FetchSnapshot(ctx context.Context, address string) (*AccountSnapshot, error) {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		r.metrics.RecordSnapshotFetched("invalid_address")
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}

	r.logger.DebugContext(ctx, "fetching account snapshot",
		"address", account.String(),
		"commitment", string(r.commitment),
		"history_limit", r.historyLimit,
	)

	start := time.Now()
	balance, err := r.rpc.GetBalance(ctx, account, r.commitment)
	r.recordRPC("GetBalance", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to get balance",
			"address", account.String(),
			"error", err,
		)
		r.metrics.RecordSnapshotFetched("error")
		return nil, fmt.Errorf("%w: getBalance: %v", ErrNetwork, err)
	}

	limit := r.historyLimit
	start = time.Now()
	sigs, err := r.rpc.GetSignaturesForAddress(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: r.commitment,
	})
	r.recordRPC("GetSignaturesForAddress", err, time.Since(start))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to get signatures",
			"address", account.String(),
			"error", err,
		)
		r.metrics.RecordSnapshotFetched("error")
		return nil, fmt.Errorf("%w: getSignaturesForAddress: %v", ErrNetwork, err)
	}

	// The RPC honors the limit, but clamp anyway so the snapshot bound
	// never depends on server behavior.
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}

	snapshot := &AccountSnapshot{
		Address:    account.String(),
		Lamports:   balance.Value,
		Signatures: make([]string, 0, len(sigs)),
	}
	for _, sig := range sigs {
		snapshot.Signatures = append(snapshot.Signatures, sig.Signature.String())
	}

	r.logger.InfoContext(ctx, "fetched account snapshot",
		"address", account.String(),
		"lamports", snapshot.Lamports,
		"signature_count", len(snapshot.Signatures),
	)
	r.metrics.RecordSnapshotFetched("success")

	return snapshot, nil
}

func (r *Reader) recordRPC(method string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordRPCCall(method, status, r.endpoint, d.Seconds())
}
