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

// Poller drives a submitted transaction to a terminal confirmation
// state. It re-queries the signature status at a fixed interval until
// the network reports confirmed or finalized, the wall-clock timeout
// elapses, or a query fails. There is no backoff and no query cap; only
// elapsed time and the context bound the loop.
type Poller struct {
	rpc      RPCClient
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string
}

// NewPoller creates a new confirmation poller with a fixed poll interval
// and an overall wall-clock timeout.
func NewPoller(rpcClient RPCClient, interval, timeout time.Duration, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Poller {
	return &Poller{
		rpc:      rpcClient,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// Await polls the signature until a terminal state is reached.
//
//   - StatusConfirmed or StatusFinalized, nil: the network acknowledged
//     inclusion at that level.
//   - StatusTimedOut, nil: the timeout elapsed while still pending. Not
//     an error; the transaction may still land later, and the poller
//     never resubmits.
//   - StatusFailed, non-nil: the status query itself failed, the chain
//     reported a transaction error, or ctx was cancelled. Polling stops
//     immediately.
//
// The context is checked before each wait and before each re-query, so
// a superseding operation can cancel an in-flight poll deterministically.
func (p *Poller) Await(ctx context.Context, sig solana.Signature) (Status, error) {
	start := time.Now()
	deadline := start.Add(p.timeout)

	p.logger.DebugContext(ctx, "polling for confirmation",
		"signature", sig.String(),
		"interval", p.interval,
		"timeout", p.timeout,
	)

	for {
		if err := ctx.Err(); err != nil {
			p.recordOutcome(StatusFailed, start)
			return StatusFailed, fmt.Errorf("confirmation poll cancelled: %w", err)
		}

		status, err := p.queryStatus(ctx, sig)
		if err != nil {
			p.logger.ErrorContext(ctx, "signature status query failed",
				"signature", sig.String(),
				"error", err,
			)
			p.recordOutcome(StatusFailed, start)
			return StatusFailed, err
		}
		if status.Terminal() {
			p.logger.InfoContext(ctx, "confirmation poll finished",
				"signature", sig.String(),
				"status", string(status),
				"elapsed", time.Since(start),
			)
			p.recordOutcome(status, start)
			return status, nil
		}

		if time.Now().After(deadline) {
			p.logger.WarnContext(ctx, "confirmation poll timed out",
				"signature", sig.String(),
				"timeout", p.timeout,
			)
			p.recordOutcome(StatusTimedOut, start)
			return StatusTimedOut, nil
		}

		// Still pending. Sleep the fixed interval, waking early on
		// cancellation.
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.recordOutcome(StatusFailed, start)
			return StatusFailed, fmt.Errorf("confirmation poll cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// queryStatus issues one GetSignatureStatuses call and maps the response
// onto the status state machine. A signature the node does not know yet
// and a processed-but-unconfirmed transaction both map to StatusPending.
func (p *Poller) queryStatus(ctx context.Context, sig solana.Signature) (Status, error) {
	p.metrics.RecordPollQuery(p.endpoint)

	start := time.Now()
	out, err := p.rpc.GetSignatureStatuses(ctx, true, sig)
	d := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordRPCCall("GetSignatureStatuses", status, p.endpoint, d.Seconds())

	if err != nil {
		return StatusFailed, fmt.Errorf("%w: getSignatureStatuses: %v", ErrNetwork, err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		// Node has not seen the signature yet.
		return StatusPending, nil
	}

	st := out.Value[0]
	if st.Err != nil {
		return StatusFailed, fmt.Errorf("%w: transaction failed on chain: %v", ErrSubmission, st.Err)
	}

	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return StatusFinalized, nil
	case rpc.ConfirmationStatusConfirmed:
		return StatusConfirmed, nil
	default:
		return StatusPending, nil
	}
}

func (p *Poller) recordOutcome(status Status, start time.Time) {
	p.metrics.RecordPollOutcome(string(status), time.Since(start).Seconds())
}
