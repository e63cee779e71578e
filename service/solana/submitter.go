package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/sendsol/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// Signer is the connected-signer boundary. The submitter delegates
// signing to it and never sees private key material.
type Signer interface {
	// Connected reports whether a signer is currently available.
	Connected() bool
	// Address is the public key the signer signs for.
	Address() solana.PublicKey
	// Sign signs the transaction in place. The call blocks until the
	// signer accepts or rejects; it cannot be retracted once issued.
	Sign(tx *solana.Transaction) error
}

// Submitter builds, signs, and dispatches native transfer transactions.
type Submitter struct {
	rpc        RPCClient
	signer     Signer
	commitment rpc.CommitmentType
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string
}

// NewSubmitter creates a new transfer submitter. The signer may be nil;
// every Submit then fails with ErrNotConnected.
func NewSubmitter(rpcClient RPCClient, signer Signer, commitment rpc.CommitmentType, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	return &Submitter{
		rpc:        rpcClient,
		signer:     signer,
		commitment: commitment,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
	}
}

// Submit validates the request, converts the display-unit amount to
// lamports, builds a single system-program transfer instruction, asks
// the signer to sign it, and dispatches it to the network.
//
// Preconditions fail with distinct errors before the signer is ever
// invoked: ErrNotConnected (no signer), ErrValidation (missing or
// non-positive amount, missing recipient, sender mismatch),
// ErrInvalidAddress (recipient fails decoding). Any failure after
// validation is ErrSubmission; no SubmissionResult is produced and no
// confirmation polling should begin.
func (s *Submitter) Submit(ctx context.Context, req TransferRequest) (*SubmissionResult, error) {
	if s.signer == nil || !s.signer.Connected() {
		s.metrics.RecordTransferSubmitted("not_connected")
		return nil, fmt.Errorf("%w: connect a wallet before transferring", ErrNotConnected)
	}
	sender := s.signer.Address()

	if req.Recipient == "" {
		s.metrics.RecordTransferSubmitted("validation_error")
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	lamports, err := SOLToLamports(req.Amount)
	if err != nil {
		s.metrics.RecordTransferSubmitted("validation_error")
		return nil, err
	}
	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		s.metrics.RecordTransferSubmitted("invalid_address")
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidAddress, req.Recipient, err)
	}
	// The sender is always the connected signer; a request naming anyone
	// else is malformed.
	if req.Sender != "" && req.Sender != sender.String() {
		s.metrics.RecordTransferSubmitted("validation_error")
		return nil, fmt.Errorf("%w: sender %s does not match connected signer %s", ErrValidation, req.Sender, sender)
	}

	s.logger.DebugContext(ctx, "building transfer",
		"sender", sender.String(),
		"recipient", recipient.String(),
		"lamports", lamports,
	)

	start := time.Now()
	blockhash, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	s.recordRPC("GetLatestBlockhash", err, time.Since(start))
	if err != nil {
		s.metrics.RecordTransferSubmitted("error")
		return nil, fmt.Errorf("%w: getLatestBlockhash: %v", ErrSubmission, err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, sender, recipient).Build(),
		},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(sender),
	)
	if err != nil {
		s.metrics.RecordTransferSubmitted("error")
		return nil, fmt.Errorf("%w: build transaction: %v", ErrSubmission, err)
	}

	// Single suspension point: the signer call blocks and cannot be
	// retracted once issued.
	if err := s.signer.Sign(tx); err != nil {
		s.logger.WarnContext(ctx, "signer rejected transaction",
			"sender", sender.String(),
			"error", err,
		)
		s.metrics.RecordTransferSubmitted("rejected")
		return nil, fmt.Errorf("%w: signer rejected: %v", ErrSubmission, err)
	}

	start = time.Now()
	sig, err := s.rpc.SendTransaction(ctx, tx)
	s.recordRPC("SendTransaction", err, time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send transaction",
			"sender", sender.String(),
			"recipient", recipient.String(),
			"error", err,
		)
		s.metrics.RecordTransferSubmitted("error")
		return nil, fmt.Errorf("%w: sendTransaction: %v", ErrSubmission, err)
	}

	s.logger.InfoContext(ctx, "transfer submitted",
		"sender", sender.String(),
		"recipient", recipient.String(),
		"lamports", lamports,
		"signature", sig.String(),
	)
	s.metrics.RecordTransferSubmitted("submitted")

	return &SubmissionResult{
		Signature: sig,
		Status:    StatusPending,
	}, nil
}

// Sender returns the connected signer's address, if any.
func (s *Submitter) Sender() (solana.PublicKey, bool) {
	if s.signer == nil || !s.signer.Connected() {
		return solana.PublicKey{}, false
	}
	return s.signer.Address(), true
}

func (s *Submitter) recordRPC(method string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRPCCall(method, status, s.endpoint, d.Seconds())
}
