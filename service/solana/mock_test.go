package solana

import (
	"context"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call
// sequences. Per-method call counters let tests assert how many network
// calls an operation issued (including zero).
type mockRPCClient struct {
	balance    *rpc.GetBalanceResult
	balanceErr error

	signatures    []*rpc.TransactionSignature
	signaturesErr error

	// statusQueue is consumed one entry per GetSignatureStatuses call;
	// the last entry repeats once the queue is drained.
	statusQueue []*rpc.SignatureStatusesResult
	statusErr   error

	blockhash    *rpc.GetLatestBlockhashResult
	blockhashErr error

	sendSig solana.Signature
	sendErr error

	balanceCalls    int
	signaturesCalls int
	statusCalls     int
	blockhashCalls  int
	sendCalls       int
}

func (m *mockRPCClient) GetBalance(
	ctx context.Context,
	account solana.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	m.balanceCalls++
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return m.balance, nil
}

func (m *mockRPCClient) GetSignaturesForAddress(
	ctx context.Context,
	account solana.PublicKey,
	opts *rpc.GetSignaturesForAddressOpts,
) ([]*rpc.TransactionSignature, error) {
	m.signaturesCalls++
	if m.signaturesErr != nil {
		return nil, m.signaturesErr
	}
	return m.signatures, nil
}

func (m *mockRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchHistory bool,
	signatures ...solana.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if len(m.statusQueue) == 0 {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	head := m.statusQueue[0]
	if len(m.statusQueue) > 1 {
		m.statusQueue = m.statusQueue[1:]
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{head}}, nil
}

func (m *mockRPCClient) GetLatestBlockhash(
	ctx context.Context,
	commitment rpc.CommitmentType,
) (*rpc.GetLatestBlockhashResult, error) {
	m.blockhashCalls++
	if m.blockhashErr != nil {
		return nil, m.blockhashErr
	}
	if m.blockhash != nil {
		return m.blockhash, nil
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            solana.Hash{},
			LastValidBlockHeight: 1000,
		},
	}, nil
}

func (m *mockRPCClient) SendTransaction(
	ctx context.Context,
	tx *solana.Transaction,
) (solana.Signature, error) {
	m.sendCalls++
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// statusPending is a "seen but not yet confirmed" queue entry.
func statusPending() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
	}
}

func statusAt(level rpc.ConfirmationStatusType) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		ConfirmationStatus: level,
	}
}
