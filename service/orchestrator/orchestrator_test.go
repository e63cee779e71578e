package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	solanasvc "github.com/brojonat/sendsol/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSig = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReader returns a fresh snapshot per call and counts calls.
type fakeReader struct {
	mu       sync.Mutex
	lamports uint64
	err      error
	calls    int
}

func (r *fakeReader) FetchSnapshot(ctx context.Context, address string) (*solanasvc.AccountSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &solanasvc.AccountSnapshot{
		Address:  address,
		Lamports: r.lamports,
	}, nil
}

func (r *fakeReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeSubmitter returns a pending result or a canned error.
type fakeSubmitter struct {
	sender    solana.PublicKey
	connected bool
	err       error
}

func (s *fakeSubmitter) Submit(ctx context.Context, req solanasvc.TransferRequest) (*solanasvc.SubmissionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &solanasvc.SubmissionResult{
		Signature: testSig,
		Status:    solanasvc.StatusPending,
	}, nil
}

func (s *fakeSubmitter) Sender() (solana.PublicKey, bool) {
	return s.sender, s.connected
}

// fakePoller returns a canned terminal status.
type fakePoller struct {
	status solanasvc.Status
	err    error
}

func (p *fakePoller) Await(ctx context.Context, sig solana.Signature) (solanasvc.Status, error) {
	return p.status, p.err
}

func TestRequestSnapshot_SetsSlotAndSubject(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{lamports: 1_000_000_000}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	snap, err := orch.RequestSnapshot(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "addr-1", snap.Address)

	current, ok := orch.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap, current)

	_, hasErr := orch.ErrMessage()
	assert.False(t, hasErr)
	assert.False(t, orch.Busy())
}

func TestRequestSnapshot_ErrorFillsMessageSlot(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{err: fmt.Errorf("%w: boom", solanasvc.ErrNetwork)}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	_, err := orch.RequestSnapshot(ctx, "addr-1")
	require.Error(t, err)

	msg, ok := orch.ErrMessage()
	require.True(t, ok)
	assert.Contains(t, msg, "Could not reach")

	_, ok = orch.Snapshot()
	assert.False(t, ok)
}

func TestNewOperationClearsError(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{err: fmt.Errorf("%w: boom", solanasvc.ErrNetwork)}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	_, err := orch.RequestSnapshot(ctx, "addr-1")
	require.Error(t, err)
	_, hasErr := orch.ErrMessage()
	require.True(t, hasErr)

	// Next operation succeeds; the error slot was cleared at its start.
	reader.err = nil
	_, err = orch.RequestSnapshot(ctx, "addr-1")
	require.NoError(t, err)

	_, hasErr = orch.ErrMessage()
	assert.False(t, hasErr)
}

func TestRequestRefresh_UsesLastSubject(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{lamports: 7}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	_, err := orch.RequestSnapshot(ctx, "addr-1")
	require.NoError(t, err)

	// Two refreshes in sequence: two independent successful reads, no
	// other side effects.
	snap1, err := orch.RequestRefresh(ctx)
	require.NoError(t, err)
	snap2, err := orch.RequestRefresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "addr-1", snap1.Address)
	assert.Equal(t, "addr-1", snap2.Address)
	assert.NotSame(t, snap1, snap2)
	assert.Equal(t, 3, reader.callCount())
}

func TestRequestRefresh_PrefersConnectedSigner(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{}
	sender := solana.NewWallet().PublicKey()
	orch := New(reader, &fakeSubmitter{sender: sender, connected: true}, &fakePoller{}, testLogger())

	snap, err := orch.RequestRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, sender.String(), snap.Address)
}

func TestRequestRefresh_NoSubject(t *testing.T) {
	ctx := context.Background()
	orch := New(&fakeReader{}, &fakeSubmitter{}, &fakePoller{}, testLogger())

	_, err := orch.RequestRefresh(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, solanasvc.ErrValidation)

	msg, ok := orch.ErrMessage()
	require.True(t, ok)
	assert.Contains(t, msg, "Invalid input")
}

func TestRequestTransfer_ConfirmedTriggersOneRefresh(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{lamports: 5}
	sender := solana.NewWallet().PublicKey()
	orch := New(
		reader,
		&fakeSubmitter{sender: sender, connected: true},
		&fakePoller{status: solanasvc.StatusConfirmed},
		testLogger(),
	)

	result, err := orch.RequestTransfer(ctx, "1.5", "recipient")
	require.NoError(t, err)
	assert.Equal(t, solanasvc.StatusConfirmed, result.Status)

	// Exactly one refresh fetch, for the sender.
	assert.Equal(t, 1, reader.callCount())
	snap, ok := orch.Snapshot()
	require.True(t, ok)
	assert.Equal(t, sender.String(), snap.Address)

	_, hasErr := orch.ErrMessage()
	assert.False(t, hasErr)
}

func TestRequestTransfer_FinalizedAlsoRefreshes(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{}
	sender := solana.NewWallet().PublicKey()
	orch := New(
		reader,
		&fakeSubmitter{sender: sender, connected: true},
		&fakePoller{status: solanasvc.StatusFinalized},
		testLogger(),
	)

	result, err := orch.RequestTransfer(ctx, "1", "recipient")
	require.NoError(t, err)
	assert.Equal(t, solanasvc.StatusFinalized, result.Status)
	assert.Equal(t, 1, reader.callCount())
}

func TestRequestTransfer_TimedOutNoRefreshNoError(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{}
	orch := New(
		reader,
		&fakeSubmitter{sender: solana.NewWallet().PublicKey(), connected: true},
		&fakePoller{status: solanasvc.StatusTimedOut},
		testLogger(),
	)

	result, err := orch.RequestTransfer(ctx, "1", "recipient")
	require.NoError(t, err)
	assert.Equal(t, solanasvc.StatusTimedOut, result.Status)

	// Neutral outcome: no refresh, no user-visible error.
	assert.Equal(t, 0, reader.callCount())
	_, hasErr := orch.ErrMessage()
	assert.False(t, hasErr)
}

func TestRequestTransfer_PollFailureSetsError(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{}
	orch := New(
		reader,
		&fakeSubmitter{sender: solana.NewWallet().PublicKey(), connected: true},
		&fakePoller{
			status: solanasvc.StatusFailed,
			err:    fmt.Errorf("%w: getSignatureStatuses: boom", solanasvc.ErrNetwork),
		},
		testLogger(),
	)

	result, err := orch.RequestTransfer(ctx, "1", "recipient")
	require.NoError(t, err)
	assert.Equal(t, solanasvc.StatusFailed, result.Status)
	assert.NotEmpty(t, result.FailureReason)

	assert.Equal(t, 0, reader.callCount())
	_, hasErr := orch.ErrMessage()
	assert.True(t, hasErr)
}

func TestRequestTransfer_SubmitErrorNoPolling(t *testing.T) {
	ctx := context.Background()
	orch := New(
		&fakeReader{},
		&fakeSubmitter{err: fmt.Errorf("%w: nope", solanasvc.ErrNotConnected)},
		&fakePoller{status: solanasvc.StatusConfirmed},
		testLogger(),
	)

	result, err := orch.RequestTransfer(ctx, "1", "recipient")
	require.Error(t, err)
	assert.ErrorIs(t, err, solanasvc.ErrNotConnected)
	assert.Nil(t, result)

	msg, ok := orch.ErrMessage()
	require.True(t, ok)
	assert.Equal(t, "Connect a wallet first.", msg)
}

// blockingReader parks its first call until released, so a second
// operation can start and finish in between.
type blockingReader struct {
	fakeReader
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func (r *blockingReader) FetchSnapshot(ctx context.Context, address string) (*solanasvc.AccountSnapshot, error) {
	var block bool
	r.first.Do(func() { block = true })
	if block {
		close(r.entered)
		<-r.release
		return &solanasvc.AccountSnapshot{Address: address, Lamports: 111}, nil
	}
	return &solanasvc.AccountSnapshot{Address: address, Lamports: 222}, nil
}

func TestStaleResultDiscarded(t *testing.T) {
	ctx := context.Background()
	reader := &blockingReader{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	// Operation 1 draws its token and parks inside the read.
	done := make(chan struct{})
	go func() {
		_, _ = orch.RequestSnapshot(ctx, "addr-old")
		close(done)
	}()
	<-reader.entered

	// Operation 2 starts later, finishes first, writes the slot.
	snap, err := orch.RequestSnapshot(ctx, "addr-new")
	require.NoError(t, err)
	assert.Equal(t, uint64(222), snap.Lamports)

	// Operation 1 completes, but its token is stale: the slot keeps
	// operation 2's snapshot.
	close(reader.release)
	<-done

	current, ok := orch.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "addr-new", current.Address)
	assert.Equal(t, uint64(222), current.Lamports)
}

// supersedePoller blocks its first Await until its context is cancelled
// and confirms immediately on later calls.
type supersedePoller struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
}

func (p *supersedePoller) Await(ctx context.Context, sig solana.Signature) (solanasvc.Status, error) {
	p.mu.Lock()
	p.calls++
	first := p.calls == 1
	p.mu.Unlock()

	if first {
		close(p.entered)
		<-ctx.Done()
		return solanasvc.StatusFailed, fmt.Errorf("confirmation poll cancelled: %w", ctx.Err())
	}
	return solanasvc.StatusConfirmed, nil
}

func TestNewTransferSupersedesInFlightPoll(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{}
	sender := solana.NewWallet().PublicKey()
	poller := &supersedePoller{entered: make(chan struct{})}
	orch := New(reader, &fakeSubmitter{sender: sender, connected: true}, poller, testLogger())

	// Transfer 1 parks in its confirmation poll.
	firstDone := make(chan *solanasvc.SubmissionResult, 1)
	go func() {
		result, _ := orch.RequestTransfer(ctx, "1", "recipient")
		firstDone <- result
	}()
	<-poller.entered

	// Transfer 2 supersedes it and confirms.
	result2, err := orch.RequestTransfer(ctx, "2", "recipient")
	require.NoError(t, err)
	assert.Equal(t, solanasvc.StatusConfirmed, result2.Status)

	var result1 *solanasvc.SubmissionResult
	select {
	case result1 = <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("superseded transfer did not finish")
	}
	require.NotNil(t, result1)
	assert.Equal(t, solanasvc.StatusFailed, result1.Status)

	// The slots belong to transfer 2: one refresh, no error message.
	assert.Equal(t, 1, reader.callCount())
	_, hasErr := orch.ErrMessage()
	assert.False(t, hasErr)
}

func TestBusyDuringOperation(t *testing.T) {
	ctx := context.Background()
	reader := &blockingReader{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch := New(reader, &fakeSubmitter{}, &fakePoller{}, testLogger())

	go func() {
		_, _ = orch.RequestSnapshot(ctx, "addr-1")
	}()
	<-reader.entered

	assert.True(t, orch.Busy())
	close(reader.release)

	require.Eventually(t, func() bool { return !orch.Busy() },
		time.Second, time.Millisecond)
}
