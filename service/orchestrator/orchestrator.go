// Package orchestrator ties the account reader, transfer submitter, and
// confirmation poller together behind the three operations the
// presentation layer calls, and owns the observable snapshot, error, and
// busy slots.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	solanasvc "github.com/brojonat/sendsol/service/solana"
	"github.com/gagliardetto/solana-go"
)

// SnapshotReader is the read path: balance plus recent signatures.
type SnapshotReader interface {
	FetchSnapshot(ctx context.Context, address string) (*solanasvc.AccountSnapshot, error)
}

// TransferSubmitter builds, signs, and dispatches a transfer.
type TransferSubmitter interface {
	Submit(ctx context.Context, req solanasvc.TransferRequest) (*solanasvc.SubmissionResult, error)
	Sender() (solana.PublicKey, bool)
}

// ConfirmationPoller drives a signature to a terminal status.
type ConfirmationPoller interface {
	Await(ctx context.Context, sig solana.Signature) (solanasvc.Status, error)
}

// Orchestrator exposes RequestSnapshot, RequestRefresh, and
// RequestTransfer, and three observable slots: the current snapshot, the
// current error message, and a busy flag.
//
// Every operation draws a monotonic token when it starts; a completion
// writes the slots only if its token is still the newest issued. Results
// of superseded operations are discarded rather than racing whichever
// finishes last. Starting a transfer additionally cancels any in-flight
// confirmation poll via its context.
type Orchestrator struct {
	reader    SnapshotReader
	submitter TransferSubmitter
	poller    ConfirmationPoller
	logger    *slog.Logger

	mu         sync.Mutex
	seq        uint64
	snapshot   *solanasvc.AccountSnapshot
	errMsg     string
	hasErr     bool
	inFlight   int
	subject    string
	pollID     uint64
	cancelPoll context.CancelFunc
}

// New creates an orchestrator over the given collaborators.
func New(reader SnapshotReader, submitter TransferSubmitter, poller ConfirmationPoller, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		reader:    reader,
		submitter: submitter,
		poller:    poller,
		logger:    logger,
	}
}

// RequestSnapshot fetches a fresh snapshot for the given address and
// records it as the subject of later refreshes.
func (o *Orchestrator) RequestSnapshot(ctx context.Context, address string) (*solanasvc.AccountSnapshot, error) {
	token := o.begin()
	defer o.end()

	snap, err := o.reader.FetchSnapshot(ctx, address)
	if err != nil {
		o.applyError(token, err)
		return nil, err
	}

	o.mu.Lock()
	if token == o.seq {
		o.subject = snap.Address
	}
	o.mu.Unlock()

	o.applySnapshot(token, snap)
	return snap, nil
}

// RequestRefresh re-fetches the currently relevant address: the
// connected signer's address if one is connected, else the address of
// the last explicit snapshot request.
func (o *Orchestrator) RequestRefresh(ctx context.Context) (*solanasvc.AccountSnapshot, error) {
	address, ok := o.refreshSubject()
	if !ok {
		err := fmt.Errorf("%w: no address to refresh", solanasvc.ErrValidation)
		token := o.begin()
		defer o.end()
		o.applyError(token, err)
		return nil, err
	}

	token := o.begin()
	defer o.end()

	snap, err := o.reader.FetchSnapshot(ctx, address)
	if err != nil {
		o.applyError(token, err)
		return nil, err
	}
	o.applySnapshot(token, snap)
	return snap, nil
}

// RequestTransfer submits a transfer and polls it to a terminal state.
// On confirmed or finalized, exactly one refresh fetch fires for the
// sender; on timed-out or failed, none does. A transfer started while an
// earlier poll is still running supersedes it: the older poll's context
// is cancelled and its result discarded.
func (o *Orchestrator) RequestTransfer(ctx context.Context, amount, recipient string) (*solanasvc.SubmissionResult, error) {
	token := o.begin()
	defer o.end()

	result, err := o.submitter.Submit(ctx, solanasvc.TransferRequest{
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		o.applyError(token, err)
		return nil, err
	}

	pollCtx, cancel, pollID := o.supersedePoll(ctx)
	status, pollErr := o.poller.Await(pollCtx, result.Signature)
	cancel()
	o.forgetPoll(pollID)

	result.Status = status
	switch {
	case status.Success():
		// One refresh for the sender so the display reflects the
		// transfer. A refresh failure here is reported like any other
		// read failure; the transfer itself still succeeded.
		if sender, ok := o.submitter.Sender(); ok {
			snap, err := o.reader.FetchSnapshot(ctx, sender.String())
			if err != nil {
				o.applyError(token, err)
			} else {
				o.applySnapshot(token, snap)
			}
		}
	case status == solanasvc.StatusTimedOut:
		// Neutral terminal state: the transaction may still land, so
		// the error slot stays empty and the snapshot stays as-is.
		o.logger.InfoContext(ctx, "transfer not confirmed within window",
			"signature", result.Signature.String(),
		)
	default:
		if pollErr == nil {
			pollErr = fmt.Errorf("confirmation poll failed")
		}
		result.FailureReason = pollErr.Error()
		o.applyError(token, pollErr)
	}

	return result, nil
}

// Snapshot returns the currently displayed snapshot, if any.
func (o *Orchestrator) Snapshot() (*solanasvc.AccountSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot, o.snapshot != nil
}

// ErrMessage returns the current user-visible error message, if any.
// At most one is active; starting any operation clears it.
func (o *Orchestrator) ErrMessage() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg, o.hasErr
}

// Busy reports whether any operation is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight > 0
}

// begin issues the operation's token, clears the error slot, and raises
// the busy flag.
func (o *Orchestrator) begin() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.errMsg = ""
	o.hasErr = false
	o.inFlight++
	return o.seq
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight--
}

// applySnapshot writes the snapshot slot, unless a newer operation has
// started since this one drew its token.
func (o *Orchestrator) applySnapshot(token uint64, snap *solanasvc.AccountSnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.seq {
		o.logger.Debug("discarding stale snapshot",
			"token", token,
			"latest", o.seq,
			"address", snap.Address,
		)
		return
	}
	o.snapshot = snap
}

// applyError converts the failure to the single user-visible message
// slot, subject to the same token rule.
func (o *Orchestrator) applyError(token uint64, err error) {
	msg := userMessage(err)
	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.seq {
		o.logger.Debug("discarding stale error",
			"token", token,
			"latest", o.seq,
			"error", err,
		)
		return
	}
	o.errMsg = msg
	o.hasErr = true
}

// refreshSubject picks the address RequestRefresh should re-fetch.
func (o *Orchestrator) refreshSubject() (string, bool) {
	if sender, ok := o.submitter.Sender(); ok {
		return sender.String(), true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.subject, o.subject != ""
}

// supersedePoll cancels any in-flight confirmation poll and installs a
// cancel handle for the new one. The returned id lets the caller forget
// only its own handle once done, even if it has been superseded itself
// in the meantime.
func (o *Orchestrator) supersedePoll(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	pollCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	prior := o.cancelPoll
	o.pollID++
	id := o.pollID
	o.cancelPoll = cancel
	o.mu.Unlock()
	if prior != nil {
		o.logger.Debug("superseding in-flight confirmation poll")
		prior()
	}
	return pollCtx, cancel, id
}

func (o *Orchestrator) forgetPoll(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pollID == id {
		o.cancelPoll = nil
	}
}

// userMessage maps taxonomy errors onto the single user-visible message.
// Nothing escapes as a crash; unknown errors get a generic message.
func userMessage(err error) string {
	switch {
	case errors.Is(err, solanasvc.ErrInvalidAddress):
		return "That address is not a valid Solana address."
	case errors.Is(err, solanasvc.ErrValidation):
		return fmt.Sprintf("Invalid input: %v", err)
	case errors.Is(err, solanasvc.ErrNotConnected):
		return "Connect a wallet first."
	case errors.Is(err, solanasvc.ErrNetwork):
		return "Could not reach the Solana network. Try again."
	case errors.Is(err, solanasvc.ErrSubmission):
		return "The transfer could not be submitted."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
