package solana

import (
	"github.com/gagliardetto/solana-go"
)

// AccountSnapshot is a point-in-time view of an account: its lamport
// balance and its most recent transaction signatures, newest first.
// A snapshot is created fresh on every successful read and never mutated.
type AccountSnapshot struct {
	Address    string   `json:"address"`
	Lamports   uint64   `json:"lamports"`
	Signatures []string `json:"signatures"`
}

// SOL returns the balance in display units. Conversion happens here, at
// the presentation boundary; the stored value stays in lamports.
func (s *AccountSnapshot) SOL() string {
	return LamportsToSOL(s.Lamports)
}

// TransferRequest describes a single native transfer. Amount is the
// display-unit decimal exactly as the user entered it; conversion to
// lamports happens at submission time. Sender is optional: when set it
// must match the connected signer's address.
type TransferRequest struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// Status is the confirmation state of a submitted transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further status transitions are possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Success reports whether the network acknowledged inclusion. Confirmed
// and finalized are both success; callers that care about durability can
// inspect which level was reached.
func (s Status) Success() bool {
	return s == StatusConfirmed || s == StatusFinalized
}

// SubmissionResult is produced once the signer returns a signature. Its
// Status starts at pending and is advanced only by the confirmation
// poller. FailureReason is set only for StatusFailed.
type SubmissionResult struct {
	Signature     solana.Signature `json:"signature"`
	Status        Status           `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
}
