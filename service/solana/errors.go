package solana

import "errors"

var (
	// ErrInvalidAddress means an address failed base58 decoding to a
	// 32-byte public key. Raised locally, before any RPC call.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrValidation means a transfer request was malformed (missing
	// recipient, missing or non-positive amount).
	ErrValidation = errors.New("invalid transfer request")

	// ErrNotConnected means an operation required a signer and none was
	// connected.
	ErrNotConnected = errors.New("no signer connected")

	// ErrNetwork means an RPC read failed or was unreachable.
	ErrNetwork = errors.New("rpc call failed")

	// ErrSubmission means the signer rejected the transaction or the
	// dispatch to the network failed. No confirmation polling follows.
	ErrSubmission = errors.New("transaction submission failed")
)
