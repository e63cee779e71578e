// Package signer holds the connected-signer implementations. The
// orchestration layer only ever sees the solana.Signer interface; key
// material stays inside this package.
package signer

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Keypair is a local signer backed by a Solana keypair. It satisfies the
// submitter's Signer interface.
type Keypair struct {
	key solana.PrivateKey
}

// FromFile loads a keypair from a solana-keygen JSON file (the format
// written by `solana-keygen new`).
func FromFile(path string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &Keypair{key: key}, nil
}

// FromBase58 loads a keypair from a base58-encoded private key string.
func FromBase58(encoded string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return &Keypair{key: key}, nil
}

// Connected reports whether the signer holds a key. A nil *Keypair is a
// valid "no wallet connected" signer.
func (k *Keypair) Connected() bool {
	return k != nil
}

// Address returns the public key this signer signs for.
func (k *Keypair) Address() solana.PublicKey {
	return k.key.PublicKey()
}

// Sign signs the transaction in place with the held key.
func (k *Keypair) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(k.key.PublicKey()) {
			return &k.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
