package backend

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer is a party a call can act for: a wallet whose transaction signature the
// host already authenticated, or a program-derived authority capability that is
// verified by re-derivation.
type Signer interface {
	Key() (solana.PublicKey, error)
}

// Wallet is an authenticated transaction signer.
type Wallet solana.PublicKey

func (w Wallet) Key() (solana.PublicKey, error) {
	return solana.PublicKey(w), nil
}

// Execution is one atomic call. Writes land in an overlay over the committed
// accounts; the overlay is discarded if the call fails and committed as a unit
// if it succeeds.
type Execution struct {
	backend *Backend
	pending map[solana.PublicKey]*Account
	signers map[solana.PublicKey]bool
}

// Execute runs one call against a consistent snapshot of current state. Every
// signer capability is verified up front; any error from the call leaves the
// backend untouched.
func (b *Backend) Execute(signers []Signer, call func(exec *Execution) error) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	exec := &Execution{
		backend: b,
		pending: make(map[solana.PublicKey]*Account),
		signers: make(map[solana.PublicKey]bool),
	}
	for _, signer := range signers {
		key, err := signer.Key()
		if err != nil {
			return fmt.Errorf("signer is not valid, err: %s", err)
		}
		exec.signers[key] = true
	}
	if err := call(exec); err != nil {
		return err
	}
	b.slot++
	for key, account := range exec.pending {
		account.Height = b.slot
		b.accounts[key] = account
	}
	return nil
}

func (e *Execution) Signed(key solana.PublicKey) bool {
	return e.signers[key]
}

func (e *Execution) HasAccount(key solana.PublicKey) bool {
	if _, ok := e.pending[key]; ok {
		return true
	}
	_, ok := e.backend.accounts[key]
	return ok
}

func (e *Execution) Account(key solana.PublicKey) (*Account, error) {
	if account, ok := e.pending[key]; ok {
		return account, nil
	}
	account, ok := e.backend.accounts[key]
	if !ok {
		return nil, fmt.Errorf("account(%s) is missing", key)
	}
	copied := account.Copy()
	e.pending[key] = copied
	return copied, nil
}

func (e *Execution) CreateAccount(key solana.PublicKey, owner solana.PublicKey, size int) (*Account, error) {
	if e.HasAccount(key) {
		return nil, fmt.Errorf("account(%s) already exists", key)
	}
	account := &Account{
		PubKey: key,
		Owner:  owner,
		Data:   make([]byte, size),
	}
	e.pending[key] = account
	return account, nil
}
