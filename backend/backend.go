package backend

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type Account struct {
	PubKey solana.PublicKey
	Owner  solana.PublicKey
	Data   []byte
	Height uint64
}

func (a *Account) Copy() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		PubKey: a.PubKey,
		Owner:  a.Owner,
		Data:   data,
		Height: a.Height,
	}
}

// Backend is the host execution environment. It owns every account, hands out
// consistent snapshots at call entry and commits a call's effects all-or-nothing.
// Calls are serialized; a call never observes another call's partial effects.
type Backend struct {
	ctx      context.Context
	log      *log.Logger
	lock     sync.Mutex
	slot     uint64
	accounts map[solana.PublicKey]*Account
}

func NewBackend(ctx context.Context) *Backend {
	b := &Backend{
		ctx:      ctx,
		log:      log.Default(),
		slot:     1,
		accounts: make(map[solana.PublicKey]*Account),
	}
	return b
}

func (b *Backend) Start() {
	b.log.Printf("start backend......")
}

func (b *Backend) Stop() {
	b.log.Printf("stop backend......")
}

func (b *Backend) Slot() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.slot
}

func (b *Backend) Account(key solana.PublicKey) (*Account, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	account, ok := b.accounts[key]
	if !ok {
		return nil, fmt.Errorf("account(%s) is missing", key)
	}
	return account.Copy(), nil
}

func (b *Backend) Accounts(keys []solana.PublicKey) ([]*Account, error) {
	accounts := make([]*Account, 0, len(keys))
	for _, key := range keys {
		account, err := b.Account(key)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (b *Backend) HasAccount(key solana.PublicKey) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	_, ok := b.accounts[key]
	return ok
}

// ProgramAccounts scans for accounts owned by a program, optionally filtered by
// data size.
func (b *Backend) ProgramAccounts(owner solana.PublicKey, sizes []uint64) ([]*Account, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	accounts := make([]*Account, 0)
	for _, account := range b.accounts {
		if account.Owner != owner {
			continue
		}
		if len(sizes) > 0 {
			match := false
			for _, size := range sizes {
				if uint64(len(account.Data)) == size {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		accounts = append(accounts, account.Copy())
	}
	return accounts, nil
}
