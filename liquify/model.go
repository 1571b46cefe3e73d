package liquify

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/program"
	"github.com/igloo-exchange/liquify/spltoken"
)

// Model is the committed view of one pool: the pool record plus the last
// retrieved vault balances and claim-token supply. A model is never mutated
// after it is published; each committed operation replaces it. Quotes off a
// model do not move funds; the program re-reads live state when it executes.
type Model struct {
	ProgramId solana.PublicKey
	Pool      *KeyedPool
	VaultA    *spltoken.KeyedUser
	VaultB    *spltoken.KeyedUser
	PoolMint  *spltoken.KeyedToken
}

func (m *Model) Program() solana.PublicKey {
	return m.ProgramId
}

func (m *Model) Id() solana.PublicKey {
	return m.Pool.Key
}

func (m *Model) Type() string {
	return program.AMM
}

func (m *Model) TokenPair() []solana.PublicKey {
	return []solana.PublicKey{m.Pool.TokenA, m.Pool.TokenB}
}

func (m *Model) PoolPair() []solana.PublicKey {
	return []solana.PublicKey{m.VaultA.Key, m.VaultB.Key}
}

func (m *Model) CurrentSlot() uint64 {
	return m.Pool.Height
}

// Swap quotes a trade against the model's balances without executing it.
func (m *Model) Swap(token solana.PublicKey, amount uint64) (*program.SwapResult, error) {
	if token != m.Pool.TokenA && token != m.Pool.TokenB {
		return nil, fmt.Errorf("token is not in this pool")
	}
	sourceToken := m.Pool.TokenA
	sourceAmount := m.VaultA.Amount
	destinationToken := m.Pool.TokenB
	destinationAmount := m.VaultB.Amount
	if token == m.Pool.TokenB {
		sourceToken = m.Pool.TokenB
		sourceAmount = m.VaultB.Amount
		destinationToken = m.Pool.TokenA
		destinationAmount = m.VaultA.Amount
	}
	amountOut, err := swapOutput(amount, sourceAmount, destinationAmount)
	if err != nil {
		return nil, err
	}
	return &program.SwapResult{
		TokenIn:    sourceToken,
		AmountIn:   amount,
		TokenOut:   destinationToken,
		AmountOut:  amountOut,
		NewSwapSrc: sourceAmount + amount,
		NewSwapDst: destinationAmount - amountOut,
	}, nil
}
