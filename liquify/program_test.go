package liquify

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/env"
	"github.com/igloo-exchange/liquify/metaplex"
	"github.com/igloo-exchange/liquify/program"
	"github.com/igloo-exchange/liquify/spltoken"
	"github.com/igloo-exchange/liquify/system"
	"github.com/stretchr/testify/require"
)

var (
	testUser = solana.MustPublicKeyFromBase58("7H4ShpibmzrKS8yPJX9wi1ZyrRYzw5tLym7RjWvAxcHA")
)

type testExchange struct {
	backend  *backend.Backend
	splToken *spltoken.Program
	system   *system.Program
	metaplex *metaplex.Program
	program  *Program
	user     solana.PublicKey
	tokenA   solana.PublicKey
	tokenB   solana.PublicKey
}

func newTestExchange(t *testing.T) *testExchange {
	ctx := context.Background()
	be := backend.NewBackend(ctx)
	splToken := spltoken.NewProgram(ctx, be)
	systemProgram := system.NewProgram(ctx, be)
	metaplexProgram := metaplex.NewProgram(ctx, be)
	e := env.NewEnv(ctx)
	p := NewProgram(program.Liquify, ctx, e, be, splToken, systemProgram, metaplexProgram)
	te := &testExchange{
		backend:  be,
		splToken: splToken,
		system:   systemProgram,
		metaplex: metaplexProgram,
		program:  p,
		user:     testUser,
		tokenA:   program.USDC,
		tokenB:   program.USDT,
	}
	te.createMint(t, te.tokenA, 6)
	te.createMint(t, te.tokenB, 6)
	te.fund(t, te.tokenA, 10000000)
	te.fund(t, te.tokenB, 10000000)
	return te
}

func (te *testExchange) createMint(t *testing.T, mint solana.PublicKey, decimals byte) {
	err := te.backend.Execute([]backend.Signer{backend.Wallet(te.user)}, func(exec *backend.Execution) error {
		return te.splToken.InitializeMint(exec, mint, decimals, te.user)
	})
	require.NoError(t, err)
}

func (te *testExchange) fund(t *testing.T, mint solana.PublicKey, amount uint64) {
	account, err := spltoken.AssociatedTokenAddress(te.user, mint)
	require.NoError(t, err)
	err = te.backend.Execute([]backend.Signer{backend.Wallet(te.user)}, func(exec *backend.Execution) error {
		if !exec.HasAccount(account) {
			if err := te.splToken.InitializeAccount(exec, account, mint, te.user); err != nil {
				return err
			}
		}
		return te.splToken.MintTo(exec, mint, account, amount)
	})
	require.NoError(t, err)
}

func (te *testExchange) balance(t *testing.T, owner solana.PublicKey, mint solana.PublicKey) uint64 {
	account, err := spltoken.AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	amount, err := te.splToken.GetBalance(account)
	require.NoError(t, err)
	return amount
}

func (te *testExchange) initPool(t *testing.T) *Model {
	model, err := te.program.Initialize(te.user, te.tokenA, te.tokenB, "USDC", "USDT")
	require.NoError(t, err)
	return model
}

func TestInitialize(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)

	// pool record binds the ordered pair and the claim-token mint
	require.Equal(t, te.tokenA, model.Pool.TokenA)
	require.Equal(t, te.tokenB, model.Pool.TokenB)
	poolKey, bump, err := PoolAddress(te.tokenA, te.tokenB)
	require.NoError(t, err)
	require.Equal(t, poolKey, model.Id())
	require.Equal(t, bump, model.Pool.Bump)

	account, err := te.backend.Account(poolKey)
	require.NoError(t, err)
	require.Equal(t, PoolLayoutSize, len(account.Data))
	require.Equal(t, program.Liquify, account.Owner)

	// claim token: 6 decimals, zero supply, authority is the pool itself
	lpMint, err := te.splToken.GetToken(model.Pool.PoolToken)
	require.NoError(t, err)
	require.Equal(t, byte(6), lpMint.Decimals)
	require.Equal(t, uint64(0), lpMint.Supply)
	require.Equal(t, poolKey, lpMint.MintAuthority)

	// reserves exist, owned by the pool, empty
	require.Equal(t, uint64(0), model.VaultA.Amount)
	require.Equal(t, uint64(0), model.VaultB.Amount)
	require.Equal(t, poolKey, model.VaultA.Owner)
	require.Equal(t, poolKey, model.VaultB.Owner)

	// display metadata is registered under the pool's authority
	metadata, err := te.metaplex.GetMetadata(model.Pool.PoolToken)
	require.NoError(t, err)
	require.Equal(t, "Liquify USDC/USDT LP", metadata.Name)
	require.Equal(t, "USDCUSDT-LP", metadata.Symbol)
	require.Equal(t, MetadataUri, metadata.Uri)
}

func TestInitializeDuplicate(t *testing.T) {
	te := newTestExchange(t)
	te.initPool(t)
	_, err := te.program.Initialize(te.user, te.tokenA, te.tokenB, "USDC", "USDT")
	require.ErrorIs(t, err, ErrPoolExists)
}

func TestInitializeReversedPairIsDistinct(t *testing.T) {
	te := newTestExchange(t)
	modelAB := te.initPool(t)
	modelBA, err := te.program.Initialize(te.user, te.tokenB, te.tokenA, "USDT", "USDC")
	require.NoError(t, err)
	require.NotEqual(t, modelAB.Id(), modelBA.Id())
}

func TestInitializeSymbolClipping(t *testing.T) {
	te := newTestExchange(t)
	model, err := te.program.Initialize(te.user, te.tokenA, te.tokenB, "LONGSYMBOL", "XY")
	require.NoError(t, err)
	metadata, err := te.metaplex.GetMetadata(model.Pool.PoolToken)
	require.NoError(t, err)
	require.Equal(t, "LONGXY-LP", metadata.Symbol)
	require.Equal(t, "Liquify LONGSYMBOL/XY LP", metadata.Name)
}

func TestDepositFirst(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)

	minted, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 400000)
	require.NoError(t, err)
	require.Equal(t, uint64(200000), minted)

	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(100000), model.VaultA.Amount)
	require.Equal(t, uint64(400000), model.VaultB.Amount)
	require.Equal(t, uint64(200000), model.PoolMint.Supply)
	require.Equal(t, uint64(200000), te.balance(t, te.user, model.Pool.PoolToken))
}

func TestDepositIgnoresAmountB(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	// deliberately mismatched amount b: the mint is priced off side a only,
	// but b is still transferred in full
	minted, err := te.program.DepositLiquidity(te.user, model.Id(), 10000, 999999)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), minted)

	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(110000), model.VaultA.Amount)
	require.Equal(t, uint64(1099999), model.VaultB.Amount)
}

func TestDepositZeroAmounts(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	minted, err := te.program.DepositLiquidity(te.user, model.Id(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), minted)
}

func TestDepositRollsBackOnFailure(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	balanceA := te.balance(t, te.user, te.tokenA)

	// more b than the wallet holds: the a-side transfer must not survive
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 99999999999)
	require.Error(t, err)

	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(0), model.VaultA.Amount)
	require.Equal(t, uint64(0), model.VaultB.Amount)
	require.Equal(t, balanceA, te.balance(t, te.user, te.tokenA))
}

func TestSwap(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	balanceA := te.balance(t, te.user, te.tokenA)
	balanceB := te.balance(t, te.user, te.tokenB)

	result, err := te.program.Swap(te.user, model.Id(), model.VaultA.Key, 1000, 987)
	require.NoError(t, err)
	require.Equal(t, uint64(987), result.AmountOut)
	require.Equal(t, te.tokenA, result.TokenIn)
	require.Equal(t, te.tokenB, result.TokenOut)

	require.Equal(t, balanceA-1000, te.balance(t, te.user, te.tokenA))
	require.Equal(t, balanceB+987, te.balance(t, te.user, te.tokenB))

	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(101000), model.VaultA.Amount)
	require.Equal(t, uint64(99013), model.VaultB.Amount)

	// fee accrues to the reserves: the product never shrinks
	require.True(t, uint64(101000)*uint64(99013) >= uint64(100000)*uint64(100000))
}

func TestSwapOppositeDirection(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	result, err := te.program.Swap(te.user, model.Id(), model.VaultB.Key, 1000, 0)
	require.NoError(t, err)
	require.Equal(t, te.tokenB, result.TokenIn)
	require.Equal(t, te.tokenA, result.TokenOut)
	require.Equal(t, uint64(987), result.AmountOut)
}

func TestSwapSlippage(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	balanceA := te.balance(t, te.user, te.tokenA)
	balanceB := te.balance(t, te.user, te.tokenB)

	_, err = te.program.Swap(te.user, model.Id(), model.VaultA.Key, 1000, 988)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	// nothing moved
	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(100000), model.VaultA.Amount)
	require.Equal(t, uint64(100000), model.VaultB.Amount)
	require.Equal(t, balanceA, te.balance(t, te.user, te.tokenA))
	require.Equal(t, balanceB, te.balance(t, te.user, te.tokenB))
}

func TestSwapUnknownVault(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)
	_, err = te.program.Swap(te.user, model.Id(), program.SOL, 1000, 0)
	require.Error(t, err)
}

func TestWithdraw(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	minted, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 400000)
	require.NoError(t, err)

	amountA, amountB, err := te.program.WithdrawLiquidity(te.user, model.Id(), minted/2)
	require.NoError(t, err)
	require.Equal(t, uint64(50000), amountA)
	require.Equal(t, uint64(200000), amountB)

	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(50000), model.VaultA.Amount)
	require.Equal(t, uint64(200000), model.VaultB.Amount)
	require.Equal(t, minted/2, model.PoolMint.Supply)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	amountA, amountB := uint64(12345), uint64(67891)
	minted, err := te.program.DepositLiquidity(te.user, model.Id(), amountA, amountB)
	require.NoError(t, err)

	backA, backB, err := te.program.WithdrawLiquidity(te.user, model.Id(), minted)
	require.NoError(t, err)
	require.True(t, backA <= amountA)
	require.True(t, backB <= amountB)
	require.Equal(t, uint64(0), te.balance(t, te.user, model.Pool.PoolToken))
}

func TestWithdrawEmptyPool(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, _, err := te.program.WithdrawLiquidity(te.user, model.Id(), 0)
	require.ErrorIs(t, err, ErrArithmetic)
	model = te.program.GetMarket(model.Id())
	require.Equal(t, uint64(0), model.VaultA.Amount)
	require.Equal(t, uint64(0), model.VaultB.Amount)
}

func TestReservesGuardedByPoolAuthority(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	// the wallet cannot debit a reserve directly: only the pool's derived
	// authority may, and only the program holds that capability
	userA, err := spltoken.AssociatedTokenAddress(te.user, te.tokenA)
	require.NoError(t, err)
	err = te.backend.Execute([]backend.Signer{backend.Wallet(te.user)}, func(exec *backend.Execution) error {
		return te.splToken.Transfer(exec, model.VaultA.Key, userA, 1)
	})
	require.Error(t, err)

	// nor mint the claim token
	userLp, err := spltoken.AssociatedTokenAddress(te.user, model.Pool.PoolToken)
	require.NoError(t, err)
	err = te.backend.Execute([]backend.Signer{backend.Wallet(te.user)}, func(exec *backend.Execution) error {
		return te.splToken.MintTo(exec, model.Pool.PoolToken, userLp, 1)
	})
	require.Error(t, err)
}

func TestConcurrentOperations(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	poolKey := model.Id()
	_, err := te.program.DepositLiquidity(te.user, poolKey, 100000, 100000)
	require.NoError(t, err)

	// deposits from many goroutines while the model cache is read concurrently,
	// the way the rpc handlers drive the program
	workers, rounds := 8, 20
	errs := make(chan error, workers*rounds)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := te.program.DepositLiquidity(te.user, poolKey, 10, 10); err != nil {
					errs <- err
					return
				}
				if m := te.program.GetMarket(poolKey); m != nil {
					_ = m.VaultA.Amount
					_ = m.PoolMint.Supply
				}
				for _, m := range te.program.Markets() {
					_ = m.Id()
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// reserves stay 1:1 so every deposit of (10, 10) mints exactly 10
	added := uint64(workers * rounds * 10)
	balance, err := te.splToken.GetBalance(model.VaultA.Key)
	require.NoError(t, err)
	require.Equal(t, 100000+added, balance)
	balance, err = te.splToken.GetBalance(model.VaultB.Key)
	require.NoError(t, err)
	require.Equal(t, 100000+added, balance)
	lpMint, err := te.splToken.GetToken(model.Pool.PoolToken)
	require.NoError(t, err)
	require.Equal(t, 100000+added, lpMint.Supply)
}

func TestModelQuoteMatchesExecution(t *testing.T) {
	te := newTestExchange(t)
	model := te.initPool(t)
	_, err := te.program.DepositLiquidity(te.user, model.Id(), 100000, 100000)
	require.NoError(t, err)

	model = te.program.GetMarket(model.Id())
	quote, err := model.Swap(te.tokenA, 1000)
	require.NoError(t, err)

	result, err := te.program.Swap(te.user, model.Id(), model.VaultA.Key, 1000, 0)
	require.NoError(t, err)
	require.Equal(t, quote.AmountOut, result.AmountOut)
	require.Equal(t, quote.NewSwapSrc, result.NewSwapSrc)
	require.Equal(t, quote.NewSwapDst, result.NewSwapDst)
}
