package liquify

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/config"
	"github.com/igloo-exchange/liquify/env"
	"github.com/igloo-exchange/liquify/metaplex"
	"github.com/igloo-exchange/liquify/program"
	"github.com/igloo-exchange/liquify/spltoken"
	"github.com/igloo-exchange/liquify/system"
	"github.com/igloo-exchange/liquify/utils"
)

var (
	LpDecimals  = byte(6)
	MetadataUri = "https://igloo.exchange/lp-token-metadata.json"
)

// Program is the liquidity pool program: it creates pools and executes the
// four pool operations atomically through the backend. Only the pool's derived
// authority can move reserve funds or change claim-token supply, and the
// program is the only holder of that capability.
type Program struct {
	backend         *backend.Backend
	env             *env.Env
	log             *log.Logger
	ctx             context.Context
	id              solana.PublicKey
	splTokenProgram *spltoken.Program
	systemProgram   *system.Program
	metaplexProgram *metaplex.Program
	lock            sync.RWMutex
	models          map[solana.PublicKey]*Model
}

func NewProgram(id solana.PublicKey, ctx context.Context, env *env.Env, be *backend.Backend, splTokenProgram *spltoken.Program, systemProgram *system.Program, metaplexProgram *metaplex.Program) *Program {
	p := &Program{
		ctx:             ctx,
		backend:         be,
		env:             env,
		log:             log.Default(),
		id:              id,
		splTokenProgram: splTokenProgram,
		systemProgram:   systemProgram,
		metaplexProgram: metaplexProgram,
		models:          make(map[solana.PublicKey]*Model),
	}
	return p
}

func (p *Program) Name() string {
	return "liquify"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

func (p *Program) Type() string {
	return program.AMM
}

func (p *Program) Start() error {
	p.log = utils.NewLog(config.LogPath, p.Name())
	p.log.Printf("start %s, program: %s, type: %s", p.Name(), p.Id(), p.Type())
	accounts, err := p.backend.ProgramAccounts(p.id, []uint64{uint64(PoolLayoutSize)})
	if err != nil {
		return err
	}
	for _, account := range accounts {
		pool, err := p.parsePool(account)
		if err != nil {
			p.log.Printf("parse pool err: %s", err.Error())
			continue
		}
		keyedPool := &KeyedPool{
			Key:        account.PubKey,
			Height:     account.Height,
			PoolLayout: pool,
		}
		if _, err := p.upsertModel(keyedPool); err != nil {
			p.log.Printf("build pool model err: %s", err.Error())
		}
	}
	return nil
}

func (p *Program) Stop() error {
	p.log.Printf("stop %s, program: %s, type: %s", p.Name(), p.Id(), p.Type())
	p.save2Cache()
	return nil
}

func (p *Program) save2Cache() {
	p.lock.RLock()
	infoJson, _ := json.MarshalIndent(p.models, "", "    ")
	p.lock.RUnlock()
	name := fmt.Sprintf("%s%s_%s.json", config.CachePath, p.Name(), p.Id())
	err := os.WriteFile(name, infoJson, 0644)
	if err != nil {
		p.log.Printf("save cache err: %s", err.Error())
	}
}

func (p *Program) Markets() []*Model {
	p.lock.RLock()
	defer p.lock.RUnlock()
	models := make([]*Model, 0, len(p.models))
	for _, model := range p.models {
		models = append(models, model)
	}
	return models
}

func (p *Program) GetMarket(key solana.PublicKey) *Model {
	p.lock.RLock()
	defer p.lock.RUnlock()
	model, ok := p.models[key]
	if !ok {
		return nil
	}
	return model
}

func (p *Program) parsePool(account *backend.Account) (PoolLayout, error) {
	pool := PoolLayout{}
	if account.Owner != p.id {
		return pool, fmt.Errorf("account(%s) is not liquify program account, expected: %s, actual: %s", account.PubKey, p.id, account.Owner)
	}
	if len(account.Data) != PoolLayoutSize {
		return pool, fmt.Errorf("pool account(%s) data size is not valid, expected: %d, actual: %d", account.PubKey, PoolLayoutSize, len(account.Data))
	}
	buf := bytes.NewReader(account.Data)
	err := binary.Read(buf, binary.LittleEndian, &pool)
	if err != nil {
		return pool, fmt.Errorf("pool account(%s) data is not valid, err: %s", account.PubKey, err)
	}
	return pool, nil
}

// poolAuthority rebuilds the pool's signing capability from its record. The
// bump stored at creation reproduces the same authority on every call.
func (p *Program) poolAuthority(pool *PoolLayout) *program.Authority {
	return program.NewAuthority(p.id, [][]byte{
		program.PoolSeed,
		pool.TokenA.Bytes(),
		pool.TokenB.Bytes(),
	}, pool.Bump)
}

func (p *Program) vaults(poolKey solana.PublicKey, pool *PoolLayout) (solana.PublicKey, solana.PublicKey, error) {
	vaultA, err := spltoken.AssociatedTokenAddress(poolKey, pool.TokenA)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	vaultB, err := spltoken.AssociatedTokenAddress(poolKey, pool.TokenB)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return vaultA, vaultB, nil
}

func (p *Program) executionPool(exec *backend.Execution, poolKey solana.PublicKey) (PoolLayout, error) {
	account, err := exec.Account(poolKey)
	if err != nil {
		return PoolLayout{}, fmt.Errorf("pool(%s) is missing, err: %s", poolKey, err)
	}
	return p.parsePool(account)
}

func (p *Program) upsertModel(keyedPool *KeyedPool) (*Model, error) {
	vaultAKey, vaultBKey, err := p.vaults(keyedPool.Key, &keyedPool.PoolLayout)
	if err != nil {
		return nil, err
	}
	vaultA, err := p.splTokenProgram.GetUser(vaultAKey)
	if err != nil {
		return nil, err
	}
	vaultB, err := p.splTokenProgram.GetUser(vaultBKey)
	if err != nil {
		return nil, err
	}
	poolMint, err := p.splTokenProgram.GetToken(keyedPool.PoolToken)
	if err != nil {
		return nil, err
	}
	// publish a fresh model so concurrent readers holding the old pointer see
	// a stable snapshot
	model := &Model{
		ProgramId: p.id,
		Pool:      keyedPool,
		VaultA:    vaultA,
		VaultB:    vaultB,
		PoolMint:  poolMint,
	}
	p.lock.Lock()
	p.models[keyedPool.Key] = model
	p.lock.Unlock()
	return model, nil
}

func (p *Program) refreshModel(poolKey solana.PublicKey) (*Model, error) {
	account, err := p.backend.Account(poolKey)
	if err != nil {
		return nil, err
	}
	pool, err := p.parsePool(account)
	if err != nil {
		return nil, err
	}
	return p.upsertModel(&KeyedPool{
		Key:        poolKey,
		Height:     account.Height,
		PoolLayout: pool,
	})
}

func clipSymbol(symbol string, max int) string {
	runes := []rune(symbol)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// Initialize creates the pool record, the claim-token mint, the two reserve
// vaults and the claim token's display metadata. A second call for the same
// ordered pair fails.
func (p *Program) Initialize(creator solana.PublicKey, tokenA solana.PublicKey, tokenB solana.PublicKey, symbolA string, symbolB string) (*Model, error) {
	poolKey, bump, err := PoolAddress(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	lpMint, _, err := LpMintAddress(poolKey)
	if err != nil {
		return nil, err
	}
	pool := PoolLayout{
		TokenA:    tokenA,
		TokenB:    tokenB,
		PoolToken: lpMint,
		Bump:      bump,
	}
	authority := p.poolAuthority(&pool)
	lpName := fmt.Sprintf("Liquify %s/%s LP", symbolA, symbolB)
	lpSymbol := fmt.Sprintf("%s%s-LP", clipSymbol(symbolA, 4), clipSymbol(symbolB, 4))
	err = p.backend.Execute([]backend.Signer{backend.Wallet(creator), authority}, func(exec *backend.Execution) error {
		if exec.HasAccount(poolKey) {
			return fmt.Errorf("%w: pool(%s) pair (%s, %s)", ErrPoolExists, poolKey, tokenA, tokenB)
		}
		if _, err := p.splTokenProgram.ExecutionToken(exec, tokenA); err != nil {
			return fmt.Errorf("token a mint is not valid, err: %s", err)
		}
		if _, err := p.splTokenProgram.ExecutionToken(exec, tokenB); err != nil {
			return fmt.Errorf("token b mint is not valid, err: %s", err)
		}
		poolAccount, err := p.systemProgram.CreateAccount(exec, poolKey, uint64(PoolLayoutSize), p.id)
		if err != nil {
			return err
		}
		data, err := pool.Encode()
		if err != nil {
			return err
		}
		poolAccount.Data = data
		if err := p.splTokenProgram.InitializeMint(exec, lpMint, LpDecimals, poolKey); err != nil {
			return err
		}
		vaultA, vaultB, err := p.vaults(poolKey, &pool)
		if err != nil {
			return err
		}
		if err := p.splTokenProgram.InitializeAccount(exec, vaultA, tokenA, poolKey); err != nil {
			return err
		}
		if err := p.splTokenProgram.InitializeAccount(exec, vaultB, tokenB, poolKey); err != nil {
			return err
		}
		if _, err := p.metaplexProgram.Register(exec, lpMint, poolKey, lpName, lpSymbol, MetadataUri); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Printf("pool initialized, lp mint: %s, metadata: %s", lpMint, lpName)
	return p.refreshModel(poolKey)
}

// DepositLiquidity moves both amounts into the reserves and mints claim tokens
// to the depositor. The first deposit mints floor(sqrt(a*b)); later deposits
// are priced off the asset-A ratio only, so amountB is taken in full whether
// or not it matches the pool ratio.
func (p *Program) DepositLiquidity(user solana.PublicKey, poolKey solana.PublicKey, amountA uint64, amountB uint64) (uint64, error) {
	liquidity := uint64(0)
	firstDeposit := false
	execute := func(exec *backend.Execution) error {
		pool, err := p.executionPool(exec, poolKey)
		if err != nil {
			return err
		}
		vaultA, vaultB, err := p.vaults(poolKey, &pool)
		if err != nil {
			return err
		}
		lpToken, err := p.splTokenProgram.ExecutionToken(exec, pool.PoolToken)
		if err != nil {
			return err
		}
		reserveA, err := p.splTokenProgram.ExecutionUser(exec, vaultA)
		if err != nil {
			return err
		}
		liquidity, err = depositMint(amountA, amountB, lpToken.Supply, reserveA.Amount)
		if err != nil {
			return err
		}
		firstDeposit = lpToken.Supply == 0
		userA, err := spltoken.AssociatedTokenAddress(user, pool.TokenA)
		if err != nil {
			return err
		}
		userB, err := spltoken.AssociatedTokenAddress(user, pool.TokenB)
		if err != nil {
			return err
		}
		userLp, err := spltoken.AssociatedTokenAddress(user, pool.PoolToken)
		if err != nil {
			return err
		}
		if !exec.HasAccount(userLp) {
			if err := p.splTokenProgram.InitializeAccount(exec, userLp, pool.PoolToken, user); err != nil {
				return err
			}
		}
		if err := p.splTokenProgram.Transfer(exec, userA, vaultA, amountA); err != nil {
			return err
		}
		if err := p.splTokenProgram.Transfer(exec, userB, vaultB, amountB); err != nil {
			return err
		}
		return p.splTokenProgram.MintTo(exec, pool.PoolToken, userLp, liquidity)
	}
	err := p.withPoolAuthority(poolKey, user, execute)
	if err != nil {
		return 0, err
	}
	if firstDeposit {
		p.log.Printf("first deposit, minting %d lp", liquidity)
	} else {
		p.log.Printf("adding liquidity, minting %d lp", liquidity)
	}
	if _, err := p.refreshModel(poolKey); err != nil {
		p.log.Printf("refresh model err: %s", err.Error())
	}
	return liquidity, nil
}

// Swap trades amountIn against the pool. The trade direction follows which
// reserve vault the caller names as input. The output is priced on the
// constant-product curve with the 0.3% input fee; if it falls below
// minAmountOut the call aborts and no funds move.
func (p *Program) Swap(user solana.PublicKey, poolKey solana.PublicKey, inputVault solana.PublicKey, amountIn uint64, minAmountOut uint64) (*program.SwapResult, error) {
	var result *program.SwapResult
	execute := func(exec *backend.Execution) error {
		pool, err := p.executionPool(exec, poolKey)
		if err != nil {
			return err
		}
		vaultA, vaultB, err := p.vaults(poolKey, &pool)
		if err != nil {
			return err
		}
		tokenIn, tokenOut := pool.TokenA, pool.TokenB
		outputVault := vaultB
		if inputVault == vaultB {
			tokenIn, tokenOut = pool.TokenB, pool.TokenA
			outputVault = vaultA
		} else if inputVault != vaultA {
			return fmt.Errorf("input vault(%s) is not a vault of pool(%s)", inputVault, poolKey)
		}
		reserveIn, err := p.splTokenProgram.ExecutionUser(exec, inputVault)
		if err != nil {
			return err
		}
		reserveOut, err := p.splTokenProgram.ExecutionUser(exec, outputVault)
		if err != nil {
			return err
		}
		amountOut, err := swapOutput(amountIn, reserveIn.Amount, reserveOut.Amount)
		if err != nil {
			return err
		}
		if amountOut < minAmountOut {
			return fmt.Errorf("%w: minimum: %d, actual: %d", ErrSlippageExceeded, minAmountOut, amountOut)
		}
		userIn, err := spltoken.AssociatedTokenAddress(user, tokenIn)
		if err != nil {
			return err
		}
		userOut, err := spltoken.AssociatedTokenAddress(user, tokenOut)
		if err != nil {
			return err
		}
		if err := p.splTokenProgram.Transfer(exec, userIn, inputVault, amountIn); err != nil {
			return err
		}
		if err := p.splTokenProgram.Transfer(exec, outputVault, userOut, amountOut); err != nil {
			return err
		}
		result = &program.SwapResult{
			TokenIn:    tokenIn,
			AmountIn:   amountIn,
			TokenOut:   tokenOut,
			AmountOut:  amountOut,
			NewSwapSrc: reserveIn.Amount + amountIn,
			NewSwapDst: reserveOut.Amount - amountOut,
		}
		return nil
	}
	err := p.withPoolAuthority(poolKey, user, execute)
	if err != nil {
		return nil, err
	}
	p.log.Printf("swapped %d in for %d out", result.AmountIn, result.AmountOut)
	if _, err := p.refreshModel(poolKey); err != nil {
		p.log.Printf("refresh model err: %s", err.Error())
	}
	return result, nil
}

// WithdrawLiquidity burns the caller's claim tokens and returns the
// proportional share of both reserves. Withdrawal against a zero supply is an
// arithmetic fault.
func (p *Program) WithdrawLiquidity(user solana.PublicKey, poolKey solana.PublicKey, lpAmount uint64) (uint64, uint64, error) {
	amountA, amountB := uint64(0), uint64(0)
	execute := func(exec *backend.Execution) error {
		pool, err := p.executionPool(exec, poolKey)
		if err != nil {
			return err
		}
		vaultA, vaultB, err := p.vaults(poolKey, &pool)
		if err != nil {
			return err
		}
		lpToken, err := p.splTokenProgram.ExecutionToken(exec, pool.PoolToken)
		if err != nil {
			return err
		}
		reserveA, err := p.splTokenProgram.ExecutionUser(exec, vaultA)
		if err != nil {
			return err
		}
		reserveB, err := p.splTokenProgram.ExecutionUser(exec, vaultB)
		if err != nil {
			return err
		}
		amountA, amountB, err = withdrawAmounts(lpAmount, reserveA.Amount, reserveB.Amount, lpToken.Supply)
		if err != nil {
			return err
		}
		userA, err := spltoken.AssociatedTokenAddress(user, pool.TokenA)
		if err != nil {
			return err
		}
		userB, err := spltoken.AssociatedTokenAddress(user, pool.TokenB)
		if err != nil {
			return err
		}
		userLp, err := spltoken.AssociatedTokenAddress(user, pool.PoolToken)
		if err != nil {
			return err
		}
		if err := p.splTokenProgram.Burn(exec, pool.PoolToken, userLp, lpAmount); err != nil {
			return err
		}
		if err := p.splTokenProgram.Transfer(exec, vaultA, userA, amountA); err != nil {
			return err
		}
		return p.splTokenProgram.Transfer(exec, vaultB, userB, amountB)
	}
	err := p.withPoolAuthority(poolKey, user, execute)
	if err != nil {
		return 0, 0, err
	}
	p.log.Printf("withdrew liquidity: %d a, %d b", amountA, amountB)
	if _, err := p.refreshModel(poolKey); err != nil {
		p.log.Printf("refresh model err: %s", err.Error())
	}
	return amountA, amountB, nil
}

// withPoolAuthority runs one atomic call signed by the user's wallet and the
// pool's re-derived authority.
func (p *Program) withPoolAuthority(poolKey solana.PublicKey, user solana.PublicKey, execute func(exec *backend.Execution) error) error {
	account, err := p.backend.Account(poolKey)
	if err != nil {
		return fmt.Errorf("pool(%s) is missing, err: %s", poolKey, err)
	}
	pool, err := p.parsePool(account)
	if err != nil {
		return err
	}
	authority := p.poolAuthority(&pool)
	authorityKey, err := authority.Key()
	if err != nil {
		return err
	}
	if authorityKey != poolKey {
		return fmt.Errorf("pool(%s) authority proof is not valid, derived: %s", poolKey, authorityKey)
	}
	return p.backend.Execute([]backend.Signer{backend.Wallet(user), authority}, execute)
}

// RetrieveState renders a pool's price and reserves in display units.
func (p *Program) RetrieveState(market solana.PublicKey) (string, error) {
	model := p.GetMarket(market)
	if model == nil {
		return "", fmt.Errorf("no model of the key - %s", market)
	}
	tokenA := p.env.Token(model.Pool.TokenA)
	tokenB := p.env.Token(model.Pool.TokenB)
	if tokenA == nil || tokenB == nil {
		return "", fmt.Errorf("token pair of pool(%s) is not registered", market)
	}
	amountTokenA := tokenA.AmountUi(model.VaultA.Amount)
	amountTokenB := tokenB.AmountUi(model.VaultB.Amount)
	state1 := ""
	if !amountTokenA.IsZero() {
		price := amountTokenB.Div(amountTokenA).StringFixed(5)
		state1 = fmt.Sprintf("    %s/%s: %s\n", tokenA.Symbol, tokenB.Symbol, price)
	}
	state2 := fmt.Sprintf("    token pool: (%s %s)(%s %s)",
		tokenA.Symbol, amountTokenA.StringFixed(2), tokenB.Symbol, amountTokenB.StringFixed(2))
	return state1 + state2, nil
}

// IsPoolError reports whether err is one of the program's typed failures.
func IsPoolError(err error) bool {
	return errors.Is(err, ErrPoolExists) || errors.Is(err, ErrArithmetic) || errors.Is(err, ErrSlippageExceeded)
}
