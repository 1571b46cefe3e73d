package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/config"
	"github.com/igloo-exchange/liquify/dingsdk"
	"github.com/igloo-exchange/liquify/env"
	"github.com/igloo-exchange/liquify/liquify"
	"github.com/igloo-exchange/liquify/metaplex"
	"github.com/igloo-exchange/liquify/program"
	"github.com/igloo-exchange/liquify/spltoken"
	"github.com/igloo-exchange/liquify/store"
	"github.com/igloo-exchange/liquify/system"
	"github.com/igloo-exchange/liquify/utils"
)

var (
	Init    = int32(0)
	Started = int32(1)
	Stopped = int32(3)
)

// Exchange hosts the liquify program and exposes its four operations over a
// JSON API. All operations act for the configured wallet.
type Exchange struct {
	ctx        context.Context
	log        *log.Logger
	config     *config.Config
	status     int32
	backend    *backend.Backend
	env        *env.Env
	splToken   *spltoken.Program
	system     *system.Program
	metaplex   *metaplex.Program
	liquify    *liquify.Program
	store      *store.Store
	dsdk       *dingsdk.DingSdk
	httpServer *http.Server
	rpcPort    string
}

func NewExchange(ctx context.Context, cfg *config.Config) *Exchange {
	ex := &Exchange{
		ctx:     ctx,
		config:  cfg,
		rpcPort: cfg.Listen,
	}
	ex.log = utils.NewLog(config.LogPath, "exchange")
	ex.store = store.NewStore(ctx, cfg.DBUrl, cfg.DBScheme, cfg.DBUser, cfg.DBPasswd)
	ex.backend = backend.NewBackend(ctx)
	ex.env = env.NewEnv(ctx)
	ex.splToken = spltoken.NewProgram(ctx, ex.backend)
	ex.system = system.NewProgram(ctx, ex.backend)
	ex.metaplex = metaplex.NewProgram(ctx, ex.backend)
	ex.liquify = liquify.NewProgram(program.Liquify, ctx, ex.env, ex.backend, ex.splToken, ex.system, ex.metaplex)
	if cfg.DingUrl != "" {
		ex.dsdk = dingsdk.NewDingSdk(cfg.DingUrl)
	}
	ex.status = Init
	return ex
}

func (ex *Exchange) Service() {
	ex.Start()
	ex.StartRPC()
	<-ex.ctx.Done()
	ex.StopRPC()
	ex.Stop()
}

func (ex *Exchange) Start() {
	ex.store.Start()
	ex.backend.Start()
	ex.env.Start()
	if err := ex.splToken.Start(); err != nil {
		ex.log.Printf("spl token program start err: %v", err)
	}
	if err := ex.system.Start(); err != nil {
		ex.log.Printf("system program start err: %v", err)
	}
	if err := ex.metaplex.Start(); err != nil {
		ex.log.Printf("metaplex program start err: %v", err)
	}
	if err := ex.genesis(); err != nil {
		panic(err)
	}
	if err := ex.liquify.Start(); err != nil {
		ex.log.Printf("liquify program start err: %v", err)
	}
	ex.initPools()
	atomic.StoreInt32(&ex.status, Started)
	ex.log.Printf("liquify exchange has started......")
}

func (ex *Exchange) Stop() {
	if ex.config.DumpState {
		ex.dumpState()
	}
	if err := ex.liquify.Stop(); err != nil {
		ex.log.Printf("liquify program stop err: %v", err)
	}
	if err := ex.metaplex.Stop(); err != nil {
		ex.log.Printf("metaplex program stop err: %v", err)
	}
	if err := ex.system.Stop(); err != nil {
		ex.log.Printf("system program stop err: %v", err)
	}
	if err := ex.splToken.Stop(); err != nil {
		ex.log.Printf("spl token program stop err: %v", err)
	}
	ex.env.Stop()
	ex.store.Stop()
	ex.backend.Stop()
	atomic.StoreInt32(&ex.status, Stopped)
	ex.log.Printf("liquify exchange has stopped......")
}

func (ex *Exchange) dumpState() {
	for _, model := range ex.liquify.Markets() {
		state, err := ex.liquify.RetrieveState(model.Id())
		if err != nil {
			ex.log.Printf("retrieve state err: %v", err)
			continue
		}
		ex.log.Printf("pool %s:\n%s", model.Id(), state)
	}
}

// genesis creates the registered asset mints and funds the configured wallet,
// so a fresh deployment has assets to pool.
func (ex *Exchange) genesis() error {
	user := ex.config.User
	for mint, token := range ex.env.Tokens() {
		if ex.backend.HasAccount(mint) {
			continue
		}
		mint := mint
		token := token
		err := ex.backend.Execute([]backend.Signer{backend.Wallet(user)}, func(exec *backend.Execution) error {
			if err := ex.splToken.InitializeMint(exec, mint, byte(token.Decimal), user); err != nil {
				return err
			}
			userAccount, err := spltoken.AssociatedTokenAddress(user, mint)
			if err != nil {
				return err
			}
			if err := ex.splToken.InitializeAccount(exec, userAccount, mint, user); err != nil {
				return err
			}
			if token.Balance > 0 {
				return ex.splToken.MintTo(exec, mint, userAccount, token.Balance)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("genesis for mint(%s) err: %s", mint, err)
		}
		ex.log.Printf("genesis mint %s (%s), balance: %d", token.Symbol, mint, token.Balance)
	}
	return nil
}

func (ex *Exchange) initPools() {
	for _, pool := range ex.config.Pools {
		poolKey, _, err := liquify.PoolAddress(pool.TokenA, pool.TokenB)
		if err != nil {
			ex.log.Printf("derive pool err: %v", err)
			continue
		}
		if ex.backend.HasAccount(poolKey) {
			continue
		}
		model, err := ex.liquify.Initialize(ex.config.User, pool.TokenA, pool.TokenB, pool.SymbolA, pool.SymbolB)
		if err != nil {
			ex.log.Printf("initialize pool (%s, %s) err: %v", pool.TokenA, pool.TokenB, err)
			continue
		}
		ex.recordPool(model)
	}
}

func (ex *Exchange) recordPool(model *liquify.Model) {
	ex.store.StorePool(&store.PoolRecord{
		Address:   model.Id().String(),
		TokenA:    model.Pool.TokenA.String(),
		TokenB:    model.Pool.TokenB.String(),
		PoolToken: model.Pool.PoolToken.String(),
		Slot:      model.CurrentSlot(),
	})
	ex.notify(fmt.Sprintf("liquify: pool created\n    pool: %s\n    pair: (%s, %s)", model.Id(), model.Pool.TokenA, model.Pool.TokenB))
}

func (ex *Exchange) notify(content string) {
	if ex.dsdk == nil {
		return
	}
	if err := ex.dsdk.NotifyText(content); err != nil {
		ex.log.Printf("ding notify err: %v", err)
	}
}

func (ex *Exchange) StartRPC() {
	router := gin.New()
	g := router.Group("/api")
	g.POST("/pool", ex.postPool)
	g.GET("/pool", ex.getPool)
	g.POST("/deposit", ex.postDeposit)
	g.POST("/swap", ex.postSwap)
	g.POST("/withdraw", ex.postWithdraw)
	ex.httpServer = &http.Server{
		Addr:    ex.rpcPort,
		Handler: router,
	}
	ex.log.Printf("start rpc server......")
	go func() {
		if err := ex.httpServer.ListenAndServe(); err != nil {
			ex.log.Printf("ListenAndServe: %s", err.Error())
		}
	}()
}

func (ex *Exchange) StopRPC() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ex.httpServer.Shutdown(ctx); err != nil {
		panic(err)
	}
	ex.log.Printf("rpc server has stopped......")
}

func statusCode(err error) int {
	if liquify.IsPoolError(err) {
		return 400
	}
	return 500
}

type PoolRequest struct {
	TokenA  string `json:"token_a"`
	TokenB  string `json:"token_b"`
	SymbolA string `json:"symbol_a"`
	SymbolB string `json:"symbol_b"`
}

func (ex *Exchange) postPool(c *gin.Context) {
	req := PoolRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, err.Error())
		return
	}
	tokenA, err := solana.PublicKeyFromBase58(req.TokenA)
	if err != nil {
		c.JSON(400, "token_a is invalid")
		return
	}
	tokenB, err := solana.PublicKeyFromBase58(req.TokenB)
	if err != nil {
		c.JSON(400, "token_b is invalid")
		return
	}
	model, err := ex.liquify.Initialize(ex.config.User, tokenA, tokenB, req.SymbolA, req.SymbolB)
	if err != nil {
		c.JSON(statusCode(err), err.Error())
		return
	}
	ex.recordPool(model)
	c.JSON(200, gin.H{
		"pool":       model.Id().String(),
		"pool_token": model.Pool.PoolToken.String(),
		"vaults":     model.PoolPair(),
	})
}

func (ex *Exchange) getPool(c *gin.Context) {
	address, ok := c.GetQuery("address")
	if !ok {
		c.JSON(400, "parameter is invalid")
		return
	}
	poolKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		c.JSON(400, "address is invalid")
		return
	}
	model := ex.liquify.GetMarket(poolKey)
	if model == nil {
		c.JSON(404, "no pool of the key")
		return
	}
	state, err := ex.liquify.RetrieveState(poolKey)
	if err != nil {
		state = ""
	}
	swaps, err := ex.store.GetSwaps(address)
	if err != nil {
		c.JSON(500, err.Error())
		return
	}
	liquidity, err := ex.store.GetLiquidity(address)
	if err != nil {
		c.JSON(500, err.Error())
		return
	}
	c.JSON(200, gin.H{
		"pool":       model.Id().String(),
		"token_a":    model.Pool.TokenA.String(),
		"token_b":    model.Pool.TokenB.String(),
		"reserve_a":  model.VaultA.Amount,
		"reserve_b":  model.VaultB.Amount,
		"supply":     model.PoolMint.Supply,
		"state":      state,
		"swaps":      swaps,
		"liquidity":  liquidity,
		"height":     model.CurrentSlot(),
		"pool_token": model.Pool.PoolToken.String(),
	})
}

type DepositRequest struct {
	Pool    string `json:"pool"`
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

func (ex *Exchange) postDeposit(c *gin.Context) {
	req := DepositRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, err.Error())
		return
	}
	poolKey, err := solana.PublicKeyFromBase58(req.Pool)
	if err != nil {
		c.JSON(400, "pool is invalid")
		return
	}
	liquidityOut, err := ex.liquify.DepositLiquidity(ex.config.User, poolKey, req.AmountA, req.AmountB)
	if err != nil {
		c.JSON(statusCode(err), err.Error())
		return
	}
	ex.store.StoreLiquidity(&store.LiquidityRecord{
		Pool:     req.Pool,
		Kind:     store.LiquidityDeposit,
		AmountA:  req.AmountA,
		AmountB:  req.AmountB,
		LpAmount: liquidityOut,
		Slot:     ex.backend.Slot(),
	})
	c.JSON(200, gin.H{"lp_amount": liquidityOut})
}

type SwapRequest struct {
	Pool         string `json:"pool"`
	InputVault   string `json:"input_vault"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
}

func (ex *Exchange) postSwap(c *gin.Context) {
	req := SwapRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, err.Error())
		return
	}
	poolKey, err := solana.PublicKeyFromBase58(req.Pool)
	if err != nil {
		c.JSON(400, "pool is invalid")
		return
	}
	inputVault, err := solana.PublicKeyFromBase58(req.InputVault)
	if err != nil {
		c.JSON(400, "input_vault is invalid")
		return
	}
	result, err := ex.liquify.Swap(ex.config.User, poolKey, inputVault, req.AmountIn, req.MinAmountOut)
	if err != nil {
		c.JSON(statusCode(err), err.Error())
		return
	}
	ex.store.StoreSwap(&store.SwapRecord{
		Pool:      req.Pool,
		TokenIn:   result.TokenIn.String(),
		AmountIn:  result.AmountIn,
		TokenOut:  result.TokenOut.String(),
		AmountOut: result.AmountOut,
		Slot:      ex.backend.Slot(),
	})
	ex.notify(fmt.Sprintf("liquify: swapped %d in for %d out on pool %s", result.AmountIn, result.AmountOut, req.Pool))
	c.JSON(200, result)
}

type WithdrawRequest struct {
	Pool     string `json:"pool"`
	LpAmount uint64 `json:"lp_amount"`
}

func (ex *Exchange) postWithdraw(c *gin.Context) {
	req := WithdrawRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, err.Error())
		return
	}
	poolKey, err := solana.PublicKeyFromBase58(req.Pool)
	if err != nil {
		c.JSON(400, "pool is invalid")
		return
	}
	amountA, amountB, err := ex.liquify.WithdrawLiquidity(ex.config.User, poolKey, req.LpAmount)
	if err != nil {
		c.JSON(statusCode(err), err.Error())
		return
	}
	ex.store.StoreLiquidity(&store.LiquidityRecord{
		Pool:     req.Pool,
		Kind:     store.LiquidityWithdraw,
		AmountA:  amountA,
		AmountB:  amountB,
		LpAmount: req.LpAmount,
		Slot:     ex.backend.Slot(),
	})
	c.JSON(200, gin.H{"amount_a": amountA, "amount_b": amountB})
}
