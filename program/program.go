package program

import "github.com/gagliardetto/solana-go"

var (
	Liquify         = solana.MustPublicKeyFromBase58("9NkKG55KStQNSdswjAt6tbQnNxTsLaBiExswWXXmcZw4")
	Token           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedToken = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	Metaplex        = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	System          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	SysRent         = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

var (
	USDT = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	USDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	SOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

var (
	PoolSeed     = []byte("pool")
	LpSeed       = []byte("lp")
	MetadataSeed = []byte("metadata")
)

const (
	AMM = "AMM"
)

type SwapResult struct {
	TokenIn    solana.PublicKey
	AmountIn   uint64
	TokenOut   solana.PublicKey
	AmountOut  uint64
	NewSwapSrc uint64
	NewSwapDst uint64
}
