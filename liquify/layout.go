package liquify

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/program"
)

var (
	PoolLayoutSize = 97
)

// PoolLayout is the pool record: the ordered asset pair, the claim-token mint
// and the bump that re-derives the pool's own signing authority. Fixed at
// creation, never mutated afterwards.
type PoolLayout struct {
	TokenA    solana.PublicKey
	TokenB    solana.PublicKey
	PoolToken solana.PublicKey
	Bump      uint8
}

type KeyedPool struct {
	Key    solana.PublicKey
	Height uint64
	PoolLayout
}

func (p *PoolLayout) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := binary.Write(buf, binary.LittleEndian, p)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PoolAddress derives the pool record address for an ordered asset pair. The
// pair is not canonicalized: (A, B) and (B, A) are distinct pools.
func PoolAddress(tokenA solana.PublicKey, tokenB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{program.PoolSeed, tokenA.Bytes(), tokenB.Bytes()},
		program.Liquify,
	)
}

// LpMintAddress derives the claim-token mint address of a pool.
func LpMintAddress(pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{program.LpSeed, pool.Bytes()},
		program.Liquify,
	)
}
