package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Authority is the signing capability of a program-derived account. It holds no
// secret: the capability is valid iff seeds plus bump re-derive the account key
// under the owning program, which anyone can verify.
type Authority struct {
	ProgramId solana.PublicKey
	Seeds     [][]byte
	Bump      uint8
}

func NewAuthority(programId solana.PublicKey, seeds [][]byte, bump uint8) *Authority {
	return &Authority{
		ProgramId: programId,
		Seeds:     seeds,
		Bump:      bump,
	}
}

// DeriveAuthority finds the bump for the given seeds and returns the derived key
// together with its capability.
func DeriveAuthority(programId solana.PublicKey, seeds [][]byte) (solana.PublicKey, *Authority, error) {
	key, bump, err := solana.FindProgramAddress(seeds, programId)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	return key, NewAuthority(programId, seeds, bump), nil
}

// Key re-derives the account this capability signs for.
func (a *Authority) Key() (solana.PublicKey, error) {
	seeds := make([][]byte, 0, len(a.Seeds)+1)
	seeds = append(seeds, a.Seeds...)
	seeds = append(seeds, []byte{a.Bump})
	key, err := solana.CreateProgramAddress(seeds, a.ProgramId)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("authority seeds are not valid, err: %s", err)
	}
	return key, nil
}
