package system

import (
	"context"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/program"
)

// Program allocates accounts for other programs. Rent and storage fees are the
// host's concern and are not modeled.
type Program struct {
	backend *backend.Backend
	log     *log.Logger
	ctx     context.Context
	id      solana.PublicKey
}

func NewProgram(ctx context.Context, be *backend.Backend) *Program {
	p := &Program{
		ctx:     ctx,
		backend: be,
		log:     log.Default(),
		id:      program.System,
	}
	return p
}

func (p *Program) Name() string {
	return "system"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

func (p *Program) Start() error {
	p.log.Printf("start system program: %s......", p.Id())
	return nil
}

func (p *Program) Stop() error {
	p.log.Printf("stop system program......")
	return nil
}

// CreateAccount allocates a zeroed account of the given size owned by ownerId.
// It fails if the address is already in use.
func (p *Program) CreateAccount(exec *backend.Execution, newKey solana.PublicKey, space uint64, ownerId solana.PublicKey) (*backend.Account, error) {
	return exec.CreateAccount(newKey, ownerId, int(space))
}
