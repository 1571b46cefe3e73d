package metaplex

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/program"
)

// MetadataLayout is the descriptive record registered for a mint.
type MetadataLayout struct {
	Mint            solana.PublicKey `json:"mint"`
	UpdateAuthority solana.PublicKey `json:"update_authority"`
	Name            string           `json:"name"`
	Symbol          string           `json:"symbol"`
	Uri             string           `json:"uri"`
}

type KeyedMetadata struct {
	Key    solana.PublicKey
	Height uint64
	MetadataLayout
}

// Program registers display metadata for mints. Registration must be signed by
// the mint authority.
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
		id:      program.Metaplex,
	}
	return p
}

func (p *Program) Name() string {
	return "metaplex"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

func (p *Program) Start() error {
	p.log.Printf("start metaplex program: %s......", p.Id())
	return nil
}

func (p *Program) Stop() error {
	p.log.Printf("stop metaplex program......")
	return nil
}

// MetadataAddress derives the metadata record address of a mint.
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress(
		[][]byte{program.MetadataSeed, program.Metaplex.Bytes(), mint.Bytes()},
		program.Metaplex,
	)
	return key, err
}

// Register writes the metadata record of a mint. The signer set of the running
// execution must contain mintAuthority, and the caller is responsible for
// having verified that mintAuthority really is the mint's authority.
func (p *Program) Register(exec *backend.Execution, mint solana.PublicKey, mintAuthority solana.PublicKey, name string, symbol string, uri string) (solana.PublicKey, error) {
	if !exec.Signed(mintAuthority) {
		return solana.PublicKey{}, fmt.Errorf("metadata for mint(%s) is not signed by authority(%s)", mint, mintAuthority)
	}
	key, err := MetadataAddress(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	account, err := exec.CreateAccount(key, p.id, 0)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("metadata for mint(%s) already registered, err: %s", mint, err)
	}
	metadata := MetadataLayout{
		Mint:            mint,
		UpdateAuthority: mintAuthority,
		Name:            name,
		Symbol:          symbol,
		Uri:             uri,
	}
	data, err := json.Marshal(&metadata)
	if err != nil {
		return solana.PublicKey{}, err
	}
	account.Data = data
	return key, nil
}

// GetMetadata reads a mint's metadata record from committed state.
func (p *Program) GetMetadata(mint solana.PublicKey) (*KeyedMetadata, error) {
	key, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	account, err := p.backend.Account(key)
	if err != nil {
		return nil, err
	}
	if account.Owner != p.id {
		return nil, fmt.Errorf("account(%s) is not metaplex program account", key)
	}
	metadata := MetadataLayout{}
	if err := json.Unmarshal(account.Data, &metadata); err != nil {
		return nil, fmt.Errorf("metadata account(%s) data is not valid, err: %s", key, err)
	}
	return &KeyedMetadata{
		Key:            key,
		Height:         account.Height,
		MetadataLayout: metadata,
	}, nil
}
