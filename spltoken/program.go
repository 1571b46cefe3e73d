package spltoken

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/igloo-exchange/liquify/program"
)

// Program is the token-management service. It holds every token balance and
// mint supply, and moves funds only on instruction of an authorized signer:
// the account owner for debits, the mint authority for mint and metadata.
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
		id:      program.Token,
	}
	return p
}

func (p *Program) Name() string {
	return "spl token"
}

func (p *Program) Id() solana.PublicKey {
	return p.id
}

func (p *Program) Start() error {
	p.log.Printf("start spl token program: %s......", p.Id())
	return nil
}

func (p *Program) Stop() error {
	p.log.Printf("stop spl token program......")
	return nil
}

// AssociatedTokenAddress derives the canonical holding account of an owner for
// a mint.
func AssociatedTokenAddress(owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), program.Token.Bytes(), mint.Bytes()},
		program.AssociatedToken,
	)
	return key, err
}

func (p *Program) parseUser(account *backend.Account) (UserLayout, error) {
	user := UserLayout{}
	if account == nil {
		return user, fmt.Errorf("account is missing")
	}
	if account.Owner != p.id {
		return user, fmt.Errorf("account(%s) is not spl token program account, expected: %s, actual: %s", account.PubKey, p.id, account.Owner)
	}
	if len(account.Data) != TokenLayoutSize {
		return user, fmt.Errorf("spl token account(%s) data size is not valid, expected: %d, actual: %d", account.PubKey, TokenLayoutSize, len(account.Data))
	}
	buf := bytes.NewReader(account.Data)
	err := binary.Read(buf, binary.LittleEndian, &user)
	if err != nil {
		return user, fmt.Errorf("spl token account(%s) data is not valid, err: %s", account.PubKey, err)
	}
	return user, nil
}

func (p *Program) parseToken(account *backend.Account) (TokenLayout, error) {
	token := TokenLayout{}
	if account.Owner != p.id {
		return token, fmt.Errorf("account(%s) is not spl token program account", account.PubKey)
	}
	if len(account.Data) != MintLayoutSize {
		return token, fmt.Errorf("account(%s) data size is not valid", account.PubKey)
	}
	buf := bytes.NewReader(account.Data)
	err := binary.Read(buf, binary.LittleEndian, &token)
	if err != nil {
		return token, fmt.Errorf("account(%s) data is not valid, err: %s", account.PubKey, err)
	}
	return token, nil
}

func (p *Program) writeUser(account *backend.Account, user *UserLayout) error {
	data, err := user.Encode()
	if err != nil {
		return fmt.Errorf("spl token account(%s) encode err: %s", account.PubKey, err)
	}
	account.Data = data
	return nil
}

func (p *Program) writeToken(account *backend.Account, token *TokenLayout) error {
	data, err := token.Encode()
	if err != nil {
		return fmt.Errorf("mint account(%s) encode err: %s", account.PubKey, err)
	}
	account.Data = data
	return nil
}

// InitializeMint creates a mint with zero supply under the given authority.
func (p *Program) InitializeMint(exec *backend.Execution, mint solana.PublicKey, decimals byte, authority solana.PublicKey) error {
	account, err := exec.CreateAccount(mint, p.id, MintLayoutSize)
	if err != nil {
		return err
	}
	token := TokenLayout{
		MintAuthorityOption: [4]byte{1, 0, 0, 0},
		MintAuthority:       authority,
		Supply:              0,
		Decimals:            decimals,
		IsInitialized:       1,
	}
	return p.writeToken(account, &token)
}

// InitializeAccount creates an empty holding account for a mint.
func (p *Program) InitializeAccount(exec *backend.Execution, key solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey) error {
	if !exec.HasAccount(mint) {
		return fmt.Errorf("mint(%s) is missing", mint)
	}
	account, err := exec.CreateAccount(key, p.id, TokenLayoutSize)
	if err != nil {
		return err
	}
	user := UserLayout{
		Mint:   mint,
		Owner:  owner,
		Amount: 0,
		State:  1,
	}
	return p.writeUser(account, &user)
}

// Transfer moves amount between two holding accounts of the same mint. The
// source owner must have signed.
func (p *Program) Transfer(exec *backend.Execution, source solana.PublicKey, destination solana.PublicKey, amount uint64) error {
	sourceAccount, err := exec.Account(source)
	if err != nil {
		return err
	}
	sourceUser, err := p.parseUser(sourceAccount)
	if err != nil {
		return err
	}
	destinationAccount, err := exec.Account(destination)
	if err != nil {
		return err
	}
	destinationUser, err := p.parseUser(destinationAccount)
	if err != nil {
		return err
	}
	if !exec.Signed(sourceUser.Owner) {
		return fmt.Errorf("transfer from account(%s) is not signed by its owner(%s)", source, sourceUser.Owner)
	}
	if sourceUser.Mint != destinationUser.Mint {
		return fmt.Errorf("transfer mint is not matched, source: %s, destination: %s", sourceUser.Mint, destinationUser.Mint)
	}
	if sourceUser.Amount < amount {
		return fmt.Errorf("account(%s) balance is insufficient, balance: %d, amount: %d", source, sourceUser.Amount, amount)
	}
	if destinationUser.Amount > math.MaxUint64-amount {
		return fmt.Errorf("account(%s) balance overflow", destination)
	}
	sourceUser.Amount -= amount
	destinationUser.Amount += amount
	if err := p.writeUser(sourceAccount, &sourceUser); err != nil {
		return err
	}
	return p.writeUser(destinationAccount, &destinationUser)
}

// MintTo issues new supply to a holding account. The mint authority must have
// signed.
func (p *Program) MintTo(exec *backend.Execution, mint solana.PublicKey, destination solana.PublicKey, amount uint64) error {
	mintAccount, err := exec.Account(mint)
	if err != nil {
		return err
	}
	token, err := p.parseToken(mintAccount)
	if err != nil {
		return err
	}
	if token.MintAuthorityOption[0] == 0 || !exec.Signed(token.MintAuthority) {
		return fmt.Errorf("mint(%s) is not signed by its authority(%s)", mint, token.MintAuthority)
	}
	destinationAccount, err := exec.Account(destination)
	if err != nil {
		return err
	}
	destinationUser, err := p.parseUser(destinationAccount)
	if err != nil {
		return err
	}
	if destinationUser.Mint != mint {
		return fmt.Errorf("account(%s) mint is not matched, expected: %s, actual: %s", destination, mint, destinationUser.Mint)
	}
	if token.Supply > math.MaxUint64-amount {
		return fmt.Errorf("mint(%s) supply overflow", mint)
	}
	token.Supply += amount
	destinationUser.Amount += amount
	if err := p.writeToken(mintAccount, &token); err != nil {
		return err
	}
	return p.writeUser(destinationAccount, &destinationUser)
}

// Burn destroys supply held by an account. The account owner must have signed.
func (p *Program) Burn(exec *backend.Execution, mint solana.PublicKey, from solana.PublicKey, amount uint64) error {
	mintAccount, err := exec.Account(mint)
	if err != nil {
		return err
	}
	token, err := p.parseToken(mintAccount)
	if err != nil {
		return err
	}
	fromAccount, err := exec.Account(from)
	if err != nil {
		return err
	}
	fromUser, err := p.parseUser(fromAccount)
	if err != nil {
		return err
	}
	if !exec.Signed(fromUser.Owner) {
		return fmt.Errorf("burn from account(%s) is not signed by its owner(%s)", from, fromUser.Owner)
	}
	if fromUser.Mint != mint {
		return fmt.Errorf("account(%s) mint is not matched, expected: %s, actual: %s", from, mint, fromUser.Mint)
	}
	if fromUser.Amount < amount {
		return fmt.Errorf("account(%s) balance is insufficient, balance: %d, amount: %d", from, fromUser.Amount, amount)
	}
	token.Supply -= amount
	fromUser.Amount -= amount
	if err := p.writeToken(mintAccount, &token); err != nil {
		return err
	}
	return p.writeUser(fromAccount, &fromUser)
}

// GetUser reads a holding account from committed state.
func (p *Program) GetUser(key solana.PublicKey) (*KeyedUser, error) {
	account, err := p.backend.Account(key)
	if err != nil {
		return nil, err
	}
	user, err := p.parseUser(account)
	if err != nil {
		return nil, err
	}
	return &KeyedUser{
		Key:        key,
		Height:     account.Height,
		UserLayout: user,
	}, nil
}

// GetToken reads a mint from committed state.
func (p *Program) GetToken(key solana.PublicKey) (*KeyedToken, error) {
	account, err := p.backend.Account(key)
	if err != nil {
		return nil, err
	}
	token, err := p.parseToken(account)
	if err != nil {
		return nil, err
	}
	return &KeyedToken{
		Key:         key,
		Height:      account.Height,
		TokenLayout: token,
	}, nil
}

func (p *Program) GetBalance(key solana.PublicKey) (uint64, error) {
	user, err := p.GetUser(key)
	if err != nil {
		return 0, err
	}
	return user.Amount, nil
}

// ExecutionUser parses a holding account inside a running execution.
func (p *Program) ExecutionUser(exec *backend.Execution, key solana.PublicKey) (UserLayout, error) {
	account, err := exec.Account(key)
	if err != nil {
		return UserLayout{}, err
	}
	return p.parseUser(account)
}

// ExecutionToken parses a mint inside a running execution.
func (p *Program) ExecutionToken(exec *backend.Execution, key solana.PublicKey) (TokenLayout, error) {
	account, err := exec.Account(key)
	if err != nil {
		return TokenLayout{}, err
	}
	return p.parseToken(account)
}
