package env

import (
	"context"
	"log"

	"github.com/gagliardetto/solana-go"
)

// Env is the static environment of the deployment: the token registry used for
// display and genesis funding.
type Env struct {
	logger *log.Logger
	ctx    context.Context
	tokens map[solana.PublicKey]*Token
}

func NewEnv(ctx context.Context) *Env {
	env := &Env{
		ctx:    ctx,
		logger: log.Default(),
		tokens: make(map[solana.PublicKey]*Token),
	}
	return env
}

func (e *Env) Start() {
	e.logger.Printf("start env......")
	e.loadTokens()
}

func (e *Env) Stop() {
	e.logger.Printf("stop env......")
}

func (e *Env) Token(key solana.PublicKey) *Token {
	if item, ok := e.tokens[key]; ok {
		return item
	}
	return nil
}

func (e *Env) Tokens() map[solana.PublicKey]*Token {
	return e.tokens
}
