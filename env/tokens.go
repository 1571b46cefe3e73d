package env

import (
	"encoding/json"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/config"
	"github.com/shopspring/decimal"
)

type Token struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Decimal uint64 `json:"decimal"`
	Balance uint64 `json:"balance"`
}

// AmountUi converts a native integer amount to display units.
func (token *Token) AmountUi(amount uint64) decimal.Decimal {
	return decimal.New(int64(amount), 0).Shift(-int32(token.Decimal))
}

func (e *Env) loadTokens() {
	infoJson, err := os.ReadFile(config.TokensFile)
	if err != nil {
		panic(err)
	}
	err = json.Unmarshal(infoJson, &e.tokens)
	if err != nil {
		panic(err)
	}
	for _, token := range e.tokens {
		if token.Symbol == "" {
			panic("token symbol is missing")
		}
	}
}

func (e *Env) TokenKeys() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(e.tokens))
	for key := range e.tokens {
		keys = append(keys, key)
	}
	return keys
}
