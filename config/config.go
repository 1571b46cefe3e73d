package config

import (
	"github.com/gagliardetto/solana-go"
)

var (
	CachePath  = "./cache/"
	ConfigPath = "./config/"
	TokensFile = ConfigPath + "tokens.json"
	ConfigFile = ConfigPath + "config.json"
	LogPath    = "./logs/"
)

type Pool struct {
	TokenA  solana.PublicKey `json:"token_a"`
	TokenB  solana.PublicKey `json:"token_b"`
	SymbolA string           `json:"symbol_a"`
	SymbolB string           `json:"symbol_b"`
}

type Config struct {
	Listen    string           `json:"listen"`
	User      solana.PublicKey `json:"user"`
	Pools     []*Pool          `json:"pools"`
	DingUrl   string           `json:"ding-url"`
	DBUrl     string           `json:"db_url"`
	DBScheme  string           `json:"db_scheme"`
	DBUser    string           `json:"db_user"`
	DBPasswd  string           `json:"db_passwd"`
	WorkSpace string           `json:"workspace"`
	DumpState bool             `json:"dump_state"`
}
