package metaplex

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/igloo-exchange/liquify/backend"
	"github.com/stretchr/testify/require"
)

var (
	testMint      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testAuthority = solana.MustPublicKeyFromBase58("7H4ShpibmzrKS8yPJX9wi1ZyrRYzw5tLym7RjWvAxcHA")
)

func TestRegister(t *testing.T) {
	be := backend.NewBackend(context.Background())
	p := NewProgram(context.Background(), be)

	var key solana.PublicKey
	err := be.Execute([]backend.Signer{backend.Wallet(testAuthority)}, func(exec *backend.Execution) error {
		var err error
		key, err = p.Register(exec, testMint, testAuthority, "Liquify USDC/USDT LP", "USDCUSDT-LP", "https://igloo.exchange/lp-token-metadata.json")
		return err
	})
	require.NoError(t, err)

	expected, err := MetadataAddress(testMint)
	require.NoError(t, err)
	require.Equal(t, expected, key)

	metadata, err := p.GetMetadata(testMint)
	require.NoError(t, err)
	require.Equal(t, testMint, metadata.Mint)
	require.Equal(t, testAuthority, metadata.UpdateAuthority)
	require.Equal(t, "Liquify USDC/USDT LP", metadata.Name)
	require.Equal(t, "USDCUSDT-LP", metadata.Symbol)
}

func TestRegisterUnsigned(t *testing.T) {
	be := backend.NewBackend(context.Background())
	p := NewProgram(context.Background(), be)

	err := be.Execute(nil, func(exec *backend.Execution) error {
		_, err := p.Register(exec, testMint, testAuthority, "name", "symbol", "uri")
		return err
	})
	require.Error(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	be := backend.NewBackend(context.Background())
	p := NewProgram(context.Background(), be)

	register := func(exec *backend.Execution) error {
		_, err := p.Register(exec, testMint, testAuthority, "name", "symbol", "uri")
		return err
	}
	err := be.Execute([]backend.Signer{backend.Wallet(testAuthority)}, register)
	require.NoError(t, err)
	err = be.Execute([]backend.Signer{backend.Wallet(testAuthority)}, register)
	require.Error(t, err)
}
