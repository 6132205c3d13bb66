package token

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vesting/internal/ledger"
)

func wallet(t *testing.T, name string) ledger.Address {
	t.Helper()
	seed := sha256.Sum256([]byte(name))
	addr, err := ledger.AddressFromBytes(ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey))
	require.NoError(t, err)
	return addr
}

func signer(t *testing.T, addr ledger.Address) ledger.Signer {
	t.Helper()
	s, err := ledger.WalletSigner(addr)
	require.NoError(t, err)
	return s
}

// run executes fn as one atomic operation.
func run(t *testing.T, h *ledger.MemoryHost, fn func(ctx context.Context, a ledger.Accounts) error) error {
	t.Helper()
	ctx := context.Background()
	return h.Atomically(ctx, nil, func(a ledger.Accounts) error { return fn(ctx, a) })
}

type fixture struct {
	host      *ledger.MemoryHost
	mint      ledger.Address
	authority ledger.Address
}

func newFixture(t *testing.T, decimals uint8) fixture {
	t.Helper()
	f := fixture{
		host:      ledger.NewMemoryHost(),
		mint:      wallet(t, "mint"),
		authority: wallet(t, "mint-authority"),
	}
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		_, err := InitializeMint(ctx, a, f.mint, decimals, f.authority)
		return err
	}))
	return f
}

func (f fixture) fundedAccount(t *testing.T, owner ledger.Address, amount uint64) ledger.Address {
	t.Helper()
	var addr ledger.Address
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		acct, err := CreateAssociatedIdempotent(ctx, a, owner, f.mint)
		if err != nil {
			return err
		}
		addr = acct.Address
		if amount == 0 {
			return nil
		}
		return MintTo(ctx, a, f.mint, addr, signer(t, f.authority), amount)
	}))
	return addr
}

func (f fixture) balance(t *testing.T, addr ledger.Address) uint64 {
	t.Helper()
	var amount uint64
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		acct, err := LoadAccount(ctx, a, addr)
		amount = acct.Amount
		return err
	}))
	return amount
}

func TestMintToIncreasesSupplyAndBalance(t *testing.T) {
	f := newFixture(t, 2)
	dest := f.fundedAccount(t, wallet(t, "alice"), 500)

	assert.Equal(t, uint64(500), f.balance(t, dest))
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		m, err := LoadMint(ctx, a, f.mint)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), m.Supply)
		assert.Equal(t, uint8(2), m.Decimals)
		require.NotNil(t, m.Authority)
		assert.Equal(t, f.authority, *m.Authority)
		return nil
	}))
}

func TestMintToRequiresAuthority(t *testing.T) {
	f := newFixture(t, 0)
	dest := f.fundedAccount(t, wallet(t, "alice"), 0)

	err := run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		return MintTo(ctx, a, f.mint, dest, signer(t, wallet(t, "mallory")), 10)
	})
	require.ErrorIs(t, err, ErrOwnerMismatch)
	assert.Equal(t, uint64(0), f.balance(t, dest))
}

func TestTransferChecked(t *testing.T) {
	f := newFixture(t, 6)
	alice := wallet(t, "alice")
	src := f.fundedAccount(t, alice, 1000)
	dst := f.fundedAccount(t, wallet(t, "bob"), 0)

	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		return TransferChecked(ctx, a, Transfer{
			Source: src, Mint: f.mint, Destination: dst,
			Authority: signer(t, alice), Amount: 400, Decimals: 6,
		})
	}))
	assert.Equal(t, uint64(600), f.balance(t, src))
	assert.Equal(t, uint64(400), f.balance(t, dst))
}

func TestTransferCheckedFailures(t *testing.T) {
	f := newFixture(t, 6)
	alice := wallet(t, "alice")
	src := f.fundedAccount(t, alice, 100)
	dst := f.fundedAccount(t, wallet(t, "bob"), 0)

	base := Transfer{Source: src, Mint: f.mint, Destination: dst, Authority: signer(t, alice), Amount: 50, Decimals: 6}

	tests := []struct {
		name   string
		mutate func(*Transfer)
		want   error
	}{
		{"wrong decimals", func(tr *Transfer) { tr.Decimals = 2 }, ErrMintDecimalsMismatch},
		{"wrong authority", func(tr *Transfer) { tr.Authority = signer(t, wallet(t, "bob")) }, ErrOwnerMismatch},
		{"insufficient funds", func(tr *Transfer) { tr.Amount = 101 }, ErrInsufficientFunds},
		{"missing destination", func(tr *Transfer) { tr.Destination = wallet(t, "nobody") }, ledger.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := base
			tt.mutate(&tr)
			err := run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
				return TransferChecked(ctx, a, tr)
			})
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, uint64(100), f.balance(t, src))
		})
	}
}

func TestTransferCheckedMintMismatch(t *testing.T) {
	f := newFixture(t, 0)
	alice := wallet(t, "alice")
	src := f.fundedAccount(t, alice, 100)

	other := wallet(t, "other-mint")
	var foreign ledger.Address
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		if _, err := InitializeMint(ctx, a, other, 0, f.authority); err != nil {
			return err
		}
		acct, err := CreateAssociatedIdempotent(ctx, a, wallet(t, "bob"), other)
		foreign = acct.Address
		return err
	}))

	err := run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		return TransferChecked(ctx, a, Transfer{
			Source: src, Mint: f.mint, Destination: foreign,
			Authority: signer(t, alice), Amount: 1, Decimals: 0,
		})
	})
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestDerivedSignerCanTransferFromSelfOwnedAccount(t *testing.T) {
	f := newFixture(t, 0)
	program := wallet(t, "some-program")
	seeds := [][]byte{[]byte("vault")}
	vault, bump, err := ledger.FindProgramAddress(seeds, program)
	require.NoError(t, err)

	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		if _, err := InitializeAccount(ctx, a, vault, f.mint, vault); err != nil {
			return err
		}
		return MintTo(ctx, a, f.mint, vault, signer(t, f.authority), 10)
	}))
	dst := f.fundedAccount(t, wallet(t, "bob"), 0)

	auth, err := ledger.DerivedSigner(program, seeds, bump)
	require.NoError(t, err)
	require.NoError(t, run(t, f.host, func(ctx context.Context, a ledger.Accounts) error {
		return TransferChecked(ctx, a, Transfer{Source: vault, Mint: f.mint, Destination: dst, Authority: auth, Amount: 10})
	}))
	assert.Equal(t, uint64(10), f.balance(t, dst))
}

func TestCreateAssociatedIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	alice := wallet(t, "alice")

	first := f.fundedAccount(t, alice, 5)
	second := f.fundedAccount(t, alice, 0)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(5), f.balance(t, first))

	want, err := AssociatedAddress(alice, f.mint)
	require.NoError(t, err)
	assert.Equal(t, want, first)
	assert.False(t, first.IsOnCurve())
}
