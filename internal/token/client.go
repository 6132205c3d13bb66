package token

import (
	"context"
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
)

// Journaled instruction names.
const (
	OpInitializeMint = "initialize_mint"
	OpMintTo         = "mint_to"
)

// Client runs token instructions as standalone journaled host operations.
// The vesting program composes the lower-level functions inside its own
// operations instead.
type Client struct {
	host ledger.Host
	now  func() int64
}

// NewClient creates a client. now supplies the operation timestamp.
func NewClient(host ledger.Host, now func() int64) *Client {
	return &Client{host: host, now: now}
}

// CreateMint initializes a mint at addr with authority as mint authority.
func (c *Client) CreateMint(ctx context.Context, authority ledger.Signer, addr ledger.Address, decimals uint8) (Mint, error) {
	if authority == nil {
		return Mint{}, fmt.Errorf("create mint: %w", ledger.ErrNotSigner)
	}
	op := ledger.NewOperation(OpInitializeMint, authority.Address(), c.now(), ledger.Object{
		"mint":     ledger.String(addr.String()),
		"decimals": ledger.Uint(uint64(decimals)),
	})
	var m Mint
	err := c.host.Atomically(ctx, op, func(accts ledger.Accounts) error {
		var err error
		m, err = InitializeMint(ctx, accts, addr, decimals, authority.Address())
		return err
	})
	return m, err
}

// MintToOwner mints amount of mint into the associated token account of
// owner, creating that account if needed. It returns the credited account.
func (c *Client) MintToOwner(ctx context.Context, authority ledger.Signer, mint, owner ledger.Address, amount uint64) (Account, error) {
	return c.mintTo(ctx, authority, mint, amount, owner, func(ctx context.Context, accts ledger.Accounts) (ledger.Address, error) {
		acct, err := CreateAssociatedIdempotent(ctx, accts, owner, mint)
		return acct.Address, err
	})
}

// MintToAccount mints amount of mint into an existing token account, such
// as a program-owned custody account.
func (c *Client) MintToAccount(ctx context.Context, authority ledger.Signer, mint, dest ledger.Address, amount uint64) (Account, error) {
	return c.mintTo(ctx, authority, mint, amount, dest, func(context.Context, ledger.Accounts) (ledger.Address, error) {
		return dest, nil
	})
}

func (c *Client) mintTo(ctx context.Context, authority ledger.Signer, mint ledger.Address, amount uint64, target ledger.Address,
	resolve func(context.Context, ledger.Accounts) (ledger.Address, error)) (Account, error) {
	var signer ledger.Address
	if authority != nil {
		signer = authority.Address()
	}
	op := ledger.NewOperation(OpMintTo, signer, c.now(), ledger.Object{
		"mint":   ledger.String(mint.String()),
		"target": ledger.String(target.String()),
		"amount": ledger.Uint(amount),
	})
	var acct Account
	err := c.host.Atomically(ctx, op, func(accts ledger.Accounts) error {
		dest, err := resolve(ctx, accts)
		if err != nil {
			return err
		}
		if err := MintTo(ctx, accts, mint, dest, authority, amount); err != nil {
			return err
		}
		acct, err = LoadAccount(ctx, accts, dest)
		return err
	})
	return acct, err
}

// Balance reads a token account without journaling.
func (c *Client) Balance(ctx context.Context, addr ledger.Address) (Account, Mint, error) {
	var (
		acct Account
		m    Mint
	)
	err := c.host.Atomically(ctx, nil, func(accts ledger.Accounts) error {
		var err error
		if acct, err = LoadAccount(ctx, accts, addr); err != nil {
			return err
		}
		m, err = LoadMint(ctx, accts, acct.Mint)
		return err
	})
	return acct, m, err
}
