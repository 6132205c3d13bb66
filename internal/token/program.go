package token

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/roach88/vesting/internal/ledger"
)

// LoadMint reads and decodes the mint at addr.
func LoadMint(ctx context.Context, accts ledger.Accounts, addr ledger.Address) (Mint, error) {
	raw, err := accts.Load(ctx, addr)
	if err != nil {
		return Mint{}, fmt.Errorf("load mint %s: %w", addr, err)
	}
	return decodeMint(raw)
}

// LoadAccount reads and decodes the token account at addr.
func LoadAccount(ctx context.Context, accts ledger.Accounts, addr ledger.Address) (Account, error) {
	raw, err := accts.Load(ctx, addr)
	if err != nil {
		return Account{}, fmt.Errorf("load token account %s: %w", addr, err)
	}
	return decodeAccount(raw)
}

func storeMint(ctx context.Context, accts ledger.Accounts, m Mint) error {
	return accts.Update(ctx, ledger.Account{Address: m.Address, Owner: ProgramID, Kind: KindMint, Data: encodeMint(m)})
}

func storeAccount(ctx context.Context, accts ledger.Accounts, a Account) error {
	return accts.Update(ctx, ledger.Account{Address: a.Address, Owner: ProgramID, Kind: KindAccount, Data: encodeAccount(a)})
}

// InitializeMint creates a mint at addr with the given decimals. authority
// may mint new supply.
func InitializeMint(ctx context.Context, accts ledger.Accounts, addr ledger.Address, decimals uint8, authority ledger.Address) (Mint, error) {
	m := Mint{Address: addr, Authority: &authority, Decimals: decimals}
	err := accts.Create(ctx, ledger.Account{Address: addr, Owner: ProgramID, Kind: KindMint, Data: encodeMint(m)})
	if err != nil {
		return Mint{}, fmt.Errorf("initialize mint: %w", err)
	}
	return m, nil
}

// InitializeAccount creates an empty token account at addr holding mint,
// controlled by owner. owner may be a program-derived address, including
// addr itself.
func InitializeAccount(ctx context.Context, accts ledger.Accounts, addr, mint, owner ledger.Address) (Account, error) {
	if _, err := LoadMint(ctx, accts, mint); err != nil {
		return Account{}, fmt.Errorf("initialize account: %w", err)
	}
	a := Account{Address: addr, Mint: mint, Owner: owner}
	err := accts.Create(ctx, ledger.Account{Address: addr, Owner: ProgramID, Kind: KindAccount, Data: encodeAccount(a)})
	if err != nil {
		return Account{}, fmt.Errorf("initialize account: %w", err)
	}
	return a, nil
}

// MintTo creates amount new units of mint in dest. authority must be the
// mint authority.
func MintTo(ctx context.Context, accts ledger.Accounts, mint, dest ledger.Address, authority ledger.Signer, amount uint64) error {
	m, err := LoadMint(ctx, accts, mint)
	if err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	if m.Authority == nil {
		return fmt.Errorf("mint to: %w", ErrFixedSupply)
	}
	if err := ledger.RequireSigner(authority, *m.Authority); err != nil {
		return fmt.Errorf("mint to: %w: %w", ErrOwnerMismatch, err)
	}
	a, err := LoadAccount(ctx, accts, dest)
	if err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	if a.Mint != mint {
		return fmt.Errorf("mint to: %w", ErrMintMismatch)
	}

	supply, carry := bits.Add64(m.Supply, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to: supply: %w", ErrOverflow)
	}
	balance, carry := bits.Add64(a.Amount, amount, 0)
	if carry != 0 {
		return fmt.Errorf("mint to: balance: %w", ErrOverflow)
	}
	m.Supply, a.Amount = supply, balance

	if err := storeMint(ctx, accts, m); err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	if err := storeAccount(ctx, accts, a); err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	return nil
}

// Transfer is the input to TransferChecked.
type Transfer struct {
	Source      ledger.Address
	Mint        ledger.Address
	Destination ledger.Address
	Authority   ledger.Signer
	Amount      uint64
	Decimals    uint8
}

// TransferChecked moves Amount units from Source to Destination. The
// caller must state the mint and its decimals, and Authority must be the
// owner of Source.
func TransferChecked(ctx context.Context, accts ledger.Accounts, t Transfer) error {
	m, err := LoadMint(ctx, accts, t.Mint)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if m.Decimals != t.Decimals {
		return fmt.Errorf("transfer: %w: mint has %d, got %d", ErrMintDecimalsMismatch, m.Decimals, t.Decimals)
	}
	src, err := LoadAccount(ctx, accts, t.Source)
	if err != nil {
		return fmt.Errorf("transfer: source: %w", err)
	}
	dst, err := LoadAccount(ctx, accts, t.Destination)
	if err != nil {
		return fmt.Errorf("transfer: destination: %w", err)
	}
	if src.Mint != t.Mint || dst.Mint != t.Mint {
		return fmt.Errorf("transfer: %w", ErrMintMismatch)
	}
	if err := ledger.RequireSigner(t.Authority, src.Owner); err != nil {
		return fmt.Errorf("transfer: %w: %w", ErrOwnerMismatch, err)
	}
	if src.Amount < t.Amount {
		return fmt.Errorf("transfer: %w: have %d, need %d", ErrInsufficientFunds, src.Amount, t.Amount)
	}
	if src.Address == dst.Address {
		return nil
	}

	balance, carry := bits.Add64(dst.Amount, t.Amount, 0)
	if carry != 0 {
		return fmt.Errorf("transfer: %w", ErrOverflow)
	}
	src.Amount -= t.Amount
	dst.Amount = balance

	if err := storeAccount(ctx, accts, src); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := storeAccount(ctx, accts, dst); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// AssociatedAddress derives the canonical token account of wallet for mint.
// Seeds: [wallet, token_program_id, mint] under the associated token program.
func AssociatedAddress(wallet, mint ledger.Address) (ledger.Address, error) {
	addr, _, err := ledger.FindProgramAddress(
		[][]byte{wallet[:], ProgramID[:], mint[:]},
		AssociatedProgramID,
	)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("associated address: %w", err)
	}
	return addr, nil
}

// CreateAssociatedIdempotent returns the associated token account of wallet
// for mint, creating it if it does not exist yet. An existing account must
// belong to wallet and hold mint.
func CreateAssociatedIdempotent(ctx context.Context, accts ledger.Accounts, wallet, mint ledger.Address) (Account, error) {
	addr, err := AssociatedAddress(wallet, mint)
	if err != nil {
		return Account{}, err
	}
	existing, err := LoadAccount(ctx, accts, addr)
	switch {
	case err == nil:
		if existing.Owner != wallet {
			return Account{}, fmt.Errorf("%w: %s owned by %s", ErrOwnerMismatch, addr, existing.Owner)
		}
		if existing.Mint != mint {
			return Account{}, fmt.Errorf("%w: %s", ErrMintMismatch, addr)
		}
		return existing, nil
	case errors.Is(err, ledger.ErrAccountNotFound):
		return InitializeAccount(ctx, accts, addr, mint, wallet)
	default:
		return Account{}, err
	}
}
