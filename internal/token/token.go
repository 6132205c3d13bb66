package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
)

// Well-known program identities.
var (
	ProgramID           = ledger.MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedProgramID = ledger.MustParseAddress("ATokenGPvbd5J8xx9dvGakzqHLaTSV1QuK9hjXrdS8xA")
)

// Account kinds stored by this program.
const (
	KindMint    = "token/mint"
	KindAccount = "token/account"
)

const (
	mintLen    = 46
	accountLen = 72
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrOwnerMismatch        = errors.New("owner does not match")
	ErrMintMismatch         = errors.New("account not associated with this mint")
	ErrMintDecimalsMismatch = errors.New("mint decimals mismatch")
	ErrOverflow             = errors.New("operation overflowed")
	ErrInvalidAccountData   = errors.New("invalid account data")
	ErrFixedSupply          = errors.New("mint has no authority")
)

// Mint describes a token type.
type Mint struct {
	Address   ledger.Address
	Authority *ledger.Address
	Supply    uint64
	Decimals  uint8
}

// Account holds a balance of one mint on behalf of Owner.
type Account struct {
	Address ledger.Address
	Mint    ledger.Address
	Owner   ledger.Address
	Amount  uint64
}

func encodeMint(m Mint) []byte {
	b := make([]byte, mintLen)
	if m.Authority != nil {
		binary.LittleEndian.PutUint32(b[0:4], 1)
		copy(b[4:36], m.Authority[:])
	}
	binary.LittleEndian.PutUint64(b[36:44], m.Supply)
	b[44] = m.Decimals
	b[45] = 1
	return b
}

func decodeMint(acct ledger.Account) (Mint, error) {
	if acct.Owner != ProgramID || acct.Kind != KindMint || len(acct.Data) != mintLen || acct.Data[45] != 1 {
		return Mint{}, fmt.Errorf("%w: %s is not a mint", ErrInvalidAccountData, acct.Address)
	}
	d := acct.Data
	m := Mint{
		Address:  acct.Address,
		Supply:   binary.LittleEndian.Uint64(d[36:44]),
		Decimals: d[44],
	}
	if binary.LittleEndian.Uint32(d[0:4]) == 1 {
		var auth ledger.Address
		copy(auth[:], d[4:36])
		m.Authority = &auth
	}
	return m, nil
}

func encodeAccount(a Account) []byte {
	b := make([]byte, accountLen)
	copy(b[0:32], a.Mint[:])
	copy(b[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(b[64:72], a.Amount)
	return b
}

func decodeAccount(acct ledger.Account) (Account, error) {
	if acct.Owner != ProgramID || acct.Kind != KindAccount || len(acct.Data) != accountLen {
		return Account{}, fmt.Errorf("%w: %s is not a token account", ErrInvalidAccountData, acct.Address)
	}
	d := acct.Data
	a := Account{
		Address: acct.Address,
		Amount:  binary.LittleEndian.Uint64(d[64:72]),
	}
	copy(a.Mint[:], d[0:32])
	copy(a.Owner[:], d[32:64])
	return a, nil
}
