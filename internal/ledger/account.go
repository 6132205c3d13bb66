package ledger

import (
	"context"
	"errors"
)

var (
	// ErrAccountNotFound is returned when no account exists at an address.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInUse is returned when creating an account at an occupied address.
	ErrAccountInUse = errors.New("account already in use")

	// ErrIllegalOwner is returned when a program writes an account it does not own.
	ErrIllegalOwner = errors.New("account not owned by program")
)

// Account is the raw record stored at an address.
// Owner is the program allowed to write Data; Kind names the layout.
type Account struct {
	Address Address
	Owner   Address
	Kind    string
	Data    []byte
}

// Accounts is the account state visible inside one atomic operation.
type Accounts interface {
	// Load returns the account at addr, or ErrAccountNotFound.
	Load(ctx context.Context, addr Address) (Account, error)

	// Create stores a new account. Returns ErrAccountInUse if the address
	// is already occupied by any account.
	Create(ctx context.Context, acct Account) error

	// Update overwrites the data of an existing account owned by the same
	// program. Returns ErrAccountNotFound if it does not exist and
	// ErrIllegalOwner if it belongs to another program.
	Update(ctx context.Context, acct Account) error
}

// Host executes operations. Each call to Atomically is one unit of work:
// either every Create/Update made through the supplied Accounts becomes
// visible together with the journaled operation, or none does.
//
// The host serializes operations; programs must not add their own locking.
type Host interface {
	Atomically(ctx context.Context, op *Operation, fn func(Accounts) error) error
}
