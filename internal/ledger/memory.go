package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryHost is an in-memory Host. Operations are serialized by a mutex and
// run against a private overlay that is merged only when fn succeeds.
// It is safe for concurrent use.
type MemoryHost struct {
	mu       sync.Mutex
	accounts map[Address]Account
	journal  []Operation
	seq      int64
}

// NewMemoryHost creates an empty MemoryHost.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{accounts: make(map[Address]Account)}
}

// Atomically implements Host.
func (h *MemoryHost) Atomically(ctx context.Context, op *Operation, fn func(Accounts) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := &memoryTx{base: h.accounts, dirty: make(map[Address]Account)}
	err := fn(tx)
	if err == nil {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
		}
	}
	if err == nil {
		for addr, acct := range tx.dirty {
			h.accounts[addr] = acct
		}
	}
	if op != nil {
		h.seq++
		op.Seq = h.seq
		op.Outcome = OutcomeOf(err)
		h.journal = append(h.journal, *op)
	}
	return err
}

// Operations returns a copy of the journal in execution order.
func (h *MemoryHost) Operations() []Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Operation(nil), h.journal...)
}

// Len returns the number of committed accounts.
func (h *MemoryHost) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.accounts)
}

type memoryTx struct {
	base  map[Address]Account
	dirty map[Address]Account
}

func (t *memoryTx) Load(_ context.Context, addr Address) (Account, error) {
	if acct, ok := t.dirty[addr]; ok {
		return copyAccount(acct), nil
	}
	if acct, ok := t.base[addr]; ok {
		return copyAccount(acct), nil
	}
	return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
}

func (t *memoryTx) Create(ctx context.Context, acct Account) error {
	if _, err := t.Load(ctx, acct.Address); err == nil {
		return fmt.Errorf("%w: %s", ErrAccountInUse, acct.Address)
	}
	t.dirty[acct.Address] = copyAccount(acct)
	return nil
}

func (t *memoryTx) Update(ctx context.Context, acct Account) error {
	existing, err := t.Load(ctx, acct.Address)
	if err != nil {
		return err
	}
	if existing.Owner != acct.Owner || existing.Kind != acct.Kind {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, acct.Address)
	}
	t.dirty[acct.Address] = copyAccount(acct)
	return nil
}

func copyAccount(a Account) Account {
	a.Data = bytes.Clone(a.Data)
	return a
}
