package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vesting/internal/ledger"
)

// Atomically implements ledger.Host. fn runs inside one SQL transaction;
// a nil op runs fn without journaling (read-only queries).
func (s *Store) Atomically(ctx context.Context, op *ledger.Operation, fn func(ledger.Accounts) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.runTx(ctx, op, fn)
	if err == nil || op == nil {
		return err
	}

	op.Outcome = ledger.OutcomeOf(err)
	if jerr := s.journalRejected(ctx, op); jerr != nil {
		return errors.Join(err, jerr)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, op *ledger.Operation, fn func(ledger.Accounts) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin operation: %w", err)
	}
	defer tx.Rollback()

	accts := &txAccounts{tx: tx}
	if op != nil {
		if accts.seq, err = nextSeq(ctx, tx); err != nil {
			return err
		}
	}

	if err := fn(accts); err != nil {
		return err
	}

	if op != nil {
		op.Seq = accts.seq
		op.Outcome = ledger.OutcomeOK
		if err := insertOperation(ctx, tx, op); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit operation: %w", err)
	}
	return nil
}

// journalRejected records an operation whose transaction was rolled back.
// It runs even if ctx was cancelled so the rejection is not lost.
func (s *Store) journalRejected(ctx context.Context, op *ledger.Operation) error {
	ctx = context.WithoutCancel(ctx)
	seq, err := nextSeq(ctx, s.db)
	if err != nil {
		return err
	}
	op.Seq = seq
	return insertOperation(ctx, s.db, op)
}

// accountRow is the accounts table representation of ledger.Account.
type accountRow struct {
	Address string `db:"address"`
	Owner   string `db:"owner"`
	Kind    string `db:"kind"`
	Data    []byte `db:"data"`
	LastSeq int64  `db:"last_seq"`
}

func (r accountRow) account() (ledger.Account, error) {
	addr, err := ledger.ParseAddress(r.Address)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("account address: %w", err)
	}
	owner, err := ledger.ParseAddress(r.Owner)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("account %s owner: %w", r.Address, err)
	}
	return ledger.Account{Address: addr, Owner: owner, Kind: r.Kind, Data: r.Data}, nil
}

// txAccounts implements ledger.Accounts inside one transaction.
type txAccounts struct {
	tx  *sqlx.Tx
	seq int64
}

func (a *txAccounts) Load(ctx context.Context, addr ledger.Address) (ledger.Account, error) {
	var row accountRow
	err := a.tx.GetContext(ctx, &row, `
		SELECT address, owner, kind, data, last_seq
		FROM accounts
		WHERE address = ?
	`, addr.String())
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("load account %s: %w", addr, err)
	}
	return row.account()
}

// Create uses ON CONFLICT DO NOTHING and treats zero affected rows as an
// occupied address.
func (a *txAccounts) Create(ctx context.Context, acct ledger.Account) error {
	res, err := a.tx.ExecContext(ctx, `
		INSERT INTO accounts (address, owner, kind, data, last_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, acct.Address.String(), acct.Owner.String(), acct.Kind, acct.Data, a.seq)
	if err != nil {
		return fmt.Errorf("create account %s: %w", acct.Address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create account %s: %w", acct.Address, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrAccountInUse, acct.Address)
	}
	return nil
}

func (a *txAccounts) Update(ctx context.Context, acct ledger.Account) error {
	existing, err := a.Load(ctx, acct.Address)
	if err != nil {
		return err
	}
	if existing.Owner != acct.Owner || existing.Kind != acct.Kind {
		return fmt.Errorf("%w: %s", ledger.ErrIllegalOwner, acct.Address)
	}
	_, err = a.tx.ExecContext(ctx, `
		UPDATE accounts SET data = ?, last_seq = ? WHERE address = ?
	`, acct.Data, a.seq, acct.Address.String())
	if err != nil {
		return fmt.Errorf("update account %s: %w", acct.Address, err)
	}
	return nil
}

// ListAccounts returns every committed account of kind, ordered by address.
func (s *Store) ListAccounts(ctx context.Context, kind string) ([]ledger.Account, error) {
	var rows []accountRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT address, owner, kind, data, last_seq
		FROM accounts
		WHERE kind = ?
		ORDER BY address COLLATE BINARY ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]ledger.Account, 0, len(rows))
	for _, row := range rows {
		acct, err := row.account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}
