package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vesting/internal/ledger"
)

// ErrDigestMismatch is returned by Verify when a stored digest does not
// match the digest recomputed from the row.
var ErrDigestMismatch = errors.New("journal digest mismatch")

// Entry is one journal row.
type Entry struct {
	ledger.Operation

	StoredDigest string
}

// OperationFilter narrows an Operations listing. Zero values match all.
type OperationFilter struct {
	// Name restricts to one instruction name.
	Name string

	// Limit keeps only the most recent Limit entries.
	Limit int
}

type operationRow struct {
	Seq     int64  `db:"seq"`
	ID      string `db:"id"`
	Name    string `db:"name"`
	Signer  string `db:"signer"`
	Args    string `db:"args"`
	Time    int64  `db:"time"`
	Outcome string `db:"outcome"`
	Digest  string `db:"digest"`
}

func (r operationRow) entry() (Entry, error) {
	signer, err := ledger.ParseAddress(r.Signer)
	if err != nil {
		return Entry{}, fmt.Errorf("operation %s signer: %w", r.ID, err)
	}
	args, err := unmarshalArgs(r.Args)
	if err != nil {
		return Entry{}, fmt.Errorf("operation %s: %w", r.ID, err)
	}
	return Entry{
		Operation: ledger.Operation{
			ID:      r.ID,
			Seq:     r.Seq,
			Name:    r.Name,
			Signer:  signer,
			Args:    args,
			Time:    r.Time,
			Outcome: r.Outcome,
		},
		StoredDigest: r.Digest,
	}, nil
}

func nextSeq(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, q, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM operations`); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

func insertOperation(ctx context.Context, e sqlx.ExecerContext, op *ledger.Operation) error {
	args, err := marshalArgs(op.Args)
	if err != nil {
		return fmt.Errorf("journal operation: %w", err)
	}
	digest, err := op.Digest()
	if err != nil {
		return fmt.Errorf("journal operation: %w", err)
	}

	_, err = e.ExecContext(ctx, `
		INSERT INTO operations
		(seq, id, name, signer, args, time, outcome, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.Seq,
		op.ID,
		op.Name,
		op.Signer.String(),
		args,
		op.Time,
		op.Outcome,
		digest,
	)
	if err != nil {
		return fmt.Errorf("journal operation: %w", err)
	}
	return nil
}

// Operations returns journal entries ordered by seq ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Operations(ctx context.Context, f OperationFilter) ([]Entry, error) {
	query := `
		SELECT seq, id, name, signer, args, time, outcome, digest
		FROM operations
		WHERE (? = '' OR name = ?)
		ORDER BY seq DESC
	`
	params := []any{f.Name, f.Name}
	if f.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, f.Limit)
	}

	var rows []operationRow
	if err := s.db.SelectContext(ctx, &rows, query, params...); err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	slices.Reverse(rows)

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadOperation retrieves one journal entry by operation ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadOperation(ctx context.Context, id string) (Entry, error) {
	var row operationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT seq, id, name, signer, args, time, outcome, digest
		FROM operations
		WHERE id = ?
	`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("read operation %s: %w", id, err)
	}
	return row.entry()
}

// Verify recomputes every journal digest and reports the first row whose
// stored digest differs.
func (s *Store) Verify(ctx context.Context) error {
	entries, err := s.Operations(ctx, OperationFilter{})
	if err != nil {
		return err
	}
	for _, e := range entries {
		got, err := e.Operation.Digest()
		if err != nil {
			return fmt.Errorf("verify seq %d: %w", e.Seq, err)
		}
		if got != e.StoredDigest {
			return fmt.Errorf("%w: seq %d (%s)", ErrDigestMismatch, e.Seq, e.ID)
		}
	}
	return nil
}
