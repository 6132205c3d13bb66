package vesting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
)

// Instruction names, as journaled.
const (
	OpCreateVestingAccount  = "create_vesting_account"
	OpCreateEmployeeAccount = "create_employee_account"
	OpClaimTokens           = "claim_tokens"
)

// Clock supplies the trusted current time in unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	Operation(name, outcome string)
	Claimed(amount uint64)
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, string) {}
func (nopRecorder) Claimed(uint64)           {}

// Program executes vesting instructions against a host.
type Program struct {
	id      ledger.Address
	host    ledger.Host
	clock   Clock
	logger  *slog.Logger
	metrics Recorder
}

// Option configures a Program.
type Option func(*Program)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(p *Program) { p.clock = c }
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) { p.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Program) { p.metrics = r }
}

// New creates a Program that derives addresses under programID.
func New(programID ledger.Address, host ledger.Host, opts ...Option) *Program {
	p := &Program{
		id:      programID,
		host:    host,
		clock:   SystemClock{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the program identity.
func (p *Program) ID() ledger.Address {
	return p.id
}

// execute runs fn as one journaled host operation and records the outcome.
func (p *Program) execute(ctx context.Context, op *ledger.Operation, fn func(ledger.Accounts) error) error {
	p.logger.Debug("executing operation",
		"operation", op.Name,
		"operation_id", op.ID,
		"signer", op.Signer.String(),
	)
	err := p.host.Atomically(ctx, op, fn)
	outcome := ledger.OutcomeOf(err)
	p.metrics.Operation(op.Name, outcome)
	if err != nil {
		level := slog.LevelInfo
		if CodeOf(err) == "" {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "operation rejected",
			"operation", op.Name,
			"operation_id", op.ID,
			"outcome", outcome,
			"error", err,
		)
	}
	return err
}

func requireSigner(s ledger.Signer) error {
	if s == nil {
		return newError(ErrUnauthorized, ledger.ErrNotSigner)
	}
	return nil
}

func signerAddress(s ledger.Signer) ledger.Address {
	if s == nil {
		return ledger.Address{}
	}
	return s.Address()
}

// loadRegistry reads and decodes the registry at addr.
func (p *Program) loadRegistry(ctx context.Context, accts ledger.Accounts, addr ledger.Address) (RegistryEntry, error) {
	var reg RegistryEntry
	raw, err := accts.Load(ctx, addr)
	if err != nil {
		return reg, notFound(err, "registry", addr)
	}
	if raw.Owner != p.id || raw.Kind != KindRegistry {
		return reg, newError(ErrAccountMismatch, nil, "registry", addr.String(), "reason", "not a registry")
	}
	if err := reg.UnmarshalBinary(raw.Data); err != nil {
		return reg, newError(ErrAccountMismatch, err, "registry", addr.String())
	}
	return reg, nil
}

// loadGrant reads and decodes the grant at addr.
func (p *Program) loadGrant(ctx context.Context, accts ledger.Accounts, addr ledger.Address) (GrantEntry, error) {
	var g GrantEntry
	raw, err := accts.Load(ctx, addr)
	if err != nil {
		return g, notFound(err, "grant", addr)
	}
	if raw.Owner != p.id || raw.Kind != KindGrant {
		return g, newError(ErrAccountMismatch, nil, "grant", addr.String(), "reason", "not a grant")
	}
	if err := g.UnmarshalBinary(raw.Data); err != nil {
		return g, newError(ErrAccountMismatch, err, "grant", addr.String())
	}
	return g, nil
}

func notFound(err error, what string, addr ledger.Address) error {
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return newError(ErrAccountNotFound, err, what, addr.String())
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func alreadyExists(err error, what string, addr ledger.Address) error {
	if errors.Is(err, ledger.ErrAccountInUse) {
		return newError(ErrAlreadyExists, err, what, addr.String())
	}
	return fmt.Errorf("create %s: %w", what, err)
}

func loadMint(ctx context.Context, accts ledger.Accounts, addr ledger.Address) (token.Mint, error) {
	m, err := token.LoadMint(ctx, accts, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return m, newError(ErrAccountNotFound, err, "mint", addr.String())
	}
	if err != nil {
		return m, newError(ErrAccountMismatch, err, "mint", addr.String())
	}
	return m, nil
}
