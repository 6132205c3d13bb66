package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/store"
	"github.com/roach88/vesting/internal/testutil"
	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// Harness executes scenario steps against one host with a manual clock.
type Harness struct {
	host    ledger.Host
	clock   *testutil.ManualClock
	program *vesting.Program
	tokens  *token.Client
	logger  *slog.Logger
}

type runConfig struct {
	host      ledger.Host
	logger    *slog.Logger
	programID ledger.Address
}

// Option configures Run.
type Option func(*runConfig)

// WithHost runs the scenario against h instead of a fresh in-memory store.
func WithHost(h ledger.Host) Option {
	return func(c *runConfig) { c.host = h }
}

// WithLogger sets the logger handed to the program. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithProgramID derives addresses under id instead of
// vesting.DefaultProgramID.
func WithProgramID(id ledger.Address) Option {
	return func(c *runConfig) { c.programID = id }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database unless WithHost is
// given. The clock starts at 0 and only moves on a step's "at".
//
// Execution flow:
//  1. Execute setup steps; any failure aborts the run with an error
//  2. Execute flow steps and check each against its expect clause
//  3. Evaluate assertions against the trace and the final state
//
// Expectation and assertion failures are reported in Result.Errors, not
// as an error.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		programID: vesting.DefaultProgramID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.host == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		cfg.host = st
	}

	clock := testutil.NewManualClock(0)
	h := &Harness{
		host:  cfg.host,
		clock: clock,
		program: vesting.New(cfg.programID, cfg.host,
			vesting.WithClock(clock),
			vesting.WithLogger(cfg.logger),
		),
		tokens: token.NewClient(cfg.host, clock.Now),
		logger: cfg.logger,
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := h.execute(ctx, step)
		result.addEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Invoke, err)
		}
	}

	for i, step := range scenario.Flow {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, _ := h.execute(ctx, step)
		result.addEvent(ev)
		for _, msg := range checkExpect(step.Expect, ev) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// execute runs one step at its time and records what it produced.
// The returned error is the operation's rejection, if any.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	if step.At != nil {
		h.clock.Set(*step.At)
	}
	a := step.Args
	ev := TraceEvent{
		At:     h.clock.Now(),
		Invoke: step.Invoke,
		Signer: a.Signer,
	}

	var signer ledger.Signer
	if a.Signer != "" {
		signer = testutil.Signer(a.Signer)
	}

	var (
		err    error
		reason vesting.Code
	)
	switch step.Invoke {
	case InvokeCreateMint:
		_, err = h.tokens.CreateMint(ctx, signer, testutil.Identity(a.Mint), a.Decimals)

	case InvokeMintTo:
		var acct token.Account
		acct, err = h.tokens.MintToOwner(ctx, signer, testutil.Identity(a.Mint), testutil.Identity(a.Owner), a.Amount)
		if err == nil {
			ev.Amount = ptr(acct.Amount)
		}

	case InvokeFund:
		var reg vesting.RegistryEntry
		if _, reg, err = h.program.Registry(ctx, a.Organization); err == nil {
			var acct token.Account
			acct, err = h.tokens.MintToAccount(ctx, signer, reg.Asset, reg.CustodyAccount, a.Amount)
			if err == nil {
				ev.Amount = ptr(acct.Amount)
			}
		}

	case InvokeCreateRegistry:
		_, err = h.program.CreateVestingAccount(ctx, signer, a.Organization, testutil.Identity(a.Mint))

	case InvokeCreateGrant:
		cliff := a.Start
		if a.Cliff != nil {
			cliff = *a.Cliff
		}
		_, err = h.program.CreateEmployeeAccount(ctx, signer, vesting.GrantParams{
			Organization: a.Organization,
			Beneficiary:  testutil.Identity(a.Beneficiary),
			StartTime:    a.Start,
			EndTime:      a.End,
			TotalAmount:  a.Amount,
			CliffTime:    cliff,
		})

	case InvokeClaim:
		req := vesting.ClaimRequest{Signer: signer, Organization: a.Organization}
		if a.Beneficiary != "" {
			req.Beneficiary = testutil.Identity(a.Beneficiary)
		}
		var receipt vesting.ClaimReceipt
		receipt, err = h.program.ClaimTokens(ctx, req)
		if err == nil {
			ev.Amount = ptr(receipt.Amount)
			ev.Withdrawn = ptr(receipt.TotalWithdrawn)
		}

	case InvokeStatus:
		var st vesting.GrantStatus
		st, err = h.program.Status(ctx, a.Organization, testutil.Identity(a.Beneficiary), nil)
		if err == nil {
			ev.Vested = ptr(st.Entitlement.Vested)
			ev.Claimable = ptr(st.Entitlement.Claimable)
			ev.Withdrawn = ptr(st.Grant.TotalWithdrawn)
			reason = st.Reason
		}

	default:
		err = fmt.Errorf("unknown invoke %q", step.Invoke)
	}

	ev.Outcome = ledger.OutcomeOf(err)
	if reason != "" {
		ev.Outcome = string(reason)
	}
	h.logger.Debug("scenario step",
		"invoke", step.Invoke,
		"at", ev.At,
		"outcome", ev.Outcome,
	)
	return ev, err
}

// checkExpect compares ev against expect and returns one message per
// mismatch.
func checkExpect(expect *Expect, ev TraceEvent) []string {
	want := Expect{Outcome: ledger.OutcomeOK}
	if expect != nil {
		want = *expect
		if want.Outcome == "" {
			want.Outcome = ledger.OutcomeOK
		}
	}

	var msgs []string
	if ev.Outcome != want.Outcome {
		msgs = append(msgs, fmt.Sprintf("outcome = %s, want %s", ev.Outcome, want.Outcome))
	}
	compare := func(field string, got, want *uint64) {
		if want == nil {
			return
		}
		if got == nil {
			msgs = append(msgs, fmt.Sprintf("%s not reported, want %d", field, *want))
			return
		}
		if *got != *want {
			msgs = append(msgs, fmt.Sprintf("%s = %d, want %d", field, *got, *want))
		}
	}
	compare("amount", ev.Amount, want.Amount)
	compare("vested", ev.Vested, want.Vested)
	compare("claimable", ev.Claimable, want.Claimable)
	compare("withdrawn", ev.Withdrawn, want.Withdrawn)
	return msgs
}

func ptr(v uint64) *uint64 { return &v }
