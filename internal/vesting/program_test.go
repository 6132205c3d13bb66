package vesting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/testutil"
	"github.com/roach88/vesting/internal/token"
)

const testOrg = "acme"

type fixture struct {
	ctx     context.Context
	host    *ledger.MemoryHost
	clock   *testutil.ManualClock
	program *Program
	tokens  *token.Client
	mint    ledger.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		host:  ledger.NewMemoryHost(),
		clock: testutil.NewManualClock(0),
		mint:  testutil.Identity("mint"),
	}
	f.program = New(DefaultProgramID, f.host, WithClock(f.clock))
	f.tokens = token.NewClient(f.host, f.clock.Now)
	_, err := f.tokens.CreateMint(f.ctx, testutil.Signer("mint-authority"), f.mint, 6)
	require.NoError(t, err)
	return f
}

// registry creates org owned by "admin" and funds its custody account.
func (f *fixture) registry(t *testing.T, org string, funded uint64) RegistryEntry {
	t.Helper()
	reg, err := f.program.CreateVestingAccount(f.ctx, testutil.Signer("admin"), org, f.mint)
	require.NoError(t, err)
	if funded > 0 {
		_, err = f.tokens.MintToAccount(f.ctx, testutil.Signer("mint-authority"), f.mint, reg.CustodyAccount, funded)
		require.NoError(t, err)
	}
	return reg
}

func (f *fixture) grant(t *testing.T, org, beneficiary string, start, end, cliff int64, total uint64) GrantEntry {
	t.Helper()
	g, err := f.program.CreateEmployeeAccount(f.ctx, testutil.Signer("admin"), GrantParams{
		Organization: org,
		Beneficiary:  testutil.Identity(beneficiary),
		StartTime:    start,
		EndTime:      end,
		TotalAmount:  total,
		CliffTime:    cliff,
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) claim(org, beneficiary string) (ClaimReceipt, error) {
	return f.program.ClaimTokens(f.ctx, ClaimRequest{Signer: testutil.Signer(beneficiary), Organization: org})
}

// walletBalance returns the beneficiary's associated token balance, 0 if
// the account does not exist.
func (f *fixture) walletBalance(t *testing.T, name string) uint64 {
	t.Helper()
	ata, err := token.AssociatedAddress(testutil.Identity(name), f.mint)
	require.NoError(t, err)
	acct, _, err := f.tokens.Balance(f.ctx, ata)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0
	}
	require.NoError(t, err)
	return acct.Amount
}

func (f *fixture) custodyBalance(t *testing.T, org string) uint64 {
	t.Helper()
	acct, _, err := f.program.CustodyBalance(f.ctx, org)
	require.NoError(t, err)
	return acct.Amount
}

func (f *fixture) lastOutcome(t *testing.T) string {
	t.Helper()
	ops := f.host.Operations()
	require.NotEmpty(t, ops)
	return ops[len(ops)-1].Outcome
}

func TestCreateVestingAccount(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t, testOrg, 0)

	regAddr, bump, err := RegistryAddress(DefaultProgramID, testOrg)
	require.NoError(t, err)
	custody, custodyBump, err := CustodyAddress(DefaultProgramID, testOrg)
	require.NoError(t, err)

	assert.Equal(t, testutil.Identity("admin"), reg.Owner)
	assert.Equal(t, f.mint, reg.Asset)
	assert.Equal(t, custody, reg.CustodyAccount)
	assert.Equal(t, testOrg, reg.OrganizationName)
	assert.Equal(t, bump, reg.Bump)
	assert.Equal(t, custodyBump, reg.CustodyBump)

	addr, stored, err := f.program.Registry(f.ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, regAddr, addr)
	assert.Equal(t, reg, stored)

	acct, _, err := f.program.CustodyBalance(f.ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, custody, acct.Owner, "custody is its own authority")
	assert.Equal(t, f.mint, acct.Mint)
	assert.Zero(t, acct.Amount)

	assert.Equal(t, ledger.OutcomeOK, f.lastOutcome(t))
}

func TestCreateVestingAccount_AlreadyExists(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 0)

	_, err := f.program.CreateVestingAccount(f.ctx, testutil.Signer("someone-else"), testOrg, f.mint)
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, string(CodeAlreadyExists), f.lastOutcome(t))

	_, stored, err := f.program.Registry(f.ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, testutil.Identity("admin"), stored.Owner, "first owner kept")
}

func TestCreateVestingAccount_UnknownMint(t *testing.T) {
	f := newFixture(t)
	_, err := f.program.CreateVestingAccount(f.ctx, testutil.Signer("admin"), testOrg, testutil.Identity("no-such-mint"))
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, _, err = f.program.Registry(f.ctx, testOrg)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateVestingAccount_InvalidOrganizationName(t *testing.T) {
	f := newFixture(t)
	for _, org := range []string{"", strings.Repeat("x", 33), strings.Repeat("x", 51)} {
		_, err := f.program.CreateVestingAccount(f.ctx, testutil.Signer("admin"), org, f.mint)
		assert.ErrorIs(t, err, ErrInvalidOrganizationName, "len=%d", len(org))
	}

	_, err := f.program.CreateVestingAccount(f.ctx, testutil.Signer("admin"), strings.Repeat("x", 32), f.mint)
	assert.NoError(t, err)
}

func TestCreateVestingAccount_RequiresSigner(t *testing.T) {
	f := newFixture(t)
	_, err := f.program.CreateVestingAccount(f.ctx, nil, testOrg, f.mint)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ledger.ErrNotSigner)
}

func TestCreateEmployeeAccount(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 0)
	g := f.grant(t, testOrg, "alice", 10, 1010, 20, 1000)

	regAddr, _, err := RegistryAddress(DefaultProgramID, testOrg)
	require.NoError(t, err)
	grantAddr, bump, err := GrantAddress(DefaultProgramID, testutil.Identity("alice"), regAddr)
	require.NoError(t, err)

	assert.Equal(t, GrantEntry{
		Beneficiary: testutil.Identity("alice"),
		StartTime:   10,
		EndTime:     1010,
		CliffTime:   20,
		Registry:    regAddr,
		TotalAmount: 1000,
		Bump:        bump,
	}, g)

	st, err := f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), nil)
	require.NoError(t, err)
	assert.Equal(t, grantAddr, st.Address)
	assert.Equal(t, g, st.Grant)
	assert.Equal(t, CodeClaimNotAvailableYet, st.Reason)
}

func TestCreateEmployeeAccount_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 0)

	_, err := f.program.CreateEmployeeAccount(f.ctx, testutil.Signer("mallory"), GrantParams{
		Organization: testOrg,
		Beneficiary:  testutil.Identity("mallory"),
		EndTime:      100,
		TotalAmount:  1000,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, string(CodeUnauthorized), f.lastOutcome(t))

	_, err = f.program.Status(f.ctx, testOrg, testutil.Identity("mallory"), nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateEmployeeAccount_NoRegistry(t *testing.T) {
	f := newFixture(t)
	_, err := f.program.CreateEmployeeAccount(f.ctx, testutil.Signer("admin"), GrantParams{
		Organization: testOrg,
		Beneficiary:  testutil.Identity("alice"),
	})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateEmployeeAccount_AlreadyExists(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 0)
	f.grant(t, testOrg, "alice", 0, 100, 0, 1000)

	_, err := f.program.CreateEmployeeAccount(f.ctx, testutil.Signer("admin"), GrantParams{
		Organization: testOrg,
		Beneficiary:  testutil.Identity("alice"),
		EndTime:      500,
		TotalAmount:  5,
	})
	require.ErrorIs(t, err, ErrAlreadyExists)

	st, err := f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), st.Grant.TotalAmount)
}

func TestCreateEmployeeAccount_StoresUnvalidatedTimes(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 0)

	// Zero-length schedule and a cliff past the end are accepted.
	g := f.grant(t, testOrg, "alice", 100, 100, 5000, 1000)
	assert.Equal(t, int64(5000), g.CliffTime)
}

func TestClaimTokens_Example(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)

	f.clock.Set(250)
	r, err := f.claim(testOrg, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), r.Amount)
	assert.Equal(t, uint64(250), r.TotalWithdrawn)
	assert.Equal(t, uint64(250), f.walletBalance(t, "alice"))
	assert.Equal(t, uint64(750), f.custodyBalance(t, testOrg))

	_, err = f.claim(testOrg, "alice")
	require.ErrorIs(t, err, ErrNothingToClaim)
	assert.Equal(t, string(CodeNothingToClaim), f.lastOutcome(t))

	f.clock.Set(1000)
	r, err = f.claim(testOrg, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(750), r.Amount)
	assert.Equal(t, uint64(1000), r.TotalWithdrawn)
	assert.Equal(t, uint64(1000), f.walletBalance(t, "alice"))
	assert.Zero(t, f.custodyBalance(t, testOrg))

	ata, err := token.AssociatedAddress(testutil.Identity("alice"), f.mint)
	require.NoError(t, err)
	assert.Equal(t, ata, r.Destination)
}

func TestClaimTokens_Cliff(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 500, 1000)

	f.clock.Set(499)
	_, err := f.claim(testOrg, "alice")
	require.ErrorIs(t, err, ErrClaimNotAvailableYet)
	assert.Zero(t, f.walletBalance(t, "alice"))

	f.clock.Set(500)
	r, err := f.claim(testOrg, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), r.Amount)
}

func TestClaimTokens_ZeroPeriod(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 100, 100, 0, 1000)

	f.clock.Set(200)
	_, err := f.claim(testOrg, "alice")
	require.ErrorIs(t, err, ErrInvalidVestingPeriod)
}

func TestClaimTokens_OnlyBeneficiary(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)
	f.clock.Set(1000)

	_, err := f.program.ClaimTokens(f.ctx, ClaimRequest{
		Signer:       testutil.Signer("bob"),
		Organization: testOrg,
		Beneficiary:  testutil.Identity("alice"),
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(1000), f.custodyBalance(t, testOrg))

	// bob has no grant of his own.
	_, err = f.claim(testOrg, "bob")
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = f.program.ClaimTokens(f.ctx, ClaimRequest{Organization: testOrg, Beneficiary: testutil.Identity("alice")})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClaimTokens_UnknownOrganization(t *testing.T) {
	f := newFixture(t)
	_, err := f.claim("nobody", "alice")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClaimTokens_TransferFailureIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 100)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)

	f.clock.Set(500)
	_, err := f.claim(testOrg, "alice")
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.ErrorIs(t, err, token.ErrInsufficientFunds)
	assert.Equal(t, string(CodeTransferFailed), f.lastOutcome(t))

	st, err := f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), nil)
	require.NoError(t, err)
	assert.Zero(t, st.Grant.TotalWithdrawn, "grant unchanged")
	assert.Equal(t, uint64(100), f.custodyBalance(t, testOrg))

	ata, err := token.AssociatedAddress(testutil.Identity("alice"), f.mint)
	require.NoError(t, err)
	_, _, err = f.tokens.Balance(f.ctx, ata)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound, "destination creation rolled back")
}

func TestClaimTokens_ClaimsSumToTotal(t *testing.T) {
	f := newFixture(t)
	const total = 1_000_003
	f.registry(t, testOrg, total)
	f.grant(t, testOrg, "alice", 0, 997, 0, total)

	var claimed uint64
	for _, now := range []int64{3, 17, 100, 333, 334, 700, 996, 997} {
		f.clock.Set(now)
		r, err := f.claim(testOrg, "alice")
		require.NoError(t, err, "now=%d", now)
		claimed += r.Amount
		assert.Equal(t, claimed, r.TotalWithdrawn)
	}
	assert.Equal(t, uint64(total), claimed)
	assert.Equal(t, uint64(total), f.walletBalance(t, "alice"))
	assert.Zero(t, f.custodyBalance(t, testOrg))
}

func TestClaimTokens_ClockMovedBackwards(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)

	f.clock.Set(800)
	_, err := f.claim(testOrg, "alice")
	require.NoError(t, err)

	f.clock.Set(200)
	_, err = f.claim(testOrg, "alice")
	require.ErrorIs(t, err, ErrNothingToClaim)

	st, err := f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), nil)
	require.NoError(t, err)
	assert.True(t, st.Entitlement.Inconsistent())
	assert.Equal(t, uint64(200), st.Entitlement.Vested)
	assert.Equal(t, CodeNothingToClaim, st.Reason)
}

func TestClaimTokens_RegistriesAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.registry(t, "acme", 1000)
	f.registry(t, "globex", 1000)
	f.grant(t, "acme", "alice", 0, 100, 0, 1000)
	f.grant(t, "globex", "alice", 0, 100, 0, 400)

	f.clock.Set(100)
	r, err := f.claim("globex", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(400), r.Amount)

	assert.Equal(t, uint64(1000), f.custodyBalance(t, "acme"))
	assert.Equal(t, uint64(600), f.custodyBalance(t, "globex"))

	st, err := f.program.Status(f.ctx, "acme", testutil.Identity("alice"), nil)
	require.NoError(t, err)
	assert.Zero(t, st.Grant.TotalWithdrawn)
}

func TestStatus_AtTime(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)

	at := int64(400)
	st, err := f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), &at)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), st.Entitlement.Claimable)
	assert.Empty(t, st.Reason)
	assert.Equal(t, uint8(6), st.Mint.Decimals)

	// Queries do not journal.
	before := len(f.host.Operations())
	_, err = f.program.Status(f.ctx, testOrg, testutil.Identity("alice"), &at)
	require.NoError(t, err)
	assert.Len(t, f.host.Operations(), before)
}

func TestGrantAndCustodyQueries(t *testing.T) {
	f := newFixture(t)
	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 600)

	f.clock.Set(500)
	_, err := f.claim(testOrg, "alice")
	require.NoError(t, err)

	_, g, err := f.program.Grant(f.ctx, testOrg, testutil.Identity("alice"))
	require.NoError(t, err)
	assert.Equal(t, uint64(300), g.TotalWithdrawn)

	custody, mint, err := f.program.CustodyBalance(f.ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), custody.Amount)
	assert.Equal(t, f.mint, mint.Address)

	_, _, err = f.program.Grant(f.ctx, testOrg, testutil.Identity("bob"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

type recordingMetrics struct {
	outcomes []string
	claimed  uint64
}

func (r *recordingMetrics) Operation(name, outcome string) {
	r.outcomes = append(r.outcomes, name+":"+outcome)
}

func (r *recordingMetrics) Claimed(amount uint64) { r.claimed += amount }

func TestProgram_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &recordingMetrics{}
	f.program = New(DefaultProgramID, f.host, WithClock(f.clock), WithRecorder(rec))

	f.registry(t, testOrg, 1000)
	f.grant(t, testOrg, "alice", 0, 1000, 0, 1000)
	f.clock.Set(300)
	_, err := f.claim(testOrg, "alice")
	require.NoError(t, err)
	_, err = f.claim(testOrg, "alice")
	require.Error(t, err)

	assert.Equal(t, []string{
		"create_vesting_account:ok",
		"create_employee_account:ok",
		"claim_tokens:ok",
		"claim_tokens:NOTHING_TO_CLAIM",
	}, rec.outcomes)
	assert.Equal(t, uint64(300), rec.claimed)
}
