package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vesting/internal/testutil"
)

// ledgerCLI runs commands against one database in JSON mode.
type ledgerCLI struct {
	t  *testing.T
	db string
}

func newLedgerCLI(t *testing.T) *ledgerCLI {
	return &ledgerCLI{t: t, db: tempDB(t)}
}

func (l *ledgerCLI) run(args ...string) (string, error) {
	l.t.Helper()
	return execute(l.t, append(args, "--db", l.db, "--format", "json")...)
}

func (l *ledgerCLI) ok(args ...string) map[string]any {
	l.t.Helper()
	out, err := l.run(args...)
	require.NoError(l.t, err, "output: %s", out)
	return data(l.t, out)
}

func TestLifecycle(t *testing.T) {
	l := newLedgerCLI(t)
	mint := testutil.Identity("mint").String()
	authority := testutil.Identity("mint-authority").String()
	admin := testutil.Identity("admin").String()
	alice := testutil.Identity("alice").String()

	m := l.ok("mint", "create", "--authority", authority, "--address", mint, "--decimals", "6")
	assert.Equal(t, mint, m["mint"])
	assert.Equal(t, authority, m["authority"])
	assert.Equal(t, "0.000000", m["supply"])

	reg := l.ok("registry", "create", "--org", "acme", "--mint", mint, "--signer", admin)
	assert.Equal(t, "acme", reg["organization"])
	assert.Equal(t, admin, reg["owner"])
	assert.Equal(t, mint, reg["asset"])

	funded := l.ok("mint", "fund", "--org", "acme", "--amount", "1000", "--authority", authority)
	assert.Equal(t, reg["custody"], funded["account"])
	assert.Equal(t, "1000.000000", funded["balance"])
	assert.Equal(t, "1000.000000", funded["supply"])

	g := l.ok("grant", "create", "--org", "acme", "--beneficiary", alice, "--signer", admin,
		"--amount", "1000", "--start", "0", "--end", "1000")
	assert.Equal(t, alice, g["beneficiary"])
	assert.Equal(t, "1000.000000", g["total"])
	assert.Equal(t, float64(0), g["cliff_time"])

	c := l.ok("claim", "--org", "acme", "--signer", alice, "--now", "250")
	assert.Equal(t, "250.000000", c["amount"])
	assert.Equal(t, "250.000000", c["total_withdrawn"])
	assert.Equal(t, g["address"], c["grant"])

	out, err := l.run("claim", "--org", "acme", "--signer", alice, "--now", "250")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "NOTHING_TO_CLAIM", resp.Error.Code)

	st := l.ok("grant", "show", "--org", "acme", "--beneficiary", alice, "--now", "500")
	assert.Equal(t, float64(500), st["time"])
	assert.Equal(t, "500.000000", st["vested"])
	assert.Equal(t, "250.000000", st["claimable"])
	assert.Equal(t, "250.000000", st["withdrawn"])

	bal := l.ok("balance", "--mint", mint, "--owner", alice)
	assert.Equal(t, float64(250_000_000), bal["amount"])
	assert.Equal(t, "250.000000", bal["ui_amount"])

	show := l.ok("registry", "show", "--org", "acme")
	assert.Equal(t, "750.000000", show["custody_balance"])

	tr := l.ok("trace", "--verify")
	stats := tr["stats"].(map[string]any)
	assert.Equal(t, float64(6), stats["total"])
	assert.Equal(t, float64(5), stats["ok"])
	assert.Equal(t, float64(1), stats["rejected"])
	assert.Equal(t, true, stats["verified"])

	claims := l.ok("trace", "--operation", "claim_tokens")
	timeline := claims["timeline"].([]any)
	require.Len(t, timeline, 2)
	assert.Equal(t, "ok", timeline[0].(map[string]any)["outcome"])
	assert.Equal(t, "NOTHING_TO_CLAIM", timeline[1].(map[string]any)["outcome"])
}

func TestGrantCreateRejectsNonOwner(t *testing.T) {
	l := newLedgerCLI(t)
	mint := testutil.Identity("mint").String()
	l.ok("mint", "create", "--authority", testutil.Identity("mint-authority").String(), "--address", mint)
	l.ok("registry", "create", "--org", "acme", "--mint", mint, "--signer", testutil.Identity("admin").String())

	out, err := l.run("grant", "create", "--org", "acme",
		"--beneficiary", testutil.Identity("alice").String(),
		"--signer", testutil.Identity("mallory").String(),
		"--amount", "10", "--end", "100")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "UNAUTHORIZED", decode(t, out).Error.Code)
}

func TestClaimBeforeCliff(t *testing.T) {
	l := newLedgerCLI(t)
	mint := testutil.Identity("mint").String()
	authority := testutil.Identity("mint-authority").String()
	admin := testutil.Identity("admin").String()
	bob := testutil.Identity("bob").String()

	l.ok("mint", "create", "--authority", authority, "--address", mint)
	l.ok("registry", "create", "--org", "acme", "--mint", mint, "--signer", admin)
	l.ok("mint", "fund", "--org", "acme", "--amount", "400", "--authority", authority)
	l.ok("grant", "create", "--org", "acme", "--beneficiary", bob, "--signer", admin,
		"--amount", "400", "--start", "0", "--end", "1000", "--cliff", "250")

	out, err := l.run("claim", "--org", "acme", "--signer", bob, "--now", "100")
	require.Error(t, err)
	assert.Equal(t, "CLAIM_NOT_AVAILABLE_YET", decode(t, out).Error.Code)

	st := l.ok("grant", "show", "--org", "acme", "--beneficiary", bob, "--now", "100")
	assert.Equal(t, "CLAIM_NOT_AVAILABLE_YET", st["reason"])
	assert.Equal(t, float64(250), st["cliff_time"])
}

func TestInvalidAmount(t *testing.T) {
	l := newLedgerCLI(t)
	mint := testutil.Identity("mint").String()
	authority := testutil.Identity("mint-authority").String()
	l.ok("mint", "create", "--authority", authority, "--address", mint, "--decimals", "2")
	l.ok("registry", "create", "--org", "acme", "--mint", mint, "--signer", testutil.Identity("admin").String())

	_, err := l.run("mint", "fund", "--org", "acme", "--amount", "1.005", "--authority", authority)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --amount")
}

func TestInvalidAddressFlag(t *testing.T) {
	_, err := execute(t, "balance", "--db", tempDB(t), "--mint", "0OIl", "--owner", testutil.Identity("alice").String())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --mint")
}

func TestPlanValidate(t *testing.T) {
	out, err := execute(t, "plan", "validate", filepath.Join("..", "plan", "testdata", "acme.cue"), "--format", "json")
	require.NoError(t, err, "output: %s", out)
	v := data(t, out)
	assert.Equal(t, true, v["valid"])
	assert.Equal(t, float64(2), v["grants"])
	assert.Equal(t, "1000", v["total"])

	out, err = execute(t, "plan", "validate", filepath.Join("..", "plan", "testdata", "invalid.cue"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "INVALID_PLAN", decode(t, out).Error.Code)

	_, err = execute(t, "plan", "validate", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlanApply(t *testing.T) {
	l := newLedgerCLI(t)
	authority := testutil.Identity("mint-authority").String()
	l.ok("mint", "create", "--authority", authority, "--address", testutil.Identity("mint").String())

	file := filepath.Join("..", "plan", "testdata", "acme.cue")

	_, err := l.run("plan", "apply", file, "--signer", testutil.Identity("mallory").String(), "--mint-authority", authority)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	applied := l.ok("plan", "apply", file, "--signer", testutil.Identity("admin").String(), "--mint-authority", authority)
	steps := applied["steps"].([]any)
	require.Len(t, steps, 4)
	assert.Equal(t, "create_vesting_account", steps[0].(map[string]any)["operation"])
	assert.Equal(t, float64(1000), steps[1].(map[string]any)["amount"])

	show := l.ok("registry", "show", "--org", "acme")
	assert.Equal(t, "1000", show["custody_balance"])

	out, err := l.run("plan", "apply", file, "--signer", testutil.Identity("admin").String(), "--mint-authority", authority)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "ALREADY_EXISTS", decode(t, out).Error.Code)
}

func TestScenarioCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join("..", "harness", "testdata", "golden")

	out, err := execute(t, "scenario",
		filepath.Join(scenarios, "basic_claim.yaml"),
		filepath.Join(scenarios, "cliff_and_rejections.yaml"),
		"--golden", golden, "--format", "json")
	require.NoError(t, err, "output: %s", out)
	report := data(t, out)
	assert.Equal(t, float64(2), report["passed"])
	assert.Equal(t, float64(0), report["failed"])
}

func TestScenarioCommandFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`name: wrong
description: expects the wrong amount
setup:
  - invoke: create_mint
    args: { signer: mint-authority, mint: mint }
  - invoke: create_registry
    args: { signer: admin, organization: acme, mint: mint }
  - invoke: fund
    args: { signer: mint-authority, organization: acme, amount: 100 }
  - invoke: create_grant
    args: { signer: admin, organization: acme, beneficiary: alice, start: 0, end: 100, amount: 100 }
flow:
  - at: 50
    invoke: claim
    args: { signer: alice, organization: acme }
    expect: { outcome: ok, amount: 49 }
`), 0o644))

	out, err := execute(t, "scenario", file, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	report := data(t, out)
	assert.Equal(t, float64(1), report["failed"])

	_, err = execute(t, "scenario", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "scenario", file, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	textfile := filepath.Join(dir, "vesting.prom")
	cfgPath := filepath.Join(dir, "vesting.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`database:
  path: `+filepath.Join(dir, "vesting.db")+`
metrics:
  enabled: true
  textfile: `+textfile+`
`), 0o644))

	mint := testutil.Identity("mint").String()
	_, err := execute(t, "mint", "create", "--config", cfgPath,
		"--authority", testutil.Identity("mint-authority").String(), "--address", mint)
	require.NoError(t, err)
	_, err = execute(t, "registry", "create", "--config", cfgPath,
		"--org", "acme", "--mint", mint, "--signer", testutil.Identity("admin").String())
	require.NoError(t, err)

	exposition, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(exposition), `vesting_operations_total{operation="create_vesting_account",outcome="ok"} 1`)
}
