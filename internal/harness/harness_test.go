package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vesting/internal/ledger"
)

const setupYAML = `
setup:
  - invoke: create_mint
    args: { signer: mint-authority, mint: mint, decimals: 6 }
  - invoke: create_registry
    args: { signer: admin, organization: acme, mint: mint }
  - invoke: fund
    args: { signer: mint-authority, organization: acme, amount: 1000 }
  - invoke: create_grant
    args: { signer: admin, organization: acme, beneficiary: alice, start: 0, end: 1000, amount: 1000 }
`

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_WithMemoryHost(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic_claim.yaml")
	require.NoError(t, err)

	host := ledger.NewMemoryHost()
	result, err := Run(context.Background(), scenario, WithHost(host))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// status and the registry lookup behind fund are not journaled.
	var names []string
	for _, op := range host.Operations() {
		names = append(names, op.Name+":"+op.Outcome)
	}
	assert.Equal(t, []string{
		"initialize_mint:ok",
		"create_vesting_account:ok",
		"mint_to:ok",
		"create_employee_account:ok",
		"claim_tokens:ok",
		"claim_tokens:NOTHING_TO_CLAIM",
		"claim_tokens:ok",
	}, names)
}

func TestRun_ReportsExpectationFailures(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectations
description: "Expectations that do not hold"
`+setupYAML+`
flow:
  - at: 250
    invoke: claim
    args: { signer: alice, organization: acme }
    expect: { outcome: ok, amount: 999 }
  - invoke: claim
    args: { signer: alice, organization: acme }
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "flow[0] claim: amount = 250, want 999", result.Errors[0])
	assert.Equal(t, "flow[1] claim: outcome = NOTHING_TO_CLAIM, want ok", result.Errors[1])
}

func TestRun_ReportsAssertionFailures(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_assertions
description: "Assertions that do not hold"
`+setupYAML+`
flow:
  - at: 100
    invoke: claim
    args: { signer: alice, organization: acme }
assertions:
  - type: balance
    owner: alice
    mint: mint
    expect: 50
  - type: trace_order
    invokes: [claim, create_grant]
  - type: trace_count
    invoke: claim
    count: 1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: balance")
	assert.Contains(t, result.Errors[0], "alice = 100")
	assert.Contains(t, result.Errors[1], "Assertion failed: trace_order")
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := mustParse(t, `
name: no_mint
description: "A registry for a mint that was never created"
setup:
  - invoke: create_registry
    args: { signer: admin, organization: acme, mint: mint }
flow:
  - invoke: status
    args: { organization: acme, beneficiary: alice }
`)

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0] create_registry")
	assert.Contains(t, err.Error(), "ACCOUNT_NOT_FOUND")
}

func TestRun_CancelledContext(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic_claim.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, scenario, WithHost(ledger.NewMemoryHost()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot_IsCanonical(t *testing.T) {
	amount := uint64(5)
	result := NewResult()
	result.addEvent(TraceEvent{At: 3, Invoke: "claim", Signer: "alice", Outcome: "ok", Amount: &amount})

	got, err := Snapshot("tiny", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"tiny","trace":[{"amount":5,"at":3,"invoke":"claim","outcome":"ok","seq":1,"signer":"alice"}]}`,
		string(got))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCustody,
		Expected: "acme = 1",
		Actual:   "acme = 2",
		Trace:    []TraceEvent{{Seq: 1, At: 7, Invoke: "fund", Outcome: "ok"}},
	}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Assertion failed: custody\n"))
	assert.Contains(t, msg, "[1] t=7 fund ok")
}
