package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/vesting/internal/testutil"
	"github.com/roach88/vesting/internal/token"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] t=%d %s %s\n", ev.Seq, ev.At, ev.Invoke, ev.Outcome)
	}
	return buf.String()
}

// evaluateAssertions checks every assertion and returns the failure
// messages.
func (h *Harness) evaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := h.evaluate(ctx, result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func (h *Harness) evaluate(ctx context.Context, result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a.Invokes)
	case AssertBalance:
		mint := testutil.Identity(a.Mint)
		ata, err := token.AssociatedAddress(testutil.Identity(a.Owner), mint)
		if err != nil {
			return err
		}
		acct, _, err := h.tokens.Balance(ctx, ata)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", a.Owner, err)
		}
		return compareAmount(result, a.Type, a.Owner, acct.Amount, a.Expect)
	case AssertCustody:
		acct, _, err := h.program.CustodyBalance(ctx, a.Organization)
		if err != nil {
			return fmt.Errorf("custody of %q: %w", a.Organization, err)
		}
		return compareAmount(result, a.Type, a.Organization, acct.Amount, a.Expect)
	case AssertWithdrawn:
		_, grant, err := h.program.Grant(ctx, a.Organization, testutil.Identity(a.Beneficiary))
		if err != nil {
			return fmt.Errorf("grant of %s: %w", a.Beneficiary, err)
		}
		return compareAmount(result, a.Type, a.Beneficiary, grant.TotalWithdrawn, a.Expect)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Invoke == a.Invoke && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	what := a.Invoke
	if a.Outcome != "" {
		what += " with outcome " + a.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s %d time(s)", what, a.Count),
		Actual:   fmt.Sprintf("%d time(s)", count),
		Trace:    trace,
	}
}

// assertTraceOrder checks that invokes occur as a subsequence of the trace.
func assertTraceOrder(trace []TraceEvent, invokes []string) error {
	next := 0
	for _, ev := range trace {
		if next < len(invokes) && ev.Invoke == invokes[next] {
			next++
		}
	}
	if next == len(invokes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(invokes, " -> "),
		Actual:   fmt.Sprintf("stopped before %s", invokes[next]),
		Trace:    trace,
	}
}

func compareAmount(result *Result, kind, subject string, got, want uint64) error {
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s = %d", subject, want),
		Actual:   fmt.Sprintf("%s = %d", subject, got),
		Trace:    result.Trace,
	}
}
