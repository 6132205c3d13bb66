// Package harness runs vesting scenarios end to end.
//
// A scenario mints a token, creates a registry, funds its custody account,
// creates grants and then claims at chosen times, checking every outcome.
// It runs against a fresh in-memory store with a manual clock, so the trace
// it produces is identical on every run and can be compared against a
// golden file.
//
// # Scenario Format
//
//	name: basic_claim
//	description: "What this scenario validates"
//	setup:
//	  - invoke: create_mint
//	    args: { signer: mint-authority, mint: mint, decimals: 6 }
//	  - invoke: create_registry
//	    args: { signer: admin, organization: acme, mint: mint }
//	flow:
//	  - at: 250
//	    invoke: claim
//	    args: { signer: alice, organization: acme }
//	    expect: { outcome: ok, amount: 250 }
//	assertions:
//	  - type: trace_count
//	    invoke: claim
//	    outcome: NOTHING_TO_CLAIM
//	    count: 1
//
// Participants are names. Each name maps to a deterministic wallet address
// (testutil.Identity), so scenarios never spell out base58 addresses.
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause, which defaults to outcome "ok".
//
// # Assertion Types
//
//   - trace_count: an invocation (optionally with a given outcome) appears exactly N times
//   - trace_order: invocations appear in the given relative order
//   - balance: the associated token account of owner for mint holds expect
//   - custody: the custody account of organization holds expect
//   - withdrawn: the grant of beneficiary under organization has withdrawn expect
package harness
