// Package ledger provides the foundational types shared by the token and
// vesting programs and the host that executes them.
//
// This package imports nothing internal. Every other internal package
// imports ledger; ledger imports no other internal package.
//
// Key design constraints:
//   - Addresses are 32 bytes and render as base58 text
//   - Program-derived addresses are reproduced bit-for-bit:
//     SHA256(seeds... || program_id || "ProgramDerivedAddress"), off-curve only
//   - All persistent state lives in per-address Accounts; there is no
//     package-level mutable state
//   - Journal args are serialized as RFC 8785 canonical JSON; floats forbidden
package ledger
