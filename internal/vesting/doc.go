// Package vesting implements the token vesting program.
//
// An organization creates one registry (create_vesting_account), which
// allocates a custody token account controlled only by the registry's
// derived authority. The organization then creates one grant per
// beneficiary (create_employee_account). Beneficiaries claim what has
// linearly vested since the grant start, once the cliff has passed
// (claim_tokens).
//
// Every operation runs as a single ledger.Host unit of work. The program
// holds no mutable state of its own; registries and grants live in
// accounts at program-derived addresses:
//
//	registry: [organization_name]
//	custody:  ["vesting_treasury", organization_name]
//	grant:    ["employee_vesting", beneficiary, registry]
//
// Custody funds move only through a signer reconstructed from the custody
// seeds and the bump stored on the registry.
package vesting
