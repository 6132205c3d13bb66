package vesting

import (
	"errors"

	"github.com/roach88/vesting/internal/ledger"
)

// Seed tags for derived addresses.
const (
	CustodySeed = "vesting_treasury"
	GrantSeed   = "employee_vesting"
)

// DefaultProgramID is the identity the vesting program derives addresses under.
var DefaultProgramID = ledger.MustParseAddress("6Q5NBNNJNukLLYqdMKtM6nv359wSXQ1h1HRk67mS1jMW")

func registrySeeds(org string) [][]byte {
	return [][]byte{[]byte(org)}
}

func custodySeeds(org string) [][]byte {
	return [][]byte{[]byte(CustodySeed), []byte(org)}
}

func grantSeeds(beneficiary, registry ledger.Address) [][]byte {
	return [][]byte{[]byte(GrantSeed), beneficiary[:], registry[:]}
}

// checkOrganizationName rejects names that cannot be stored or used as a seed.
func checkOrganizationName(org string) error {
	if org == "" {
		return newError(ErrInvalidOrganizationName, nil, "reason", "empty")
	}
	if len(org) > MaxOrganizationNameLen {
		return newError(ErrInvalidOrganizationName, nil, "reason", "too long", "organization", org)
	}
	return nil
}

func deriveErr(err error, org string) error {
	if errors.Is(err, ledger.ErrMaxSeedLength) {
		return newError(ErrInvalidOrganizationName, err, "organization", org)
	}
	return err
}

// RegistryAddress derives the registry address and bump for org.
func RegistryAddress(programID ledger.Address, org string) (ledger.Address, uint8, error) {
	if err := checkOrganizationName(org); err != nil {
		return ledger.Address{}, 0, err
	}
	addr, bump, err := ledger.FindProgramAddress(registrySeeds(org), programID)
	if err != nil {
		return ledger.Address{}, 0, deriveErr(err, org)
	}
	return addr, bump, nil
}

// CustodyAddress derives the custody account address and bump for org. The
// custody account's token authority is this same address.
func CustodyAddress(programID ledger.Address, org string) (ledger.Address, uint8, error) {
	if err := checkOrganizationName(org); err != nil {
		return ledger.Address{}, 0, err
	}
	addr, bump, err := ledger.FindProgramAddress(custodySeeds(org), programID)
	if err != nil {
		return ledger.Address{}, 0, deriveErr(err, org)
	}
	return addr, bump, nil
}

// GrantAddress derives the grant address and bump for beneficiary under registry.
func GrantAddress(programID, beneficiary, registry ledger.Address) (ledger.Address, uint8, error) {
	return ledger.FindProgramAddress(grantSeeds(beneficiary, registry), programID)
}

// custodyAuthority reconstructs the signer for a registry's custody account.
// It is the only way custody funds can be authorised to move.
func custodyAuthority(programID ledger.Address, reg RegistryEntry) (ledger.Signer, error) {
	return ledger.DerivedSigner(programID, custodySeeds(reg.OrganizationName), reg.CustodyBump)
}
