package vesting

import (
	"context"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
)

// GrantStatus is a read-only view of a grant at a point in time.
type GrantStatus struct {
	Address ledger.Address `json:"address"`
	Grant   GrantEntry     `json:"grant"`
	Mint    token.Mint     `json:"-"`

	// Entitlement is filled when the schedule can be evaluated.
	Entitlement Entitlement `json:"entitlement"`

	// Reason is the code that would reject a claim now, or "".
	Reason Code `json:"reason,omitempty"`
}

// Registry returns the registry for org.
func (p *Program) Registry(ctx context.Context, org string) (ledger.Address, RegistryEntry, error) {
	var (
		addr ledger.Address
		reg  RegistryEntry
	)
	err := p.host.Atomically(ctx, nil, func(accts ledger.Accounts) error {
		var err error
		addr, _, err = RegistryAddress(p.id, org)
		if err != nil {
			return err
		}
		reg, err = p.loadRegistry(ctx, accts, addr)
		return err
	})
	return addr, reg, err
}

// Grant returns the grant of beneficiary under org.
func (p *Program) Grant(ctx context.Context, org string, beneficiary ledger.Address) (ledger.Address, GrantEntry, error) {
	var (
		addr  ledger.Address
		grant GrantEntry
	)
	err := p.host.Atomically(ctx, nil, func(accts ledger.Accounts) error {
		regAddr, _, err := RegistryAddress(p.id, org)
		if err != nil {
			return err
		}
		if _, err := p.loadRegistry(ctx, accts, regAddr); err != nil {
			return err
		}
		if addr, _, err = GrantAddress(p.id, beneficiary, regAddr); err != nil {
			return err
		}
		grant, err = p.loadGrant(ctx, accts, addr)
		return err
	})
	return addr, grant, err
}

// Status reports a beneficiary's grant under org as of the program clock,
// or at now when it is non-nil. Nothing is mutated or journaled.
func (p *Program) Status(ctx context.Context, org string, beneficiary ledger.Address, now *int64) (GrantStatus, error) {
	at := p.clock.Now()
	if now != nil {
		at = *now
	}

	var st GrantStatus
	err := p.host.Atomically(ctx, nil, func(accts ledger.Accounts) error {
		regAddr, _, err := RegistryAddress(p.id, org)
		if err != nil {
			return err
		}
		reg, err := p.loadRegistry(ctx, accts, regAddr)
		if err != nil {
			return err
		}
		st.Address, _, err = GrantAddress(p.id, beneficiary, regAddr)
		if err != nil {
			return err
		}
		st.Grant, err = p.loadGrant(ctx, accts, st.Address)
		if err != nil {
			return err
		}
		st.Mint, err = loadMint(ctx, accts, reg.Asset)
		return err
	})
	if err != nil {
		return GrantStatus{}, err
	}

	ent, err := Assess(st.Grant, at)
	st.Entitlement = ent
	st.Reason = CodeOf(err)
	if st.Reason == CodeNothingToClaim || st.Reason == CodeClaimNotAvailableYet {
		// Still report how much has vested.
		if vested, verr := VestedAmount(st.Grant, at); verr == nil {
			st.Entitlement.Vested = vested
		}
	}
	return st, nil
}

// CustodyBalance returns the custody account of org.
func (p *Program) CustodyBalance(ctx context.Context, org string) (token.Account, token.Mint, error) {
	var (
		acct token.Account
		mint token.Mint
	)
	err := p.host.Atomically(ctx, nil, func(accts ledger.Accounts) error {
		regAddr, _, err := RegistryAddress(p.id, org)
		if err != nil {
			return err
		}
		reg, err := p.loadRegistry(ctx, accts, regAddr)
		if err != nil {
			return err
		}
		if mint, err = loadMint(ctx, accts, reg.Asset); err != nil {
			return err
		}
		acct, err = token.LoadAccount(ctx, accts, reg.CustodyAccount)
		return err
	})
	return acct, mint, err
}
