package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// ErrOwnerMismatch is returned when the applying signer is not the plan owner.
var ErrOwnerMismatch = errors.New("signer is not the plan owner")

// Step is one executed plan operation.
type Step struct {
	Operation string         `json:"operation"`
	Target    ledger.Address `json:"target"`
	Amount    uint64         `json:"amount,omitempty"`
}

// Applier executes plans through the vesting program.
type Applier struct {
	Program *vesting.Program
	Tokens  *token.Client
}

// ApplyOptions carries the signers a plan needs.
type ApplyOptions struct {
	// Owner signs registry and grant creation; it must match the plan owner.
	Owner ledger.Signer

	// MintAuthority signs custody funding. Required when the plan funds.
	MintAuthority ledger.Signer
}

// Apply creates the registry, funds custody and creates each grant, one
// atomic operation per step, stopping at the first failure. The steps that
// completed are returned either way.
func (a *Applier) Apply(ctx context.Context, p *Plan, opts ApplyOptions) ([]Step, error) {
	addrs, err := p.Resolve()
	if err != nil {
		return nil, err
	}
	if opts.Owner == nil || opts.Owner.Address() != addrs.Owner {
		return nil, fmt.Errorf("%w: plan owner %s", ErrOwnerMismatch, addrs.Owner)
	}
	if p.Funding > 0 && opts.MintAuthority == nil {
		return nil, fmt.Errorf("plan funds custody: %w: mint authority", ledger.ErrNotSigner)
	}

	var steps []Step
	reg, err := a.Program.CreateVestingAccount(ctx, opts.Owner, p.Organization, addrs.Mint)
	if err != nil {
		return steps, fmt.Errorf("create registry: %w", err)
	}
	regAddr, _, err := vesting.RegistryAddress(a.Program.ID(), p.Organization)
	if err != nil {
		return steps, err
	}
	steps = append(steps, Step{Operation: vesting.OpCreateVestingAccount, Target: regAddr})

	if p.Funding > 0 {
		if _, err := a.Tokens.MintToAccount(ctx, opts.MintAuthority, addrs.Mint, reg.CustodyAccount, p.Funding); err != nil {
			return steps, fmt.Errorf("fund custody: %w", err)
		}
		steps = append(steps, Step{Operation: token.OpMintTo, Target: reg.CustodyAccount, Amount: p.Funding})
	}

	for i, g := range p.Grants {
		_, err := a.Program.CreateEmployeeAccount(ctx, opts.Owner, vesting.GrantParams{
			Organization: p.Organization,
			Beneficiary:  addrs.Beneficiaries[i],
			StartTime:    g.Start,
			EndTime:      g.End,
			TotalAmount:  g.Amount,
			CliffTime:    g.Cliff,
		})
		if err != nil {
			return steps, fmt.Errorf("grants[%d]: %w", i, err)
		}
		grantAddr, _, err := vesting.GrantAddress(a.Program.ID(), addrs.Beneficiaries[i], regAddr)
		if err != nil {
			return steps, err
		}
		steps = append(steps, Step{Operation: vesting.OpCreateEmployeeAccount, Target: grantAddr, Amount: g.Amount})
	}
	return steps, nil
}
