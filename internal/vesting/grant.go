package vesting

import (
	"context"

	"github.com/roach88/vesting/internal/ledger"
)

// GrantParams are the inputs to CreateEmployeeAccount.
type GrantParams struct {
	Organization string
	Beneficiary  ledger.Address
	StartTime    int64
	EndTime      int64
	TotalAmount  uint64
	CliffTime    int64
}

// CreateEmployeeAccount creates the grant of p.Beneficiary under the
// organization's registry. Only the registry owner may sign.
//
// Times and amount are stored as given: a cliff outside [start, end], a
// zero-length schedule or an amount larger than custody holds are not
// rejected here and surface at claim time instead.
func (p *Program) CreateEmployeeAccount(ctx context.Context, signer ledger.Signer, params GrantParams) (GrantEntry, error) {
	op := ledger.NewOperation(OpCreateEmployeeAccount, signerAddress(signer), p.clock.Now(), ledger.Object{
		"organization_name": ledger.String(params.Organization),
		"beneficiary":       ledger.String(params.Beneficiary.String()),
		"start_time":        ledger.Int(params.StartTime),
		"end_time":          ledger.Int(params.EndTime),
		"total_amount":      ledger.Uint(params.TotalAmount),
		"cliff_time":        ledger.Int(params.CliffTime),
	})

	var (
		grant     GrantEntry
		grantAddr ledger.Address
	)
	err := p.execute(ctx, op, func(accts ledger.Accounts) error {
		if err := requireSigner(signer); err != nil {
			return err
		}
		regAddr, _, err := RegistryAddress(p.id, params.Organization)
		if err != nil {
			return err
		}
		reg, err := p.loadRegistry(ctx, accts, regAddr)
		if err != nil {
			return err
		}
		if signer.Address() != reg.Owner {
			return newError(ErrUnauthorized, nil,
				"signer", signer.Address().String(),
				"owner", reg.Owner.String())
		}

		var bump uint8
		grantAddr, bump, err = GrantAddress(p.id, params.Beneficiary, regAddr)
		if err != nil {
			return err
		}
		grant = GrantEntry{
			Beneficiary: params.Beneficiary,
			StartTime:   params.StartTime,
			EndTime:     params.EndTime,
			CliffTime:   params.CliffTime,
			Registry:    regAddr,
			TotalAmount: params.TotalAmount,
			Bump:        bump,
		}
		data, err := grant.MarshalBinary()
		if err != nil {
			return err
		}
		if err := accts.Create(ctx, ledger.Account{Address: grantAddr, Owner: p.id, Kind: KindGrant, Data: data}); err != nil {
			return alreadyExists(err, "grant", grantAddr)
		}
		return nil
	})
	if err != nil {
		return GrantEntry{}, err
	}

	p.logger.Info("grant created",
		"organization", params.Organization,
		"grant", grantAddr.String(),
		"beneficiary", params.Beneficiary.String(),
		"amount", params.TotalAmount,
	)
	return grant, nil
}
