package vesting

import (
	"context"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
)

// CreateVestingAccount creates the registry for org and an empty custody
// account for asset. The signer becomes the registry owner. The custody
// account's token authority is its own derived address.
//
// Fails with ErrAlreadyExists if either derived address is occupied.
func (p *Program) CreateVestingAccount(ctx context.Context, signer ledger.Signer, org string, asset ledger.Address) (RegistryEntry, error) {
	op := ledger.NewOperation(OpCreateVestingAccount, signerAddress(signer), p.clock.Now(), ledger.Object{
		"organization_name": ledger.String(org),
		"asset":             ledger.String(asset.String()),
	})

	var reg RegistryEntry
	err := p.execute(ctx, op, func(accts ledger.Accounts) error {
		if err := requireSigner(signer); err != nil {
			return err
		}
		regAddr, bump, err := RegistryAddress(p.id, org)
		if err != nil {
			return err
		}
		custody, custodyBump, err := CustodyAddress(p.id, org)
		if err != nil {
			return err
		}
		if _, err := loadMint(ctx, accts, asset); err != nil {
			return err
		}

		reg = RegistryEntry{
			Owner:            signer.Address(),
			Asset:            asset,
			CustodyAccount:   custody,
			OrganizationName: org,
			CustodyBump:      custodyBump,
			Bump:             bump,
		}
		data, err := reg.MarshalBinary()
		if err != nil {
			return newError(ErrInvalidOrganizationName, err, "organization", org)
		}
		if err := accts.Create(ctx, ledger.Account{Address: regAddr, Owner: p.id, Kind: KindRegistry, Data: data}); err != nil {
			return alreadyExists(err, "registry", regAddr)
		}
		if _, err := token.InitializeAccount(ctx, accts, custody, asset, custody); err != nil {
			return alreadyExists(err, "custody", custody)
		}
		return nil
	})
	if err != nil {
		return RegistryEntry{}, err
	}

	p.logger.Info("registry created",
		"organization", org,
		"owner", reg.Owner.String(),
		"asset", asset.String(),
		"custody", reg.CustodyAccount.String(),
	)
	return reg, nil
}
