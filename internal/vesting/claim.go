package vesting

import (
	"context"
	"log/slog"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
)

// ClaimRequest identifies the grant to claim against.
type ClaimRequest struct {
	// Signer must be the grant beneficiary.
	Signer ledger.Signer

	// Organization names the registry.
	Organization string

	// Beneficiary selects the grant. Zero means the signer's own grant.
	Beneficiary ledger.Address
}

// ClaimReceipt describes a completed claim.
type ClaimReceipt struct {
	Grant          ledger.Address `json:"grant"`
	Destination    ledger.Address `json:"destination"`
	Time           int64          `json:"time"`
	Amount         uint64         `json:"amount"`
	Vested         uint64         `json:"vested"`
	TotalWithdrawn uint64         `json:"total_withdrawn"`
	Decimals       uint8          `json:"decimals"`
}

// ClaimTokens transfers everything vested and not yet withdrawn from the
// organization's custody account to the beneficiary's associated token
// account, and adds it to the grant's withdrawn total. The transfer and
// the grant update commit together or not at all.
func (p *Program) ClaimTokens(ctx context.Context, req ClaimRequest) (ClaimReceipt, error) {
	now := p.clock.Now()
	beneficiary := req.Beneficiary
	if beneficiary.IsZero() {
		beneficiary = signerAddress(req.Signer)
	}
	op := ledger.NewOperation(OpClaimTokens, signerAddress(req.Signer), now, ledger.Object{
		"organization_name": ledger.String(req.Organization),
		"beneficiary":       ledger.String(beneficiary.String()),
	})

	var (
		receipt ClaimReceipt
		ent     Entitlement
	)
	err := p.execute(ctx, op, func(accts ledger.Accounts) error {
		if err := requireSigner(req.Signer); err != nil {
			return err
		}
		regAddr, _, err := RegistryAddress(p.id, req.Organization)
		if err != nil {
			return err
		}
		reg, err := p.loadRegistry(ctx, accts, regAddr)
		if err != nil {
			return err
		}
		if err := ledger.VerifyProgramAddress(regAddr, registrySeeds(reg.OrganizationName), reg.Bump, p.id); err != nil {
			return newError(ErrAccountMismatch, err, "registry", regAddr.String())
		}

		grantAddr, _, err := GrantAddress(p.id, beneficiary, regAddr)
		if err != nil {
			return err
		}
		grant, err := p.loadGrant(ctx, accts, grantAddr)
		if err != nil {
			return err
		}
		if err := p.authorizeClaim(req.Signer, grantAddr, grant, regAddr); err != nil {
			return err
		}

		custody, _, err := CustodyAddress(p.id, reg.OrganizationName)
		if err != nil {
			return err
		}
		if reg.CustodyAccount != custody {
			return newError(ErrAccountMismatch, nil,
				"custody", reg.CustodyAccount.String(),
				"derived", custody.String())
		}

		ent, err = Assess(grant, now)
		if err != nil {
			return err
		}

		mint, err := loadMint(ctx, accts, reg.Asset)
		if err != nil {
			return err
		}
		dest, err := token.CreateAssociatedIdempotent(ctx, accts, grant.Beneficiary, reg.Asset)
		if err != nil {
			return newError(ErrAccountMismatch, err, "destination", beneficiary.String())
		}
		authority, err := custodyAuthority(p.id, reg)
		if err != nil {
			return newError(ErrAccountMismatch, err, "custody", custody.String())
		}
		err = token.TransferChecked(ctx, accts, token.Transfer{
			Source:      reg.CustodyAccount,
			Mint:        reg.Asset,
			Destination: dest.Address,
			Authority:   authority,
			Amount:      ent.Claimable,
			Decimals:    mint.Decimals,
		})
		if err != nil {
			return newError(ErrTransferFailed, err, "custody", custody.String())
		}

		// Cannot overflow: Claimable <= Vested <= TotalAmount.
		grant.TotalWithdrawn += ent.Claimable
		data, err := grant.MarshalBinary()
		if err != nil {
			return err
		}
		if err := accts.Update(ctx, ledger.Account{Address: grantAddr, Owner: p.id, Kind: KindGrant, Data: data}); err != nil {
			return err
		}

		receipt = ClaimReceipt{
			Grant:          grantAddr,
			Destination:    dest.Address,
			Time:           now,
			Amount:         ent.Claimable,
			Vested:         ent.Vested,
			TotalWithdrawn: grant.TotalWithdrawn,
			Decimals:       mint.Decimals,
		}
		return nil
	})
	if err != nil {
		if ent.Inconsistent() {
			p.logger.Warn("withdrawn exceeds vested",
				"organization", req.Organization,
				"beneficiary", beneficiary.String(),
				"vested", ent.Vested,
				"withdrawn", ent.Withdrawn,
			)
		}
		return ClaimReceipt{}, err
	}

	p.metrics.Claimed(receipt.Amount)
	p.logger.Info("tokens claimed",
		slog.String("organization", req.Organization),
		slog.String("grant", receipt.Grant.String()),
		slog.Uint64("amount", receipt.Amount),
		slog.Uint64("total_withdrawn", receipt.TotalWithdrawn),
	)
	return receipt, nil
}

// authorizeClaim applies the account constraints of a claim: the grant must
// sit at its derived address, belong to the signer, and reference regAddr.
func (p *Program) authorizeClaim(signer ledger.Signer, grantAddr ledger.Address, grant GrantEntry, regAddr ledger.Address) error {
	if grant.Beneficiary != signer.Address() {
		return newError(ErrUnauthorized, nil,
			"signer", signer.Address().String(),
			"beneficiary", grant.Beneficiary.String())
	}
	if grant.Registry != regAddr {
		return newError(ErrUnauthorized, nil,
			"grant_registry", grant.Registry.String(),
			"registry", regAddr.String())
	}
	if err := ledger.VerifyProgramAddress(grantAddr, grantSeeds(grant.Beneficiary, regAddr), grant.Bump, p.id); err != nil {
		return newError(ErrUnauthorized, err, "grant", grantAddr.String())
	}
	return nil
}
