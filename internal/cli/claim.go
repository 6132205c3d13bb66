package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// ClaimView is the output of the claim command.
type ClaimView struct {
	Organization   string `json:"organization"`
	Grant          string `json:"grant"`
	Destination    string `json:"destination"`
	Time           int64  `json:"time"`
	Amount         string `json:"amount"`
	Vested         string `json:"vested"`
	TotalWithdrawn string `json:"total_withdrawn"`
}

func (v ClaimView) String() string {
	return fmt.Sprintf("Claimed %s at %d into %s\nVested:    %s\nWithdrawn: %s",
		v.Amount, v.Time, v.Destination, v.Vested, v.TotalWithdrawn)
}

type claimOptions struct {
	*RootOptions
	Organization string
	Signer       string
	Beneficiary  string
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &claimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim vested tokens",
		Long: `Transfer everything vested and not yet withdrawn from the organization's
custody account to the signer's associated token account, creating it
if needed.

Exit codes:
  0 - Tokens transferred
  1 - Claim rejected (e.g. NOTHING_TO_CLAIM, CLAIM_NOT_AVAILABLE_YET)
  2 - Command error

Example:
  vesting claim --org acme --signer <wallet>
  vesting claim --org acme --signer <wallet> --now 1720000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runClaim(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.Signer, "signer", "", "beneficiary wallet signing the claim (required)")
	_ = cmd.MarkFlagRequired("signer")
	cmd.Flags().StringVar(&opts.Beneficiary, "beneficiary", "", "grant to claim (default: the signer)")

	return cmd
}

func runClaim(ctx context.Context, a *app, opts *claimOptions) error {
	signer, err := parseSigner("signer", opts.Signer)
	if err != nil {
		return err
	}
	req := vesting.ClaimRequest{Signer: signer, Organization: opts.Organization}
	if opts.Beneficiary != "" {
		if req.Beneficiary, err = parseAddress("beneficiary", opts.Beneficiary); err != nil {
			return err
		}
	}

	r, err := a.program.ClaimTokens(ctx, req)
	if err != nil {
		return a.out.Rejected(err)
	}
	return a.out.Success(ClaimView{
		Organization:   opts.Organization,
		Grant:          r.Grant.String(),
		Destination:    r.Destination.String(),
		Time:           r.Time,
		Amount:         token.FormatAmount(r.Amount, r.Decimals),
		Vested:         token.FormatAmount(r.Vested, r.Decimals),
		TotalWithdrawn: token.FormatAmount(r.TotalWithdrawn, r.Decimals),
	})
}

// BalanceView is the output of the balance command.
type BalanceView struct {
	Account string `json:"account"`
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Amount  uint64 `json:"amount"`
	UI      string `json:"ui_amount"`
}

func (v BalanceView) String() string {
	return fmt.Sprintf("%s (account %s)", v.UI, v.Account)
}

type balanceOptions struct {
	*RootOptions
	Mint  string
	Owner string
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &balanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "balance",
		Short:         "Show a wallet's associated token balance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runBalance(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Mint, "mint", "", "token mint (required)")
	_ = cmd.MarkFlagRequired("mint")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "wallet (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runBalance(ctx context.Context, a *app, opts *balanceOptions) error {
	mint, err := parseAddress("mint", opts.Mint)
	if err != nil {
		return err
	}
	owner, err := parseAddress("owner", opts.Owner)
	if err != nil {
		return err
	}
	ata, err := token.AssociatedAddress(owner, mint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to derive token account", err)
	}

	acct, m, err := a.tokens.Balance(ctx, ata)
	if err != nil {
		return a.out.Rejected(err)
	}
	return a.out.Success(BalanceView{
		Account: ata.String(),
		Owner:   owner.String(),
		Mint:    mint.String(),
		Amount:  acct.Amount,
		UI:      token.FormatAmount(acct.Amount, m.Decimals),
	})
}
