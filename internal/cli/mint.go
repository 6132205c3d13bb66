package cli

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
)

// MintView is the output of mint commands.
type MintView struct {
	Mint      string `json:"mint"`
	Authority string `json:"authority,omitempty"`
	Decimals  uint8  `json:"decimals"`
	Supply    string `json:"supply"`

	// Account and Balance are set by mint fund.
	Account string `json:"account,omitempty"`
	Balance string `json:"balance,omitempty"`
}

func (v MintView) String() string {
	s := fmt.Sprintf("Mint:      %s\nDecimals:  %d\nSupply:    %s", v.Mint, v.Decimals, v.Supply)
	if v.Authority != "" {
		s += "\nAuthority: " + v.Authority
	}
	if v.Account != "" {
		s += fmt.Sprintf("\nAccount:   %s\nBalance:   %s", v.Account, v.Balance)
	}
	return s
}

func mintView(m token.Mint) MintView {
	v := MintView{
		Mint:     m.Address.String(),
		Decimals: m.Decimals,
		Supply:   token.FormatAmount(m.Supply, m.Decimals),
	}
	if m.Authority != nil {
		v.Authority = m.Authority.String()
	}
	return v
}

// NewMintCommand creates the mint command group.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Create and fund token mints",
	}
	cmd.AddCommand(newMintCreateCommand(rootOpts))
	cmd.AddCommand(newMintFundCommand(rootOpts))
	return cmd
}

type mintCreateOptions struct {
	*RootOptions
	Authority string
	Address   string
	Decimals  uint8
}

func newMintCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &mintCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a token mint",
		Long: `Create a token mint controlled by --authority.

The mint address is generated unless --address is given.

Example:
  vesting mint create --authority <wallet> --decimals 6`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runMintCreate(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Authority, "authority", "", "mint authority wallet (required)")
	_ = cmd.MarkFlagRequired("authority")
	cmd.Flags().Uint8Var(&opts.Decimals, "decimals", 0, "number of decimal places")
	cmd.Flags().StringVar(&opts.Address, "address", "", "mint address (default: generated)")

	return cmd
}

func runMintCreate(ctx context.Context, a *app, opts *mintCreateOptions) error {
	authority, err := parseSigner("authority", opts.Authority)
	if err != nil {
		return err
	}

	var addr ledger.Address
	if opts.Address != "" {
		if addr, err = parseAddress("address", opts.Address); err != nil {
			return err
		}
	} else if addr, err = newMintAddress(); err != nil {
		return WrapExitError(ExitCommandError, "failed to generate mint address", err)
	}

	m, err := a.tokens.CreateMint(ctx, authority, addr, opts.Decimals)
	if err != nil {
		return a.out.Rejected(err)
	}
	a.logger.Info("mint created", "mint", m.Address.String(), "decimals", m.Decimals)
	return a.out.Success(mintView(m))
}

// newMintAddress returns a fresh on-curve address. The private key is
// discarded: mints never sign.
func newMintAddress() (ledger.Address, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ledger.Address{}, err
	}
	return ledger.AddressFromBytes(pub)
}

type mintFundOptions struct {
	*RootOptions
	Organization string
	Authority    string
	Amount       string
}

func newMintFundCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &mintFundOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint tokens into an organization's custody account",
		Long: `Mint new tokens of the registry's asset into its custody account.
--authority must be the mint authority. --amount is in whole tokens and
may carry up to the mint's decimals.

Example:
  vesting mint fund --org acme --amount 1000 --authority <wallet>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runMintFund(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount in tokens (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.Authority, "authority", "", "mint authority wallet (required)")
	_ = cmd.MarkFlagRequired("authority")

	return cmd
}

func runMintFund(ctx context.Context, a *app, opts *mintFundOptions) error {
	authority, err := parseSigner("authority", opts.Authority)
	if err != nil {
		return err
	}
	custody, m, err := a.program.CustodyBalance(ctx, opts.Organization)
	if err != nil {
		return a.out.Rejected(err)
	}
	amount, err := token.ParseUIAmount(opts.Amount, m.Decimals)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --amount", err)
	}

	if _, err := a.tokens.MintToAccount(ctx, authority, m.Address, custody.Address, amount); err != nil {
		return a.out.Rejected(err)
	}
	acct, m, err := a.tokens.Balance(ctx, custody.Address)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read custody account", err)
	}

	v := mintView(m)
	v.Account = acct.Address.String()
	v.Balance = token.FormatAmount(acct.Amount, m.Decimals)
	a.logger.Info("custody funded",
		"organization", opts.Organization,
		"amount", amount,
		"balance", acct.Amount,
	)
	return a.out.Success(v)
}
