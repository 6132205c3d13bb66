package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// RegistryView is the output of registry commands.
type RegistryView struct {
	Organization string `json:"organization"`
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	Asset        string `json:"asset"`
	Custody      string `json:"custody"`

	// CustodyBalance is filled by registry show.
	CustodyBalance string `json:"custody_balance,omitempty"`
}

func (v RegistryView) String() string {
	s := fmt.Sprintf("Organization: %s\nRegistry:     %s\nOwner:        %s\nAsset:        %s\nCustody:      %s",
		v.Organization, v.Address, v.Owner, v.Asset, v.Custody)
	if v.CustodyBalance != "" {
		s += "\nBalance:      " + v.CustodyBalance
	}
	return s
}

func registryView(addr ledger.Address, reg vesting.RegistryEntry) RegistryView {
	return RegistryView{
		Organization: reg.OrganizationName,
		Address:      addr.String(),
		Owner:        reg.Owner.String(),
		Asset:        reg.Asset.String(),
		Custody:      reg.CustodyAccount.String(),
	}
}

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Create and inspect organization registries",
	}
	cmd.AddCommand(newRegistryCreateCommand(rootOpts))
	cmd.AddCommand(newRegistryShowCommand(rootOpts))
	return cmd
}

type registryCreateOptions struct {
	*RootOptions
	Organization string
	Mint         string
	Signer       string
}

func newRegistryCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registryCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization's registry and custody account",
		Long: `Create the registry for --org holding tokens of --mint. The signer
becomes the registry owner and is the only one who may create grants.

Example:
  vesting registry create --org acme --mint <mint> --signer <wallet>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runRegistryCreate(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.Mint, "mint", "", "token mint held in custody (required)")
	_ = cmd.MarkFlagRequired("mint")
	cmd.Flags().StringVar(&opts.Signer, "signer", "", "owner wallet (required)")
	_ = cmd.MarkFlagRequired("signer")

	return cmd
}

func runRegistryCreate(ctx context.Context, a *app, opts *registryCreateOptions) error {
	signer, err := parseSigner("signer", opts.Signer)
	if err != nil {
		return err
	}
	mint, err := parseAddress("mint", opts.Mint)
	if err != nil {
		return err
	}

	reg, err := a.program.CreateVestingAccount(ctx, signer, opts.Organization, mint)
	if err != nil {
		return a.out.Rejected(err)
	}
	addr, _, err := vesting.RegistryAddress(a.program.ID(), opts.Organization)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to derive registry", err)
	}
	return a.out.Success(registryView(addr, reg))
}

type registryShowOptions struct {
	*RootOptions
	Organization string
}

func newRegistryShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registryShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Show an organization's registry and custody balance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				addr, reg, err := a.program.Registry(ctx, opts.Organization)
				if err != nil {
					return a.out.Rejected(err)
				}
				custody, m, err := a.program.CustodyBalance(ctx, opts.Organization)
				if err != nil {
					return a.out.Rejected(err)
				}
				v := registryView(addr, reg)
				v.CustodyBalance = token.FormatAmount(custody.Amount, m.Decimals)
				return a.out.Success(v)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}
