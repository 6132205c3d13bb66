package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// GrantView is the output of grant commands. Amounts are in tokens.
type GrantView struct {
	Organization string `json:"organization"`
	Address      string `json:"address"`
	Beneficiary  string `json:"beneficiary"`
	StartTime    int64  `json:"start_time"`
	EndTime      int64  `json:"end_time"`
	CliffTime    int64  `json:"cliff_time"`
	Total        string `json:"total"`
	Withdrawn    string `json:"withdrawn"`

	// Set by grant show.
	Time      int64  `json:"time,omitempty"`
	Vested    string `json:"vested,omitempty"`
	Claimable string `json:"claimable,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (v GrantView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grant:       %s\n", v.Address)
	fmt.Fprintf(&b, "Beneficiary: %s\n", v.Beneficiary)
	fmt.Fprintf(&b, "Schedule:    %d .. %d (cliff %d)\n", v.StartTime, v.EndTime, v.CliffTime)
	fmt.Fprintf(&b, "Total:       %s\n", v.Total)
	fmt.Fprintf(&b, "Withdrawn:   %s", v.Withdrawn)
	if v.Vested != "" {
		fmt.Fprintf(&b, "\nAt %d:", v.Time)
		fmt.Fprintf(&b, "\n  Vested:    %s", v.Vested)
		fmt.Fprintf(&b, "\n  Claimable: %s", v.Claimable)
	}
	if v.Reason != "" {
		fmt.Fprintf(&b, "\n  Claim now: %s", v.Reason)
	}
	return b.String()
}

func grantView(org, addr string, g vesting.GrantEntry, decimals uint8) GrantView {
	return GrantView{
		Organization: org,
		Address:      addr,
		Beneficiary:  g.Beneficiary.String(),
		StartTime:    g.StartTime,
		EndTime:      g.EndTime,
		CliffTime:    g.CliffTime,
		Total:        token.FormatAmount(g.TotalAmount, decimals),
		Withdrawn:    token.FormatAmount(g.TotalWithdrawn, decimals),
	}
}

// NewGrantCommand creates the grant command group.
func NewGrantCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Create and inspect employee grants",
	}
	cmd.AddCommand(newGrantCreateCommand(rootOpts))
	cmd.AddCommand(newGrantShowCommand(rootOpts))
	return cmd
}

type grantCreateOptions struct {
	*RootOptions
	Organization string
	Beneficiary  string
	Signer       string
	Amount       string
	Start        int64
	End          int64
	Cliff        int64
}

func newGrantCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &grantCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a vesting grant for a beneficiary",
		Long: `Create the grant of --beneficiary under --org. Only the registry owner
may sign. --amount is in tokens. The cliff defaults to the start time.

Times are not validated: a cliff outside the schedule or a zero-length
schedule is stored as given and surfaces when claiming. Use
"vesting plan validate" to lint a set of grants first.

Example:
  vesting grant create --org acme --beneficiary <wallet> \
    --start 1700000000 --end 1731536000 --cliff 1708000000 \
    --amount 1000 --signer <owner>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cliff") {
				opts.Cliff = opts.Start
			}
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runGrantCreate(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.Beneficiary, "beneficiary", "", "beneficiary wallet (required)")
	_ = cmd.MarkFlagRequired("beneficiary")
	cmd.Flags().StringVar(&opts.Signer, "signer", "", "registry owner wallet (required)")
	_ = cmd.MarkFlagRequired("signer")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "total amount in tokens (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "vesting start (unix seconds)")
	cmd.Flags().Int64Var(&opts.End, "end", 0, "vesting end (unix seconds)")
	cmd.Flags().Int64Var(&opts.Cliff, "cliff", 0, "cliff (unix seconds, default start)")

	return cmd
}

func runGrantCreate(ctx context.Context, a *app, opts *grantCreateOptions) error {
	signer, err := parseSigner("signer", opts.Signer)
	if err != nil {
		return err
	}
	beneficiary, err := parseAddress("beneficiary", opts.Beneficiary)
	if err != nil {
		return err
	}
	_, m, err := a.program.CustodyBalance(ctx, opts.Organization)
	if err != nil {
		return a.out.Rejected(err)
	}
	amount, err := token.ParseUIAmount(opts.Amount, m.Decimals)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --amount", err)
	}

	g, err := a.program.CreateEmployeeAccount(ctx, signer, vesting.GrantParams{
		Organization: opts.Organization,
		Beneficiary:  beneficiary,
		StartTime:    opts.Start,
		EndTime:      opts.End,
		TotalAmount:  amount,
		CliffTime:    opts.Cliff,
	})
	if err != nil {
		return a.out.Rejected(err)
	}
	addr, _, err := a.program.Grant(ctx, opts.Organization, beneficiary)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read grant", err)
	}
	return a.out.Success(grantView(opts.Organization, addr.String(), g, m.Decimals))
}

type grantShowOptions struct {
	*RootOptions
	Organization string
	Beneficiary  string
}

func newGrantShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &grantShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a grant and what is claimable now",
		Long: `Show a grant with its vested and claimable amounts at the current time,
or at --now. Nothing is changed or journaled.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runGrantShow(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Organization, "org", "", "organization name (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&opts.Beneficiary, "beneficiary", "", "beneficiary wallet (required)")
	_ = cmd.MarkFlagRequired("beneficiary")

	return cmd
}

func runGrantShow(ctx context.Context, a *app, opts *grantShowOptions) error {
	beneficiary, err := parseAddress("beneficiary", opts.Beneficiary)
	if err != nil {
		return err
	}
	st, err := a.program.Status(ctx, opts.Organization, beneficiary, nil)
	if err != nil {
		return a.out.Rejected(err)
	}

	d := st.Mint.Decimals
	v := grantView(opts.Organization, st.Address.String(), st.Grant, d)
	v.Time = st.Entitlement.Time
	v.Vested = token.FormatAmount(st.Entitlement.Vested, d)
	v.Claimable = token.FormatAmount(st.Entitlement.Claimable, d)
	v.Reason = string(st.Reason)
	return a.out.Success(v)
}
