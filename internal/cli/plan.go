package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/plan"
)

// PlanValidation is the output of plan validate.
type PlanValidation struct {
	File     string         `json:"file"`
	Valid    bool           `json:"valid"`
	Grants   int            `json:"grants"`
	Total    string         `json:"total"`
	Findings []plan.Finding `json:"findings"`
}

func (v PlanValidation) String() string {
	var b strings.Builder
	for _, f := range v.Findings {
		fmt.Fprintln(&b, f.String())
	}
	status := "valid"
	if !v.Valid {
		status = "invalid"
	}
	fmt.Fprintf(&b, "%s: %s, %d grant(s) totalling %s", v.File, status, v.Grants, v.Total)
	return b.String()
}

// PlanApplied is the output of plan apply.
type PlanApplied struct {
	File     string         `json:"file"`
	Steps    []plan.Step    `json:"steps"`
	Findings []plan.Finding `json:"findings,omitempty"`
}

func (v PlanApplied) String() string {
	var b strings.Builder
	for _, f := range v.Findings {
		fmt.Fprintln(&b, f.String())
	}
	for _, s := range v.Steps {
		fmt.Fprintf(&b, "%-24s %s", s.Operation, s.Target)
		if s.Amount > 0 {
			fmt.Fprintf(&b, " %d", s.Amount)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s: applied %d step(s)", v.File, len(v.Steps))
	return b.String()
}

// NewPlanCommand creates the plan command group.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate and apply CUE grant plans",
		Long: `A plan is a CUE file declaring one organization, its mint, owner,
custody funding and grants. Example:

  plan: {
    organization: "acme"
    mint:         "<mint>"
    owner:        "<owner wallet>"
    funding:      1000
    grants: [
      {beneficiary: "<wallet>", start: 0, end: 1000, amount: 600},
      {beneficiary: "<wallet>", start: 0, end: 1000, cliff: 250, amount: 400},
    ]
  }

Amounts are in base units. Lint warnings (W2xx) are advisory; errors (E2xx)
block apply.`,
	}
	cmd.AddCommand(newPlanValidateCommand(rootOpts))
	cmd.AddCommand(newPlanApplyCommand(rootOpts))
	return cmd
}

func newPlanValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Type-check a plan and print lint findings",
		Long: `Type-check a plan against the embedded schema and print lint findings.
No database is opened.

Exit codes:
  0 - Plan valid (warnings may be printed)
  1 - Plan does not match the schema or has lint errors
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return runPlanValidate(out, args[0])
		},
	}
}

func runPlanValidate(out *OutputFormatter, path string) error {
	p, err := loadPlan(out, path)
	if err != nil {
		return err
	}

	findings := plan.Lint(p)
	total, overflow := p.Total()
	v := PlanValidation{
		File:     path,
		Valid:    !plan.HasErrors(findings),
		Grants:   len(p.Grants),
		Total:    fmt.Sprint(total),
		Findings: findings,
	}
	if overflow {
		v.Total = "overflow"
	}
	if v.Findings == nil {
		v.Findings = []plan.Finding{}
	}
	if err := out.Success(v); err != nil {
		return err
	}
	if !v.Valid {
		return NewExitError(ExitFailure, "plan has errors")
	}
	return nil
}

// loadPlan reports schema errors through out.
func loadPlan(out *OutputFormatter, path string) (*plan.Plan, error) {
	p, err := plan.LoadFile(path)
	if err == nil {
		return p, nil
	}
	var lerr *plan.LoadError
	if errors.As(err, &lerr) {
		_ = out.Error("INVALID_PLAN", lerr.Error(), map[string]string{"field": lerr.Field})
		return nil, WrapExitError(ExitFailure, "invalid plan", err)
	}
	return nil, WrapExitError(ExitCommandError, "failed to load plan", err)
}

type planApplyOptions struct {
	*RootOptions
	Signer        string
	MintAuthority string
}

func newPlanApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &planApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Create the registry, funding and grants a plan declares",
		Long: `Apply a plan: create the registry, fund custody when the plan funds, then
create each grant. Every step is its own atomic operation; apply stops at
the first rejected step and reports the steps that completed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runPlanApply(ctx, a, opts, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&opts.Signer, "signer", "", "plan owner wallet (required)")
	_ = cmd.MarkFlagRequired("signer")
	cmd.Flags().StringVar(&opts.MintAuthority, "mint-authority", "", "mint authority wallet (required when the plan funds)")

	return cmd
}

func runPlanApply(ctx context.Context, a *app, opts *planApplyOptions, path string) error {
	owner, err := parseSigner("signer", opts.Signer)
	if err != nil {
		return err
	}
	applyOpts := plan.ApplyOptions{Owner: owner}
	if opts.MintAuthority != "" {
		if applyOpts.MintAuthority, err = parseSigner("mint-authority", opts.MintAuthority); err != nil {
			return err
		}
	}

	p, err := loadPlan(a.out, path)
	if err != nil {
		return err
	}
	findings := plan.Lint(p)
	if plan.HasErrors(findings) {
		_ = a.out.Error("INVALID_PLAN", "plan has lint errors", findings)
		return NewExitError(ExitFailure, "plan has errors")
	}
	for _, f := range findings {
		a.logger.Warn("plan lint", "code", f.Code, "field", f.Field, "message", f.Message)
	}

	applier := &plan.Applier{Program: a.program, Tokens: a.tokens}
	steps, err := applier.Apply(ctx, p, applyOpts)
	if err != nil {
		if errors.Is(err, plan.ErrOwnerMismatch) || errors.Is(err, ledger.ErrNotSigner) {
			return WrapExitError(ExitCommandError, "cannot apply plan", err)
		}
		a.logger.Info("plan stopped", "file", path, "completed", len(steps))
		return a.out.Rejected(err)
	}
	return a.out.Success(PlanApplied{File: path, Steps: steps, Findings: findings})
}
