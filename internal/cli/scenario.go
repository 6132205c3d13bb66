package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/config"
	"github.com/roach88/vesting/internal/harness"
	"github.com/roach88/vesting/internal/telemetry"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Golden string // directory of golden traces to compare against
	Update bool   // rewrite golden traces instead of comparing
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r ScenarioReport) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		mark := "PASS"
		if !s.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run YAML vesting scenarios",
		Long: `Run scenario files end to end, each against a fresh in-memory ledger
with its own clock. The configured database is not touched.

With --golden DIR the trace of each scenario is compared with
DIR/<name>.golden; --update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable files, etc.)

Examples:
  vesting scenario testdata/scenarios/*.yaml
  vesting scenario basic_claim.yaml --golden testdata/golden --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden traces to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *ScenarioOptions, files []string) error {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(cfg.Logging.Format, level, cmd.ErrOrStderr())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	report := ScenarioReport{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		r, err := runScenarioFile(cmd, opts, file, harness.WithLogger(logger), harness.WithProgramID(cfg.ProgramID()))
		if err != nil {
			return err
		}
		report.Scenarios = append(report.Scenarios, r)
		if r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if err := out.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total))
	}
	return nil
}

func runScenarioFile(cmd *cobra.Command, opts *ScenarioOptions, file string, runOpts ...harness.Option) (ScenarioResult, error) {
	if _, err := os.Stat(file); err != nil {
		return ScenarioResult{}, WrapExitError(ExitCommandError, "scenario not found", err)
	}
	res := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res, nil
	}
	res.Name = scenario.Name

	result, err := harness.Run(cmd.Context(), scenario, runOpts...)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res, nil
	}
	res.Pass = result.Pass
	res.Errors = result.Errors

	if opts.Golden == "" {
		return res, nil
	}
	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return res, WrapExitError(ExitCommandError, "failed to render trace", err)
	}
	golden := filepath.Join(opts.Golden, scenario.Name+".golden")
	if opts.Update {
		if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
			return res, WrapExitError(ExitCommandError, "failed to write golden file", err)
		}
		return res, nil
	}
	want, err := os.ReadFile(golden)
	if err != nil {
		return res, WrapExitError(ExitCommandError, "failed to read golden file", err)
	}
	if string(want) != string(snapshot) {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("trace differs from %s", golden))
	}
	return res, nil
}
