package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// Now overrides the trusted clock (unix seconds) when the flag is set.
	Now int64

	// Database, LogLevel, LogFormat and Program are read through config.Load
	// so that explicitly set flags override the file and environment.
	Database  string
	LogLevel  string
	LogFormat string
	Program   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vesting CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vesting",
		Short: "Time-based token vesting ledger",
		Long: `Manage vesting registries, employee grants and claims against a
local SQLite ledger.

An organization's registry holds its tokens in a custody account. Grants
release a fixed amount linearly between a start and an end time, after an
optional cliff, and beneficiaries claim what has vested so far.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ./vesting.yaml if present)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.Int64Var(&opts.Now, "now", 0, "override the current time (unix seconds)")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database (overrides database.path)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")
	flags.StringVar(&opts.Program, "program", "", "base58 program identity addresses are derived under")

	cmd.AddCommand(NewMintCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))
	cmd.AddCommand(NewGrantCommand(opts))
	cmd.AddCommand(NewClaimCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}
