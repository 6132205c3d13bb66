package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/config"
	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/store"
	"github.com/roach88/vesting/internal/telemetry"
	"github.com/roach88/vesting/internal/token"
	"github.com/roach88/vesting/internal/vesting"
)

// app is everything a command needs, wired from configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	clock    vesting.Clock
	program  *vesting.Program
	tokens   *token.Client
	registry *prometheus.Registry
	out      *OutputFormatter
}

// fixedClock reports the time given with --now.
type fixedClock int64

func (c fixedClock) Now() int64 { return int64(c) }

// openApp loads configuration and opens the ledger. Callers must close the
// returned app.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(cfg.Logging.Format, level, cmd.ErrOrStderr())

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var clock vesting.Clock = vesting.SystemClock{}
	if f := cmd.Flags().Lookup("now"); f != nil && f.Changed {
		clock = fixedClock(opts.Now)
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		clock:  clock,
		program: vesting.New(cfg.ProgramID(), st,
			vesting.WithClock(clock),
			vesting.WithLogger(logger),
			vesting.WithRecorder(metrics),
		),
		tokens:   token.NewClient(st, clock.Now),
		registry: reg,
		out: &OutputFormatter{
			Format:  opts.Format,
			Writer:  cmd.OutOrStdout(),
			Verbose: opts.Verbose,
		},
	}, nil
}

// Close exports metrics when enabled and closes the database.
func (a *app) Close() error {
	var errs []error
	if a.cfg.Metrics.Enabled {
		if err := telemetry.WriteTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.logger.Error("error closing", "error", cerr)
			if err == nil {
				err = WrapExitError(ExitCommandError, "failed to close", cerr)
			}
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

// parseAddress parses a base58 flag value.
func parseAddress(flag, value string) (ledger.Address, error) {
	addr, err := ledger.ParseAddress(value)
	if err != nil {
		return ledger.Address{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return addr, nil
}

// parseSigner treats the base58 address in a flag as a wallet that signed
// the command.
func parseSigner(flag, value string) (ledger.Signer, error) {
	addr, err := parseAddress(flag, value)
	if err != nil {
		return nil, err
	}
	s, err := ledger.WalletSigner(addr)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return s, nil
}
