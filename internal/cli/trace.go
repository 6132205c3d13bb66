package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Limit     int
	Operation string // optional - filter to one instruction
	Verify    bool
}

// TraceEvent is one journaled operation.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Signer    string         `json:"signer"`
	Time      int64          `json:"time"`
	Outcome   string         `json:"outcome"`
	Args      map[string]any `json:"args"`
	Digest    string         `json:"digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total    int  `json:"total"`
	OK       int  `json:"ok"`
	Rejected int  `json:"rejected"`
	Verified bool `json:"verified,omitempty"`
}

func (r TraceResult) String() string {
	if len(r.Timeline) == 0 {
		return "No operations recorded."
	}
	var b strings.Builder
	for _, ev := range r.Timeline {
		fmt.Fprintf(&b, "[%d] t=%d %-24s %-24s signer=%s\n", ev.Seq, ev.Time, ev.Operation, ev.Outcome, ev.Signer)
	}
	fmt.Fprintf(&b, "%d operations (%d ok, %d rejected)", r.Stats.Total, r.Stats.OK, r.Stats.Rejected)
	if r.Stats.Verified {
		b.WriteString(", digests verified")
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the operation journal",
		Long: `Show journaled operations in execution order, rejected ones included.

With --verify every stored digest is recomputed from its row first, and
the command fails if any row was altered.

Examples:
  vesting trace --limit 20
  vesting trace --operation claim_tokens --format json
  vesting trace --verify`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
				return runTrace(ctx, a, opts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent n operations")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "filter to one instruction name")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify journal digests")

	return cmd
}

func runTrace(ctx context.Context, a *app, opts *TraceOptions) error {
	result := TraceResult{Timeline: []TraceEvent{}}

	if opts.Verify {
		if err := a.store.Verify(ctx); err != nil {
			if errors.Is(err, store.ErrDigestMismatch) {
				_ = a.out.Error("DIGEST_MISMATCH", err.Error(), nil)
				return WrapExitError(ExitFailure, "journal verification failed", err)
			}
			return WrapExitError(ExitCommandError, "failed to verify journal", err)
		}
		result.Stats.Verified = true
	}

	entries, err := a.store.Operations(ctx, store.OperationFilter{Name: opts.Operation, Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	for _, e := range entries {
		args, _ := ledger.ToNative(e.Args).(map[string]any)
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:       e.Seq,
			ID:        e.ID,
			Operation: e.Name,
			Signer:    e.Signer.String(),
			Time:      e.Time,
			Outcome:   e.Outcome,
			Args:      args,
			Digest:    e.StoredDigest,
		})
		if e.Outcome == ledger.OutcomeOK {
			result.Stats.OK++
		} else {
			result.Stats.Rejected++
		}
	}
	result.Stats.Total = len(result.Timeline)

	return a.out.Success(result)
}
