package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	"github.com/fyrsmithlabs/gatekeeper/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	var (
		maxRetries int
		strategy   string
		priority   string
		maxAgents  int
		standalone bool
	)
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run an agent task with validation and retries",
		Long: `Run a task through the configured agent command. The task is screened
by the pre hooks first; each result is checked by the post hooks and failed
attempts are retried with the validation feedback appended to the task.

When the agent command is not installed, or with --standalone, the task is
run in standalone mode and produces an inert result.

Exits 2 unless the final status is success.

Examples:
  gatekeeper run "add retries to the fetch helper"
  gatekeeper run --max-retries 5 --strategy research "survey caching options"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var opts []engine.Option
			if standalone {
				opts = append(opts, engine.WithExecutor(orchestrator.StandaloneExecutor{}))
			}
			eng, err := newEngine(ctx, opts...)
			if err != nil {
				return err
			}
			defer eng.Shutdown(context.WithoutCancel(ctx))

			errOut := cmd.ErrOrStderr()
			eng.Orchestrator().OnAttempt(func(a orchestrator.Attempt) {
				printAttempt(errOut, a)
			})

			retries := eng.Orchestrator().Config().MaxRetries
			if cmd.Flags().Changed("max-retries") {
				retries = maxRetries
			}
			out, err := eng.Orchestrate(ctx, orchestrator.Request{
				Task:       strings.Join(args, " "),
				MaxRetries: retries,
				Strategy:   strategy,
				Priority:   priority,
				MaxAgents:  maxAgents,
			})
			if out != nil {
				if perr := printOutcome(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if out.FinalStatus != orchestrator.StatusSuccess {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "retries after the first attempt")
	cmd.Flags().StringVar(&strategy, "strategy", "", "agent strategy (default from config)")
	cmd.Flags().StringVar(&priority, "priority", "", "agent priority (default from config)")
	cmd.Flags().IntVar(&maxAgents, "max-agents", 0, "agent count (default from config)")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "do not call the agent command")
	return cmd
}

func printAttempt(w io.Writer, a orchestrator.Attempt) {
	if a.Passed {
		fmt.Fprintf(w, "attempt %d passed (%s)\n", a.Number, a.Duration)
		return
	}
	fmt.Fprintf(w, "attempt %d failed with %d issue(s) (%s)\n", a.Number, len(a.Issues), a.Duration)
	for _, is := range a.Issues {
		fmt.Fprintf(w, "  - %s\n", is.Message)
	}
}

func printOutcome(w io.Writer, out *orchestrator.Outcome) error {
	if jsonOutput {
		return printJSON(w, out)
	}
	fmt.Fprintf(w, "%s after %d attempt(s) in %s\n", out.FinalStatus, out.Attempts, out.Duration)
	if out.PreCheck != nil && !out.PreCheck.Passed {
		for _, v := range out.PreCheck.Violations {
			fmt.Fprintf(w, "  blocked: %s\n", v)
		}
	}
	if out.Standalone {
		fmt.Fprintln(w, "  ran in standalone mode")
	}
	if out.Result != nil && out.Result.Output != "" {
		fmt.Fprintln(w, strings.TrimRight(out.Result.Output, "\n"))
	}
	return nil
}
