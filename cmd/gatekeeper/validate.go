package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/gatekeeper/internal/validator"
)

func newValidateCmd() *cobra.Command {
	var post bool
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Scan a file or stdin for violations",
		Long: `Scan text for hardcoded secrets, injection patterns and performance
hazards. With --post the text is treated as generated code and scored for
quality issues instead.

Exits 2 when the text does not pass.

Examples:
  # Scan a file
  gatekeeper validate handler.js

  # Scan stdin
  git diff | gatekeeper validate -

  # Score generated code
  gatekeeper validate --post out.js`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Shutdown(context.WithoutCancel(ctx))

			out := cmd.OutOrStdout()
			if post {
				res, err := eng.ValidatePost(ctx, text)
				if err != nil {
					return err
				}
				if err := printPost(out, res); err != nil {
					return err
				}
				if !res.Passed {
					return errFailed
				}
				return nil
			}

			res, err := eng.ValidatePre(ctx, text)
			if err != nil {
				return err
			}
			if err := printPre(out, res); err != nil {
				return err
			}
			if !res.Passed {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&post, "post", false, "score the input as generated code")
	return cmd
}

func printPre(w io.Writer, res validator.Result) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	if len(res.Violations) == 0 {
		fmt.Fprintf(w, "PASS  no violations (%s)\n", res.ResponseTime)
		return nil
	}
	verdict := "FAIL"
	if res.Passed {
		verdict = "WARN"
	}
	fmt.Fprintf(w, "%s  %d violation(s) (%s)\n", verdict, len(res.Violations), res.ResponseTime)
	for _, v := range res.Violations {
		fmt.Fprintf(w, "  [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
		for _, m := range v.Matches {
			fmt.Fprintf(w, "      match: %s\n", m)
		}
		if v.Suggestion != "" {
			fmt.Fprintf(w, "      fix:   %s\n", v.Suggestion)
		}
	}
	return nil
}

func printPost(w io.Writer, res validator.PostResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	verdict := "PASS"
	if !res.Passed {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "%s  quality %.0f/100 (%s)\n", verdict, res.QualityScore, res.ResponseTime)
	for _, is := range res.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s (-%.0f)\n", is.Severity, is.Type, is.Message, is.Deduction)
		if is.Suggestion != "" {
			fmt.Fprintf(w, "      fix:   %s\n", is.Suggestion)
		}
	}
	return nil
}
