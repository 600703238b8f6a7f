package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
)

func newScoreCmd() *cobra.Command {
	var (
		verify    bool
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Compute the truth score of a file or stdin",
		Long: `Compute a weighted security, quality and performance score between 0 and 1.

With --verify the score must reach --threshold and the text must have no
critical violations; otherwise the command exits 2.

Examples:
  gatekeeper score out.js
  gatekeeper score --verify --threshold 0.9 out.js`,
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
			if !verify {
				rec, err := eng.Score(ctx, text)
				if err != nil {
					return err
				}
				return printRecord(out, rec)
			}

			res, err := eng.Verify(ctx, text, threshold, nil)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := printJSON(out, res); err != nil {
					return err
				}
			} else {
				if err := printRecord(out, res.Record); err != nil {
					return err
				}
				verdict := "VERIFIED"
				if !res.Verified {
					verdict = "NOT VERIFIED"
				}
				fmt.Fprintf(out, "%s  threshold %.2f, critical-free %t\n", verdict, res.Threshold, res.Checks.NoCriticalViolations)
			}
			if !res.Verified {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "fail unless the score reaches the threshold")
	cmd.Flags().Float64Var(&threshold, "threshold", scoring.DefaultVerifyThreshold, "verification threshold between 0 and 1")
	return cmd
}

func printRecord(w io.Writer, rec scoring.Record) error {
	if jsonOutput {
		return printJSON(w, rec)
	}
	fmt.Fprintf(w, "score %.3f  %s\n", rec.Overall, rec.Status)
	fmt.Fprintf(w, "  security    %.3f\n", rec.Components.Security)
	fmt.Fprintf(w, "  quality     %.3f\n", rec.Components.Quality)
	fmt.Fprintf(w, "  performance %.3f\n", rec.Components.Performance)
	fmt.Fprintf(w, "  violations  critical=%d high=%d medium=%d low=%d\n", rec.Critical, rec.High, rec.Medium, rec.Low)
	return nil
}
