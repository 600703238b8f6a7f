// Package main implements the gatekeeper CLI.
//
// Gatekeeper screens AI-agent tool calls and generated code: it scans text
// for secrets, injection and performance hazards, scores output quality,
// gates phased workflows and retries agent tasks with validation feedback.
//
// Usage:
//
//	# Scan a file before it is written
//	gatekeeper validate main.js
//
//	# Score generated code and fail below 0.9
//	gatekeeper score --verify --threshold 0.9 out.js
//
//	# Run a task through the retry loop
//	gatekeeper run "add input validation to the signup handler"
//
//	# Serve the HTTP readout API
//	gatekeeper serve
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	jsonOutput bool
	verbose    bool
)

// errFailed signals a completed check that did not pass. main maps it to
// exit code 2 without printing it.
var errFailed = errors.New("check failed")

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, errFailed) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Validation gate for AI coding agents",
		Long: `gatekeeper validates what AI coding agents send and produce.

It scans tool inputs for hardcoded secrets and injection patterns, scores
generated code, enforces phase gates on workflows and retries agent tasks
with validation feedback until they pass.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/gatekeeper/config.yaml)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of errors only")

	root.AddCommand(
		newValidateCmd(),
		newScoreCmd(),
		newRunCmd(),
		newServeCmd(),
		newMonitorCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gatekeeper by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}

// loadConfig reads the config file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. One-shot commands log errors only unless
// --verbose is set, so their stdout stays parseable.
func newLogger(cfg *config.Config, quiet bool) (*logging.Logger, error) {
	lc := logging.FromAppConfig(cfg.Log)
	if quiet && !verbose {
		lc.Level = zapcore.ErrorLevel
	}
	return logging.NewLogger(lc, nil)
}

// newEngine loads config and builds an engine for a one-shot command.
func newEngine(ctx context.Context, opts ...engine.Option) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return nil, err
	}
	opts = append([]engine.Option{engine.WithLogger(logger), engine.WithVersion(version)}, opts...)
	return engine.New(ctx, cfg, opts...)
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no content to validate")
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
