package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
)

// maxStderr bounds how much stderr is quoted in an error.
const maxStderr = 2048

const waitDelay = 500 * time.Millisecond

// Executor runs a task.
type Executor interface {
	Execute(ctx context.Context, task Task) (*ExecResult, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, task Task) (*ExecResult, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, task Task) (*ExecResult, error) {
	return f(ctx, task)
}

// StandaloneExecutor returns an inert result. It is used when the external
// executor is unavailable.
type StandaloneExecutor struct{}

// Execute implements Executor.
func (StandaloneExecutor) Execute(_ context.Context, task Task) (*ExecResult, error) {
	return &ExecResult{
		Standalone: true,
		Data: map[string]any{
			"mode":     "standalone",
			"task":     task.Text,
			"strategy": task.Strategy,
		},
	}, nil
}

// ProcessExecutor runs an external command per task. The task text is
// passed as an argument after Args, followed by --strategy, --priority and
// --max-agents flags.
type ProcessExecutor struct {
	Command string
	Args    []string
	Timeout time.Duration

	logger *logging.Logger
}

// NewProcessExecutor creates a ProcessExecutor from config.
func NewProcessExecutor(cfg config.OrchestratorConfig, logger *logging.Logger) *ProcessExecutor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ProcessExecutor{
		Command: cfg.Command,
		Args:    append([]string(nil), cfg.Args...),
		Timeout: cfg.Timeout.Duration(),
		logger:  logger.Named("executor"),
	}
}

// Available reports whether the command can be found.
func (p *ProcessExecutor) Available() bool {
	_, err := exec.LookPath(p.Command)
	return err == nil
}

// Execute implements Executor. A missing command yields
// ErrExecutorUnavailable; a timeout or non-zero exit yields an error
// quoting stderr.
func (p *ProcessExecutor) Execute(ctx context.Context, task Task) (*ExecResult, error) {
	path, err := exec.LookPath(p.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExecutorUnavailable, p.Command, err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, p.args(task)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children of the agent can hold the pipes open after it is killed.
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	p.logger.Debug(ctx, "executor finished",
		zap.String("command", p.Command),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("executor timed out after %s", p.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[len(msg)-maxStderr:]
		}
		if msg == "" {
			return nil, fmt.Errorf("executor failed: %w", err)
		}
		return nil, fmt.Errorf("executor failed: %w: %s", err, msg)
	}

	res := &ExecResult{Output: stdout.String(), Duration: elapsed}
	var data map[string]any
	if json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &data) == nil {
		res.Data = data
	}
	return res, nil
}

func (p *ProcessExecutor) args(task Task) []string {
	args := append([]string(nil), p.Args...)
	args = append(args, task.Text)
	if task.Strategy != "" {
		args = append(args, "--strategy", task.Strategy)
	}
	if task.Priority != "" {
		args = append(args, "--priority", task.Priority)
	}
	if task.MaxAgents > 0 {
		args = append(args, "--max-agents", strconv.Itoa(task.MaxAgents))
	}
	return args
}
