// Package orchestrator drives a bounded retry loop around an external task
// executor.
//
// # Flow
//
//	pre-validation (once) → attempt 1 … attempt MaxRetries+1
//
// Pre-validation runs exactly once. A failing pre-validation blocks the
// request before any attempt is made. Each attempt runs the executor with
// the current task text and then the post-validation function. When
// post-validation fails, or the executor returns an error, a feedback block
// describing the problems is appended to the original task for the next
// attempt. Only the latest feedback block is kept.
//
// # Executors
//
//   - ProcessExecutor runs an external CLI with a timeout.
//   - StandaloneExecutor returns an inert result without side effects.
//   - ExecutorFunc adapts a function.
//
// An executor that reports ErrExecutorUnavailable is replaced by the
// standalone result so the loop still completes.
//
// # Usage Example
//
//	exec := orchestrator.NewProcessExecutor(cfg.Orchestrator, logger)
//	orch := orchestrator.New(exec, orchestrator.FromAppConfig(cfg.Orchestrator), logger)
//
//	out, err := orch.Orchestrate(ctx, orchestrator.Request{
//	    Task:       "implement the login handler",
//	    MaxRetries: 3,
//	    Pre:        orchestrator.ValidatorPreValidation(v),
//	    Post:       orchestrator.ValidatorPostValidation(v),
//	})
package orchestrator
