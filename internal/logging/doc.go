// Package logging provides structured logging for gatekeeper.
//
// Logger wraps Zap and adds:
//   - a Trace level below Debug
//   - stdout output with an optional OpenTelemetry bridge
//   - correlation fields pulled from context (trace, workflow, attempt, request)
//   - encoder-level redaction of sensitive field names and value patterns
//   - level-aware sampling where errors are never dropped
//
// Typical use:
//
//	logger, err := logging.NewLogger(logging.FromAppConfig(cfg.Log), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithWorkflowID(ctx, wf.ID)
//	logger.Info(ctx, "phase passed", zap.String("phase", "architecture"))
//
// Code under validation routinely contains credentials, so anything that
// looks like an assignment of a password, key or token is masked before it
// reaches the encoder. Use RedactedString for values known to be sensitive.
//
// Tests use NewTestLogger and its assertion helpers.
package logging
