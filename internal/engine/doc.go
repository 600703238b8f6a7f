// Package engine assembles the gatekeeper components from configuration.
//
// An Engine owns one validator, one hook pipeline with the default
// validator hooks registered, one scoring aggregator, one workflow machine
// and one orchestrator, all reporting to a shared event observer. The HTTP
// server and the CLI talk to the Engine rather than to the components
// directly.
//
// Usage:
//
//	eng, err := engine.New(ctx, cfg, engine.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer eng.Shutdown(context.Background())
//
//	res, err := eng.ValidatePre(ctx, text)
//
// Shutdown stops accepting new operations, waits for in-flight ones until
// the context expires, then releases the event connection and telemetry.
package engine
