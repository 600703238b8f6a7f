// Package hooks runs priority-ordered pre- and post-execution hooks around
// tool calls.
//
// A Pipeline keeps one registry per phase. Hooks run in priority order
// (CRITICAL first), in registration order within a priority. A pre hook may
// veto a call; a post hook may mark a result invalid. A hook that errors or
// panics is reported as a hook_error event and otherwise ignored, so one
// defective hook never takes down the pipeline.
//
// In strict mode pre hooks stop at the first veto. Post hooks always all
// run.
package hooks
