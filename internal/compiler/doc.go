// Package compiler is the facade that turns a query or mutation request
// into a response envelope.
//
// A read flows through: request normalization, filter build, cache
// lookup, mode augmentation (against the clock at that moment), strategy
// selection, script generation, host execution, post-processing and a
// generation-guarded cache store. Identical concurrent reads share one
// host execution.
//
// A write flows through validation, strategy selection, generation and
// execution, then synchronously invalidates every cache collection the
// write can affect before the envelope is returned. Writes whose outcome
// is unknown (timeouts, host-side failures after the script started)
// invalidate too.
//
// Failures never escape as Go errors from CompileAndRun: they are
// classified into engine.Error and carried in the envelope.
package compiler
