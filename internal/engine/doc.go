// Package engine executes generated scripts against the host automation
// subprocess.
//
// One Executor serializes every run through a weighted semaphore of size
// one: the host tolerates a single automation session at a time, so
// concurrent callers queue in FIFO order rather than run in parallel.
// Each run gets its own timeout (reads and writes differ); the timeout
// is the only cancellation point and a killed write has an unknown
// outcome.
//
// Failures are classified exactly once, in Classify, into the Kind
// taxonomy. Nothing downstream looks at raw host messages.
package engine
