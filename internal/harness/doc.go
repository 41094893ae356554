// Package harness runs YAML scenarios against the full request pipeline.
//
// A scenario is a sequence of steps. Each step submits one query or
// mutation to a compiler wired exactly as the CLI wires it (cache,
// journal, executor), except that the automation host is a
// testutil.FakeHost replaying the step's canned replies and the clock is
// a manually advanced testutil.Clock. Steps share state, so a scenario
// can observe caching, expiry and invalidation across requests.
//
// Every step may carry an expect clause checked against the envelope,
// the number of host calls the step made and the journal. RunWithGolden
// additionally compares a canonical snapshot of every step against
// testdata/golden/<name>.golden:
//
//	go test ./internal/harness -update
package harness
