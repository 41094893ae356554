// Package cache is the TTL result cache consulted before any read reaches
// the host.
//
// Entries live in named collections (tasks, projects, ...). A collection
// is invalidated as a whole; there is no per-key invalidation. The cache
// is purely an optimization: any backend may drop entries at any time
// without affecting correctness.
//
// Reads and invalidations of one collection are linearizable. Every
// collection carries a generation counter bumped by Invalidate. A reader
// captures the generation before executing a miss and stores its result
// with SetIfCurrent, which refuses the write when an invalidation
// happened in between. A result computed before a write therefore never
// lands in the cache after that write's invalidation.
//
// Two backends are provided: MemoryBackend (bounded LRU, swept by a
// gocron job) and BadgerBackend (badger with native entry TTL).
package cache
