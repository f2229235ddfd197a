// Package rhscache reuses the solutions of repeated linear solves that share
// one operator but differ in their right-hand side.
//
// A linear operator satisfies A·(c·x) = c·b whenever A·x = b, so a solve whose
// right-hand side (RHS) equals, negates, or scales a previously solved RHS can
// be answered from the earlier solution. Adjoint derivative computations
// produce such repeats frequently.
//
// # Lookup
//
// [Cache.GetSolution] is called before each solve and [Cache.AddSolution]
// after each solve that was not served from the cache. A lookup:
//
//   - bypasses the cache while the owning system is under complex step
//   - reports a zero RHS without scanning, when CheckZero is set
//   - clears the cache once the system's derivative pass counter has moved
//   - scans cached pairs from newest to oldest, testing equality, then
//     negation, then parallelism; the first test that holds wins
//
// # Eviction
//
// Cached pairs live in a fixed-capacity ring buffer. When it is full the
// oldest pair is overwritten (FIFO). A capacity of 0 disables caching.
//
// # Distributed vectors
//
// When the RHS is a shard of a vector split across a [Group] of workers, every
// worker consults its own cache and a hit is accepted only if all workers hit.
// The agreement is a collective reduction, so every worker must perform the
// same sequence of lookups.
//
// # Stats
//
// Caches built with CollectStats count outcomes. A [StatsRegistry] gathers
// them for export as text, HTML, JSON, or YAML, and [Snapshot.SaveToFile]
// persists per-worker snapshots using gob encoding with snappy compression.
package rhscache
