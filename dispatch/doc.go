// Package dispatch is the cache-aware entry point for every operation.
//
// A Dispatcher call makes one pass through these steps:
//
//  1. Look the operation up in the catalog. Unknown names fail with
//     NotFound (code UNKNOWN_TOOL).
//  2. For cacheable operations with a connected cache, fingerprint the
//     arguments and return a cached result when there is one.
//  3. Otherwise call the upstream client and shape its result.
//  4. Store the shaped result for cacheable operations.
//  5. After a successful mutation, drop the cached results of every
//     invalidation target.
//
// Cache problems never fail a dispatch; they degrade to a miss. Every call
// is traced, counted and logged through an observe.Middleware.
//
// Concurrent misses on the same key each call the upstream unless
// Options.SingleFlight is set, in which case they share one call.
package dispatch
