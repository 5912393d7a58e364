// Package cache fronts a key-value store for dispatch results.
//
// A Keyer turns an operation name and its arguments into a stable
// fingerprint of the form "<namespace>:<operation>:<hash>". A Store holds
// encoded payloads with per-key expiry and supports glob deletes, which is
// how a whole operation family is invalidated. MemoryStore, RedisStore and
// ValkeyStore implement Store.
//
// Adapter wraps a Store with a Codec and a Policy and never returns errors:
// failures degrade to misses and are counted in Stats.
package cache
