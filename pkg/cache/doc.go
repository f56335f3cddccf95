// Package cache provides the per-module TTL cache in front of dependency analysis.
//
// # Overview
//
// Each module has at most one entry. An entry is served only while
// now - CachedAt < TTL; expired entries are dropped lazily on read. Any
// mutation of a module's record must call Invalidate, which removes the entry
// regardless of its age. Layer satisfies storage.Invalidator so the store can
// do this synchronously.
//
// # Stale writes
//
// An analysis computed from a record that changes before the result is stored
// must not be cached. Callers take a generation before reading and store with
// PutIfCurrent:
//
//	gen := layer.Generation("billing")
//	result := analyze("billing")
//	layer.PutIfCurrent("billing", gen, result, time.Now())
//
// PutIfCurrent is a no-op when Invalidate ran in between.
//
// Storage is a bounded hashicorp/golang-lru/v2 cache, so the least recently
// used modules are evicted once MaxEntries is reached.
package cache
