// Package storage provides the in-memory module registry the analyzer reads from.
//
// # Overview
//
// The registry maps module names to a Record holding the module's ordered
// dependency list, free-form metadata and the time it was last touched.
// Records are created on the first update and live for the lifetime of the
// store. Unknown modules read back as an empty record, never as an error.
//
// # Interfaces
//
// The store is consumed through narrow interfaces:
//
//   - ModuleReader: Get, Modules, Snapshot (graph engine, analyzer)
//   - ModuleWriter: UpdateDependencies, UpdateMetadata (protocol handlers)
//   - Invalidator: receives a synchronous callback for every module a
//     mutation affects (the module, its dependencies, modules reaching it)
//
// # Usage Example
//
//	cache := cache.New[analyzer.Result](cache.Config{TTL: 5 * time.Minute})
//	store := storage.NewMemoryStore(storage.WithInvalidator(cache))
//
//	store.UpdateDependencies("billing", []string{"common", "ledger"}, map[string]interface{}{"version": "1.0"})
//	rec := store.Get("billing")
//	fmt.Println(rec.Dependencies) // [common ledger]
//
// The invalidator runs before UpdateDependencies/UpdateMetadata return, so a
// reader that observes the new record can never be served a cached view of
// the old one.
package storage
