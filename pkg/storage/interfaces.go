package storage

import "time"

// Record is the stored state of one module
type Record struct {
	Name         string                 `json:"module"`
	Dependencies []string               `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	LastUpdated  time.Time              `json:"last_updated"`
}

// Exists reports whether the record was ever written
func (r Record) Exists() bool {
	return !r.LastUpdated.IsZero()
}

// ModuleReader provides read access to module records
type ModuleReader interface {
	// Get returns the record for module, or an empty record if unknown
	Get(module string) Record
	// Modules returns every known module name in sorted order
	Modules() []string
	// Snapshot returns a copy of every record keyed by module name
	Snapshot() map[string]Record
}

// ModuleWriter mutates module records
type ModuleWriter interface {
	UpdateDependencies(module string, deps []string, metadata map[string]interface{}) Record
	UpdateMetadata(module string, metadata map[string]interface{}) Record
}

// Store is the full registry
type Store interface {
	ModuleReader
	ModuleWriter
	Len() int
}

// Invalidator is notified synchronously for every module whose derived
// analysis a record change affects
type Invalidator interface {
	Invalidate(module string)
}

// InvalidatorFunc adapts a function to the Invalidator interface
type InvalidatorFunc func(module string)

// Invalidate calls f(module)
func (f InvalidatorFunc) Invalidate(module string) {
	f(module)
}
