// Package dependencies provides dependency graph analysis over the module registry.
//
// # Overview
//
// Every function here is a pure read of a storage.ModuleReader. Modules that
// are referenced but never registered are treated as leaves with no
// dependencies of their own.
//
// # Key Features
//
// Direct: the recorded dependency list, in order
// Indirect: dependencies of direct dependencies, exactly one hop further
// Dependents: reverse edges computed by scanning every record
// Circular: direct dependencies that list the module back
// Depth: longest dependency chain, guarded against cycles
//
// # Usage Example
//
//	engine := dependencies.NewEngine(store)
//	view := engine.View("billing")
//
//	fmt.Printf("Direct: %v\n", view.Direct)
//	fmt.Printf("Indirect: %v\n", view.Indirect)
//	fmt.Printf("Depth: %d\n", view.Depth)
//
// Find a concrete cycle:
//
//	if path, err := engine.DetectCircularDependencies("billing"); err != nil {
//		fmt.Println(strings.Join(path, " -> "))
//	}
//
// Indirect deliberately stops one hop past the direct set; it is not a
// transitive closure.
//
// # Related Packages
//
//   - pkg/storage: the registry being analysed
//   - pkg/analyzer: caches and publishes views
package dependencies
