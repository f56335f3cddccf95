package dependencies

import (
	"fmt"
	"sort"

	"github.com/platinummonkey/nexus/pkg/storage"
)

// View is the derived dependency picture of one module
type View struct {
	Module     string   `json:"module"`
	Direct     []string `json:"dependencies"`
	Indirect   []string `json:"indirect_dependencies"`
	Dependents []string `json:"dependents"`
	Circular   []string `json:"circular_dependencies"`
	Depth      int      `json:"depth"`
}

// Engine computes dependency views from a module registry
type Engine struct {
	source storage.ModuleReader
}

// NewEngine creates an engine reading from source
func NewEngine(source storage.ModuleReader) *Engine {
	return &Engine{source: source}
}

// Direct returns the recorded dependencies of module
func (e *Engine) Direct(module string) []string {
	return e.source.Get(module).Dependencies
}

// Indirect returns the dependencies of module's direct dependencies,
// deduplicated in first-seen order, excluding module itself and its direct
// dependencies. Only one level is expanded.
func (e *Engine) Indirect(module string) []string {
	direct := e.Direct(module)

	exclude := make(map[string]bool, len(direct)+1)
	exclude[module] = true
	for _, d := range direct {
		exclude[d] = true
	}

	result := make([]string, 0)
	seen := make(map[string]bool)
	for _, d := range direct {
		for _, dd := range e.Direct(d) {
			if exclude[dd] || seen[dd] {
				continue
			}
			seen[dd] = true
			result = append(result, dd)
		}
	}
	return result
}

// Dependents returns every module whose direct list contains module, sorted
func (e *Engine) Dependents(module string) []string {
	return dependentsOf(module, e.source.Snapshot())
}

// Circular returns the direct dependencies of module that also depend
// directly on module. A self-dependency is reported as circular.
func (e *Engine) Circular(module string) []string {
	result := make([]string, 0)
	seen := make(map[string]bool)
	for _, d := range e.Direct(module) {
		if seen[d] {
			continue
		}
		seen[d] = true
		if contains(e.Direct(d), module) {
			result = append(result, d)
		}
	}
	return result
}

// Depth returns the length of the longest dependency chain starting at
// module. A module already on the current path counts as 0, so cycles
// (including self-dependency) terminate.
func (e *Engine) Depth(module string) int {
	graph := adjacency(e.source.Snapshot())
	w := &depthWalker{
		graph:  graph,
		cyclic: cyclicModules(graph, module),
		memo:   make(map[string]int),
		onPath: make(map[string]bool),
	}
	return w.depth(module)
}

// depthWalker evaluates the path-guarded depth recursion. A module outside
// every cycle cannot reach any module on the current path, so its depth does
// not depend on the path and is memoized; modules on a cycle are re-walked.
type depthWalker struct {
	graph  map[string][]string
	cyclic map[string]bool
	memo   map[string]int
	onPath map[string]bool
}

func (w *depthWalker) depth(module string) int {
	direct := w.graph[module]
	if len(direct) == 0 || w.onPath[module] {
		return 0
	}
	if n, ok := w.memo[module]; ok {
		return n
	}

	w.onPath[module] = true
	deepest := 0
	for _, d := range direct {
		if n := w.depth(d); n > deepest {
			deepest = n
		}
	}
	delete(w.onPath, module)

	if !w.cyclic[module] {
		w.memo[module] = 1 + deepest
	}
	return 1 + deepest
}

func adjacency(records map[string]storage.Record) map[string][]string {
	graph := make(map[string][]string, len(records))
	for name, rec := range records {
		graph[name] = rec.Dependencies
	}
	return graph
}

// cyclicModules returns the modules reachable from root that lie on a cycle:
// members of a strongly connected component with more than one module, or
// modules that depend on themselves.
func cyclicModules(graph map[string][]string, root string) map[string]bool {
	var (
		next    int
		index   = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		cyclic  = make(map[string]bool)
	)

	var connect func(v string)
	connect = func(v string) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if w == v {
				cyclic[v] = true
			}
			if _, seen := index[w]; !seen {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] != index[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			for _, w := range component {
				cyclic[w] = true
			}
		}
	}

	connect(root)
	return cyclic
}

// View computes all derived sets for module
func (e *Engine) View(module string) View {
	return View{
		Module:     module,
		Direct:     e.Direct(module),
		Indirect:   e.Indirect(module),
		Dependents: e.Dependents(module),
		Circular:   e.Circular(module),
		Depth:      e.Depth(module),
	}
}

// DetectCircularDependencies walks the graph from module and returns the
// path of the first cycle found, or nil if the reachable graph is acyclic.
func (e *Engine) DetectCircularDependencies(module string) ([]string, error) {
	path := make([]string, 0)
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var cycle []string
	var hasCycle func(string) bool
	hasCycle = func(key string) bool {
		visited[key] = true
		recStack[key] = true
		path = append(path, key)

		for _, dep := range e.Direct(key) {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				// Close the loop from where dep first appears on the path
				for i, p := range path {
					if p == dep {
						cycle = append(append([]string{}, path[i:]...), dep)
						break
					}
				}
				return true
			}
		}

		recStack[key] = false
		path = path[:len(path)-1]
		return false
	}

	if hasCycle(module) {
		return cycle, fmt.Errorf("circular dependency detected: %v", cycle)
	}
	return nil, nil
}

func dependentsOf(module string, records map[string]storage.Record) []string {
	result := make([]string, 0)
	for name, rec := range records {
		if contains(rec.Dependencies, module) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
