package dependencies

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/platinummonkey/nexus/pkg/storage"
)

// newTestEngine registers each module with its dependency list
func newTestEngine(graph map[string][]string) *Engine {
	store := storage.NewMemoryStore()
	for module, deps := range graph {
		store.UpdateDependencies(module, deps, nil)
	}
	return NewEngine(store)
}

func TestEngine_Direct(t *testing.T) {
	engine := newTestEngine(map[string][]string{
		"user": {"common", "auth"},
	})

	if got := engine.Direct("user"); !reflect.DeepEqual(got, []string{"common", "auth"}) {
		t.Errorf("Expected [common auth], got %v", got)
	}

	got := engine.Direct("unknown")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list for unknown module, got %#v", got)
	}
}

func TestEngine_Indirect(t *testing.T) {
	tests := []struct {
		name   string
		graph  map[string][]string
		module string
		want   []string
	}{
		{
			name: "one hop only",
			graph: map[string][]string{
				"user":   {"common"},
				"common": {"base"},
				"base":   {"root"},
			},
			module: "user",
			want:   []string{"base"},
		},
		{
			name: "deduplicated in first-seen order",
			graph: map[string][]string{
				"app": {"a", "b"},
				"a":   {"x", "y"},
				"b":   {"y", "z"},
			},
			module: "app",
			want:   []string{"x", "y", "z"},
		},
		{
			name: "excludes self and direct members",
			graph: map[string][]string{
				"app": {"a", "b"},
				"a":   {"app", "b", "c"},
			},
			module: "app",
			want:   []string{"c"},
		},
		{
			name: "dangling dependency is a leaf",
			graph: map[string][]string{
				"app": {"ghost"},
			},
			module: "app",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.graph)
			got := engine.Indirect(tt.module)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Indirect(%s) = %v, want %v", tt.module, got, tt.want)
			}
		})
	}
}

func TestEngine_Dependents(t *testing.T) {
	engine := newTestEngine(map[string][]string{
		"common": {},
		"user":   {"common"},
		"order":  {"common", "user"},
		"audit":  {"order"},
	})

	got := engine.Dependents("common")
	want := []string{"order", "user"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependents(common) = %v, want %v", got, want)
	}

	if got := engine.Dependents("audit"); len(got) != 0 {
		t.Errorf("Expected no dependents for audit, got %v", got)
	}

	// Modules that are only referenced still have dependents
	if got := engine.Dependents("ghost"); len(got) != 0 {
		t.Errorf("Expected no dependents for ghost, got %v", got)
	}
}

func TestEngine_Circular(t *testing.T) {
	tests := []struct {
		name   string
		graph  map[string][]string
		module string
		want   []string
	}{
		{
			name: "no circular dependency",
			graph: map[string][]string{
				"user":   {"common"},
				"common": {"base"},
			},
			module: "user",
			want:   []string{},
		},
		{
			name: "mutual dependency",
			graph: map[string][]string{
				"a": {"b", "c"},
				"b": {"a"},
				"c": {},
			},
			module: "a",
			want:   []string{"b"},
		},
		{
			name: "self dependency",
			graph: map[string][]string{
				"a": {"a"},
			},
			module: "a",
			want:   []string{"a"},
		},
		{
			name: "longer cycles are not direct circular",
			graph: map[string][]string{
				"a": {"b"},
				"b": {"c"},
				"c": {"a"},
			},
			module: "a",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.graph)
			got := engine.Circular(tt.module)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Circular(%s) = %v, want %v", tt.module, got, tt.want)
			}
		})
	}
}

func TestEngine_CircularIsSymmetric(t *testing.T) {
	engine := newTestEngine(map[string][]string{
		"a": {"b", "x"},
		"b": {"y", "a"},
		"x": {"a"},
		"y": {},
	})

	for _, a := range []string{"a", "b", "x", "y"} {
		for _, b := range engine.Direct(a) {
			if !contains(engine.Direct(b), a) {
				continue
			}
			if !contains(engine.Circular(b), a) {
				t.Errorf("Expected %s in Circular(%s)", a, b)
			}
			if !contains(engine.Circular(a), b) {
				t.Errorf("Expected %s in Circular(%s)", b, a)
			}
		}
	}
}

func TestEngine_Depth(t *testing.T) {
	tests := []struct {
		name   string
		graph  map[string][]string
		module string
		want   int
	}{
		{
			name:   "no dependencies",
			graph:  map[string][]string{"a": {}},
			module: "a",
			want:   0,
		},
		{
			name:   "unknown module",
			graph:  map[string][]string{},
			module: "a",
			want:   0,
		},
		{
			name:   "dangling dependency",
			graph:  map[string][]string{"a": {"ghost"}},
			module: "a",
			want:   1,
		},
		{
			name: "chain",
			graph: map[string][]string{
				"user":   {"common"},
				"common": {"base"},
				"base":   {},
			},
			module: "user",
			want:   2,
		},
		{
			name: "longest branch wins",
			graph: map[string][]string{
				"app": {"short", "long"},
				"long": {"l1"},
				"l1":   {"l2"},
			},
			module: "app",
			want:   3,
		},
		{
			name:   "self dependency terminates",
			graph:  map[string][]string{"a": {"a"}},
			module: "a",
			want:   1,
		},
		{
			name: "mutual cycle terminates",
			graph: map[string][]string{
				"a": {"b"},
				"b": {"a"},
			},
			module: "a",
			want:   2,
		},
		{
			name: "three cycle terminates",
			graph: map[string][]string{
				"a": {"b"},
				"b": {"c"},
				"c": {"a"},
			},
			module: "a",
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.graph)
			if got := engine.Depth(tt.module); got != tt.want {
				t.Errorf("Depth(%s) = %d, want %d", tt.module, got, tt.want)
			}
		})
	}
}

func TestEngine_DepthDiamondChain(t *testing.T) {
	const layers = 26
	graph := make(map[string][]string)
	for i := 0; i < layers; i++ {
		next := fmt.Sprintf("l%d", i+1)
		x, y := fmt.Sprintf("x%d", i+1), fmt.Sprintf("y%d", i+1)
		graph[fmt.Sprintf("l%d", i)] = []string{x, y}
		graph[x] = []string{next}
		graph[y] = []string{next}
	}
	engine := newTestEngine(graph)

	start := time.Now()
	got := engine.Depth("l0")
	elapsed := time.Since(start)

	if got != 2*layers {
		t.Errorf("Depth(l0) = %d, want %d", got, 2*layers)
	}
	if elapsed > time.Second {
		t.Errorf("Depth(l0) took %v on a %d-layer diamond chain", elapsed, layers)
	}
}

// pathDepth is the unmemoized path-guarded recursion Depth must agree with
func pathDepth(graph map[string][]string, module string, onPath map[string]bool) int {
	if len(graph[module]) == 0 || onPath[module] {
		return 0
	}
	onPath[module] = true
	defer delete(onPath, module)

	deepest := 0
	for _, d := range graph[module] {
		if n := pathDepth(graph, d, onPath); n > deepest {
			deepest = n
		}
	}
	return 1 + deepest
}

func TestEngine_DepthMatchesPathWalk(t *testing.T) {
	graphs := map[string]map[string][]string{
		"diamond into cycle": {
			"top":   {"left", "right"},
			"left":  {"c1"},
			"right": {"c2"},
			"c1":    {"c2", "tail"},
			"c2":    {"c3"},
			"c3":    {"c1"},
			"tail":  {"end"},
		},
		"cycle exits into shared dag": {
			"a":      {"b", "shared"},
			"b":      {"a", "shared"},
			"shared": {"s1", "s2"},
			"s1":     {"leaf"},
			"s2":     {"s1"},
		},
		"self loops and nested cycles": {
			"r": {"r", "p", "q"},
			"p": {"q", "p"},
			"q": {"p", "z"},
			"z": {"z"},
		},
		"two cycles joined by a bridge": {
			"a1":     {"a2"},
			"a2":     {"a1", "bridge"},
			"bridge": {"b1"},
			"b1":     {"b2", "b3"},
			"b2":     {"b3"},
			"b3":     {"b1"},
		},
	}

	for name, graph := range graphs {
		t.Run(name, func(t *testing.T) {
			engine := newTestEngine(graph)
			for module := range graph {
				want := pathDepth(graph, module, make(map[string]bool))
				if got := engine.Depth(module); got != want {
					t.Errorf("Depth(%s) = %d, want %d", module, got, want)
				}
			}
		})
	}
}

func TestEngine_View(t *testing.T) {
	engine := newTestEngine(map[string][]string{
		"m1": {"d1", "d2"},
		"d1": {"m1", "x"},
		"d2": {"x"},
		"up": {"m1"},
	})

	view := engine.View("m1")

	if view.Module != "m1" {
		t.Errorf("Expected module m1, got %s", view.Module)
	}
	if !reflect.DeepEqual(view.Direct, []string{"d1", "d2"}) {
		t.Errorf("Unexpected direct: %v", view.Direct)
	}
	if !reflect.DeepEqual(view.Indirect, []string{"x"}) {
		t.Errorf("Unexpected indirect: %v", view.Indirect)
	}
	if !reflect.DeepEqual(view.Dependents, []string{"d1", "up"}) {
		t.Errorf("Unexpected dependents: %v", view.Dependents)
	}
	if !reflect.DeepEqual(view.Circular, []string{"d1"}) {
		t.Errorf("Unexpected circular: %v", view.Circular)
	}
	if view.Depth != 2 {
		t.Errorf("Expected depth 2, got %d", view.Depth)
	}
}

func TestEngine_DetectCircularDependencies(t *testing.T) {
	tests := []struct {
		name      string
		graph     map[string][]string
		module    string
		wantCycle []string
	}{
		{
			name: "no circular dependency",
			graph: map[string][]string{
				"user":   {"common"},
				"common": {"base"},
			},
			module:    "user",
			wantCycle: nil,
		},
		{
			name: "direct circular dependency",
			graph: map[string][]string{
				"a": {"b"},
				"b": {"a"},
			},
			module:    "a",
			wantCycle: []string{"a", "b", "a"},
		},
		{
			name: "indirect circular dependency below the start",
			graph: map[string][]string{
				"root": {"a"},
				"a":    {"b"},
				"b":    {"c"},
				"c":    {"a"},
			},
			module:    "root",
			wantCycle: []string{"a", "b", "c", "a"},
		},
		{
			name:      "self dependency",
			graph:     map[string][]string{"a": {"a"}},
			module:    "a",
			wantCycle: []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.graph)
			cycle, err := engine.DetectCircularDependencies(tt.module)

			if tt.wantCycle == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				if cycle != nil {
					t.Errorf("Expected no cycle, got %v", cycle)
				}
				return
			}

			if err == nil {
				t.Error("Expected circular dependency error, got nil")
			}
			if !reflect.DeepEqual(cycle, tt.wantCycle) {
				t.Errorf("Cycle = %v, want %v", cycle, tt.wantCycle)
			}
		})
	}
}
