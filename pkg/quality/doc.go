// Package quality computes module quality metrics and optimization suggestions.
//
// Metrics are derived from a module's complexity (supplied through its
// metadata, default 0.5) and its number of direct dependencies:
//
//	cohesion        = clamp(0.9 - 0.05*n)
//	coupling        = clamp(0.1 + 0.1*n)
//	maintainability = clamp(0.8 - 0.1*complexity)
//	testability     = clamp(0.75 - 0.05*complexity)
//
// The overall score is a weighted sum whose weights add up to 1, so it stays
// within [0, 1] whenever every input does.
//
//	m := quality.Compute(quality.Complexity(rec.Metadata), len(rec.Dependencies))
//	for _, s := range quality.Suggest(m) {
//		fmt.Printf("[%s] %s: %s\n", s.Severity, s.Type, s.SuggestedAction)
//	}
package quality
