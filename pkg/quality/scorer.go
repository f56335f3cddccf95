package quality

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultComplexity is used when a module carries no usable complexity value
const DefaultComplexity = 0.5

// MaxSuggestions caps the number of suggestions returned by Suggest
const MaxSuggestions = 3

// Weights of the overall score. They sum to 1.
const (
	weightCohesion        = 0.25
	weightCoupling        = 0.25
	weightComplexity      = 0.15
	weightMaintainability = 0.20
	weightTestability     = 0.15
)

// Severity of a suggestion
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Metrics are the quality measurements of one module
type Metrics struct {
	Cohesion        float64 `json:"cohesion"`
	Coupling        float64 `json:"coupling"`
	Complexity      float64 `json:"complexity"`
	Maintainability float64 `json:"maintainability"`
	Testability     float64 `json:"testability"`
	OverallScore    float64 `json:"overall_score"`
}

// Suggestion is one optimization recommendation
type Suggestion struct {
	Type            string   `json:"type"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	SuggestedAction string   `json:"suggested_action"`
}

// Compute derives metrics from complexity and the number of direct dependencies
func Compute(complexity float64, directDeps int) Metrics {
	complexity = clamp(complexity)
	n := float64(directDeps)

	m := Metrics{
		Cohesion:        clamp(0.9 - 0.05*n),
		Coupling:        clamp(0.1 + 0.1*n),
		Complexity:      complexity,
		Maintainability: clamp(0.8 - 0.1*complexity),
		Testability:     clamp(0.75 - 0.05*complexity),
	}
	m.OverallScore = OverallScore(m)
	return m
}

// OverallScore is the weighted combination of the individual metrics
func OverallScore(m Metrics) float64 {
	return weightCohesion*m.Cohesion +
		weightCoupling*(1-m.Coupling) +
		weightComplexity*(1-m.Complexity) +
		weightMaintainability*m.Maintainability +
		weightTestability*m.Testability
}

type rule struct {
	triggered  func(Metrics) bool
	suggestion Suggestion
}

// Evaluation order is significant: Suggest truncates in this order.
var rules = []rule{
	{
		triggered: func(m Metrics) bool { return m.Cohesion < 0.7 },
		suggestion: Suggestion{
			Type:            "cohesion",
			Severity:        SeverityMedium,
			Description:     "Module responsibilities are spread across too many dependencies",
			SuggestedAction: "Split the module along its main responsibilities",
		},
	},
	{
		triggered: func(m Metrics) bool { return m.Coupling > 0.5 },
		suggestion: Suggestion{
			Type:            "coupling",
			Severity:        SeverityHigh,
			Description:     "Module depends on too many other modules",
			SuggestedAction: "Introduce interfaces or merge closely related dependencies",
		},
	},
	{
		triggered: func(m Metrics) bool { return m.Complexity > 0.7 },
		suggestion: Suggestion{
			Type:            "complexity",
			Severity:        SeverityHigh,
			Description:     "Module complexity is high",
			SuggestedAction: "Refactor large functions and simplify control flow",
		},
	},
	{
		triggered: func(m Metrics) bool { return m.Maintainability < 0.6 },
		suggestion: Suggestion{
			Type:            "maintainability",
			Severity:        SeverityMedium,
			Description:     "Module is hard to maintain",
			SuggestedAction: "Improve documentation and reduce duplicated logic",
		},
	},
}

// Suggest evaluates the rules in order and returns at most MaxSuggestions
// of the triggered ones, in evaluation order.
func Suggest(m Metrics) []Suggestion {
	result := make([]Suggestion, 0, MaxSuggestions)
	for _, r := range rules {
		if r.triggered(m) {
			result = append(result, r.suggestion)
		}
	}
	if len(result) > MaxSuggestions {
		result = result[:MaxSuggestions]
	}
	return result
}

// Complexity extracts metadata["complexity"] as a value in [0, 1]. Missing
// or non-numeric values yield DefaultComplexity.
func Complexity(metadata map[string]interface{}) float64 {
	raw, ok := metadata["complexity"]
	if !ok {
		return DefaultComplexity
	}

	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case int32:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return DefaultComplexity
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return DefaultComplexity
		}
		v = f
	default:
		return DefaultComplexity
	}

	if math.IsNaN(v) {
		return DefaultComplexity
	}
	return clamp(v)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
