package analyzer

import (
	"time"

	"github.com/platinummonkey/nexus/pkg/dependencies"
	"github.com/platinummonkey/nexus/pkg/quality"
	"github.com/platinummonkey/nexus/pkg/storage"
)

// AnalysisType selects which parts of an analysis are returned
type AnalysisType string

const (
	TypeDependencies AnalysisType = "dependencies"
	TypeQuality      AnalysisType = "quality"
	TypeFull         AnalysisType = "full"
)

// ParseAnalysisType validates the free-form "type" payload field. A missing
// or empty value selects TypeDependencies.
func ParseAnalysisType(v interface{}) (AnalysisType, error) {
	if v == nil {
		return TypeDependencies, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("type", "must be a string")
	}

	switch t := AnalysisType(s); t {
	case "":
		return TypeDependencies, nil
	case TypeDependencies, TypeQuality, TypeFull:
		return t, nil
	default:
		return "", invalid("type", `must be one of "dependencies", "quality", "full"`)
	}
}

// Alert types published on the alert topic
const (
	AlertProcessingError    = "processing_error"
	AlertCircularDependency = "circular_dependency"
)

// QualityReport is the quality part of an analysis
type QualityReport struct {
	Metrics     quality.Metrics      `json:"metrics"`
	Suggestions []quality.Suggestion `json:"suggestions"`
}

// analysis is the full computed picture of one module, as cached
type analysis struct {
	view    dependencies.View
	record  storage.Record
	quality QualityReport
}

// Result is an analysis shaped for one request
type Result struct {
	Module       string
	Type         AnalysisType
	View         dependencies.View
	Metadata     map[string]interface{}
	LastUpdated  time.Time
	Quality      *QualityReport
	Cached       bool
	withMetadata bool
}

func newResult(a analysis, t AnalysisType, includeMetadata, cached bool) Result {
	r := Result{
		Module:       a.view.Module,
		Type:         t,
		View:         a.view,
		LastUpdated:  a.record.LastUpdated,
		Cached:       cached,
		withMetadata: includeMetadata,
	}
	if includeMetadata {
		r.Metadata = copyMap(a.record.Metadata)
	}
	if t == TypeQuality || t == TypeFull {
		q := a.quality
		q.Suggestions = append([]quality.Suggestion{}, a.quality.Suggestions...)
		r.Quality = &q
	}
	return r
}

// Map renders the result as a reply payload. Keys depend on the analysis type.
func (r Result) Map() map[string]interface{} {
	out := map[string]interface{}{
		"module":        r.Module,
		"analysis_type": string(r.Type),
		"dependencies":  copyStrings(r.View.Direct),
		"cached":        r.Cached,
		"last_updated":  nil,
	}
	if !r.LastUpdated.IsZero() {
		out["last_updated"] = r.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	if r.withMetadata {
		out["metadata"] = copyMap(r.Metadata)
	}

	if r.Type == TypeDependencies || r.Type == TypeFull {
		out["indirect_dependencies"] = copyStrings(r.View.Indirect)
		out["dependents"] = copyStrings(r.View.Dependents)
		out["circular_dependencies"] = copyStrings(r.View.Circular)
		out["depth"] = r.View.Depth
	}

	if r.Quality != nil {
		suggestions := make([]interface{}, 0, len(r.Quality.Suggestions))
		for _, s := range r.Quality.Suggestions {
			suggestions = append(suggestions, map[string]interface{}{
				"type":             s.Type,
				"severity":         string(s.Severity),
				"description":      s.Description,
				"suggested_action": s.SuggestedAction,
			})
		}
		m := r.Quality.Metrics
		out["quality"] = map[string]interface{}{
			"metrics": map[string]interface{}{
				"cohesion":        m.Cohesion,
				"coupling":        m.Coupling,
				"complexity":      m.Complexity,
				"maintainability": m.Maintainability,
				"testability":     m.Testability,
				"overall_score":   m.OverallScore,
			},
			"suggestions": suggestions,
		}
	}
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
