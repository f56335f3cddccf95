package quality

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		complexity float64
		deps       int
		want       Metrics
	}{
		{
			name:       "no dependencies default complexity",
			complexity: 0.5,
			deps:       0,
			want: Metrics{
				Cohesion:        0.9,
				Coupling:        0.1,
				Complexity:      0.5,
				Maintainability: 0.75,
				Testability:     0.725,
			},
		},
		{
			name:       "many dependencies clamp",
			complexity: 1,
			deps:       30,
			want: Metrics{
				Cohesion:        0,
				Coupling:        1,
				Complexity:      1,
				Maintainability: 0.7,
				Testability:     0.7,
			},
		},
		{
			name:       "out of range complexity is clamped",
			complexity: 3,
			deps:       2,
			want: Metrics{
				Cohesion:        0.8,
				Coupling:        0.3,
				Complexity:      1,
				Maintainability: 0.7,
				Testability:     0.7,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.complexity, tt.deps)
			assert.InDelta(t, tt.want.Cohesion, got.Cohesion, 1e-9)
			assert.InDelta(t, tt.want.Coupling, got.Coupling, 1e-9)
			assert.InDelta(t, tt.want.Complexity, got.Complexity, 1e-9)
			assert.InDelta(t, tt.want.Maintainability, got.Maintainability, 1e-9)
			assert.InDelta(t, tt.want.Testability, got.Testability, 1e-9)
			assert.InDelta(t, OverallScore(got), got.OverallScore, 1e-12)
		})
	}
}

func TestOverallScore_KnownValue(t *testing.T) {
	m := Compute(0.5, 0)
	// 0.25*0.9 + 0.25*0.9 + 0.15*0.5 + 0.20*0.75 + 0.15*0.725
	assert.InDelta(t, 0.78375, m.OverallScore, 1e-9)
}

func TestOverallScore_StaysInUnitInterval(t *testing.T) {
	steps := []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1}
	for _, coh := range steps {
		for _, cou := range steps {
			for _, cx := range steps {
				for _, mt := range steps {
					for _, ts := range steps {
						score := OverallScore(Metrics{
							Cohesion:        coh,
							Coupling:        cou,
							Complexity:      cx,
							Maintainability: mt,
							Testability:     ts,
						})
						require.GreaterOrEqual(t, score, 0.0)
						require.LessOrEqual(t, score, 1.0+1e-12)
					}
				}
			}
		}
	}

	assert.InDelta(t, 1.0, OverallScore(Metrics{Cohesion: 1, Maintainability: 1, Testability: 1}), 1e-12)
	assert.InDelta(t, 0.0, OverallScore(Metrics{Coupling: 1, Complexity: 1}), 1e-12)
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name      string
		metrics   Metrics
		wantTypes []string
	}{
		{
			name:      "healthy module",
			metrics:   Metrics{Cohesion: 0.9, Coupling: 0.1, Complexity: 0.2, Maintainability: 0.8},
			wantTypes: []string{},
		},
		{
			name:      "coupling only",
			metrics:   Metrics{Cohesion: 0.9, Coupling: 0.6, Complexity: 0.2, Maintainability: 0.8},
			wantTypes: []string{"coupling"},
		},
		{
			name:      "all rules truncated in evaluation order",
			metrics:   Metrics{Cohesion: 0.1, Coupling: 0.9, Complexity: 0.9, Maintainability: 0.1},
			wantTypes: []string{"cohesion", "coupling", "complexity"},
		},
		{
			name:      "truncation ignores severity",
			metrics:   Metrics{Cohesion: 0.1, Coupling: 0.1, Complexity: 0.9, Maintainability: 0.1},
			wantTypes: []string{"cohesion", "complexity", "maintainability"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.metrics)
			types := make([]string, 0, len(got))
			for _, s := range got {
				types = append(types, s.Type)
				assert.NotEmpty(t, s.Description)
				assert.NotEmpty(t, s.SuggestedAction)
			}
			assert.Equal(t, tt.wantTypes, types)
		})
	}
}

func TestSuggest_NeverExceedsTriggeredOrCap(t *testing.T) {
	steps := []float64{0, 0.55, 0.65, 0.75, 1}
	for _, coh := range steps {
		for _, cou := range steps {
			for _, cx := range steps {
				for _, mt := range steps {
					m := Metrics{Cohesion: coh, Coupling: cou, Complexity: cx, Maintainability: mt}
					triggered := 0
					for _, r := range rules {
						if r.triggered(m) {
							triggered++
						}
					}
					got := Suggest(m)
					require.LessOrEqual(t, len(got), MaxSuggestions)
					require.LessOrEqual(t, len(got), triggered)
				}
			}
		}
	}
}

func TestSuggest_Severities(t *testing.T) {
	got := Suggest(Metrics{Cohesion: 0.1, Coupling: 0.9, Complexity: 0.9})
	require.Len(t, got, 3)
	assert.Equal(t, SeverityMedium, got[0].Severity)
	assert.Equal(t, SeverityHigh, got[1].Severity)
	assert.Equal(t, SeverityHigh, got[2].Severity)
}

func TestComplexity(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     float64
	}{
		{"missing", map[string]interface{}{}, DefaultComplexity},
		{"nil metadata", nil, DefaultComplexity},
		{"float", map[string]interface{}{"complexity": 0.8}, 0.8},
		{"int", map[string]interface{}{"complexity": 1}, 1},
		{"json number", map[string]interface{}{"complexity": json.Number("0.3")}, 0.3},
		{"numeric string", map[string]interface{}{"complexity": " 0.4 "}, 0.4},
		{"above range", map[string]interface{}{"complexity": 7.0}, 1},
		{"below range", map[string]interface{}{"complexity": -2}, 0},
		{"garbage string", map[string]interface{}{"complexity": "high"}, DefaultComplexity},
		{"wrong type", map[string]interface{}{"complexity": []int{1}}, DefaultComplexity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Complexity(tt.metadata), 1e-9)
		})
	}
}
