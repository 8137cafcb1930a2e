package grading

import (
	"math"
	"strings"
)

// competencyAliases maps frequent variants to a canonical competency name.
var competencyAliases = map[string]string{
	"calculations":  "calculation",
	"computation":   "calculation",
	"computations":  "calculation",
	"logic":         "reasoning",
	"logical":       "reasoning",
	"argumentation": "reasoning",
	"writing":       "expression",
	"spelling":      "expression",
	"knowledge":     "understanding",
	"comprehension": "understanding",
}

// MaxCompetencyLevel is the top of the 0-5 mastery scale.
const MaxCompetencyLevel = 5

// NormalizeCompetencyName lowercases, trims and collapses a competency name,
// then resolves known aliases.
func NormalizeCompetencyName(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	normalized = strings.Trim(normalized, ".:;,")
	if canonical, ok := competencyAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// NormalizeCompetencies canonicalizes names, clamps levels to [0, 5] and keeps
// the highest level when two names collapse together. Returns nil for no entries.
func NormalizeCompetencies(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for name, level := range in {
		key := NormalizeCompetencyName(name)
		if key == "" {
			continue
		}
		level = max(0, min(level, MaxCompetencyLevel))
		if prev, ok := out[key]; !ok || level > prev {
			out[key] = level
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ClampScore bounds a score to [0, maxScore] and rounds it to two decimals.
func ClampScore(score, maxScore float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > maxScore {
		score = maxScore
	}
	return math.Round(score*100) / 100
}
