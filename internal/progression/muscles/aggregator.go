package muscles

import (
	"math"

	"github.com/tmduggan/gordon/internal/gymlog"
)

const (
	// SecondaryOverlapWeight applies to a secondary muscle that is also the
	// primary target of some exercise in the library.
	SecondaryOverlapWeight = 0.5
	SecondaryWeight        = 1.0
)

type Result struct {
	Scores     map[string]float64 `json:"scores"`
	MaxScore   float64            `json:"maxScore"`
	Normalized map[string]float64 `json:"normalizedScores"`
}

// Aggregate attributes each exercise log's score to the muscles it trains
// and normalizes the totals against the highest one. Logs whose exercise is
// not in the library are skipped.
func Aggregate(logs []gymlog.LogEntry, library gymlog.Library) Result {
	totals := make(map[string]float64)

	for _, l := range logs {
		if !l.IsExercise() || library == nil {
			continue
		}
		meta, ok := library.Lookup(l.ExerciseID)
		if !ok {
			continue
		}

		score := float64(l.XP())
		target := meta.NormalizedTarget()
		if target != "" {
			totals[target] += score
		}

		for _, m := range gymlog.NormalizeMuscles(meta.SecondaryMuscles) {
			weight := SecondaryWeight
			if library.IsTarget(m) {
				weight = SecondaryOverlapWeight
			}
			totals[m] += score * weight
		}
	}

	maxScore := 1.0
	for _, total := range totals {
		maxScore = math.Max(maxScore, total)
	}

	normalized := make(map[string]float64, len(totals))
	for m, total := range totals {
		if total == 0 {
			continue
		}
		normalized[m] = total / maxScore
	}

	return Result{
		Scores:     totals,
		MaxScore:   maxScore,
		Normalized: normalized,
	}
}
