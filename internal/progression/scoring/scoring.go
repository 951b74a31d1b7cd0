package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression/records"
	"github.com/tmduggan/gordon/internal/timeutil"
)

const (
	// BodyweightLoadKg stands in for the load of a set logged without weight.
	BodyweightLoadKg = 20.0
	// VolumeUnit is the training volume (kg x reps) that doubles the volume factor.
	VolumeUnit = 1000.0
	// DurationUnit is the cardio duration, in minutes, worth one duration factor.
	DurationUnit = 10.0

	ProgressionLookbackDays = 30
	MinProgression          = 0.9
	MaxProgression          = 1.5
	FirstAttemptBonus       = 1.1
)

var categoryBase = map[string]float64{
	"strength":     10,
	"powerlifting": 12,
	"cardio":       8,
	"plyometrics":  9,
	"stretching":   5,
}

const defaultCategoryBase = 7

// Score returns the XP of a single workout. It only depends on its
// arguments: history entries at or after the workout's timestamp are
// ignored and the reference time is the workout's own timestamp.
func Score(workout gymlog.LogEntry, history []gymlog.LogEntry, meta gymlog.ExerciseMeta, profile gymlog.Profile) int {
	factor := effortFactor(workout, meta)
	if factor <= 0 {
		return 0
	}

	score := Base(meta) * factor *
		progressionAdjustment(workout, history, meta) *
		BalanceBonus(profile.MuscleScores[meta.NormalizedTarget()])

	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	return int(math.Round(score))
}

// Base combines the category base with the difficulty multiplier.
func Base(meta gymlog.ExerciseMeta) float64 {
	base, ok := categoryBase[strings.ToLower(meta.Category)]
	if !ok {
		base = defaultCategoryBase
	}
	return base * DifficultyMultiplier(meta.Difficulty)
}

func DifficultyMultiplier(difficulty string) float64 {
	switch strings.ToLower(difficulty) {
	case "intermediate":
		return 1.25
	case "advanced", "expert":
		return 1.5
	default:
		return 1.0
	}
}

// BalanceBonus rewards training a muscle that lags behind in the profile's
// normalized muscle scores.
func BalanceBonus(normalized float64) float64 {
	switch {
	case normalized < 0.25:
		return 1.15
	case normalized < 0.5:
		return 1.05
	default:
		return 1.0
	}
}

func effortFactor(workout gymlog.LogEntry, meta gymlog.ExerciseMeta) float64 {
	if meta.IsCardio() || len(workout.Sets) == 0 {
		if workout.Duration <= 0 {
			return 0
		}
		return workout.Duration / DurationUnit
	}

	volume := Volume(workout.Sets)
	if volume <= 0 {
		return 0
	}
	return 1 + math.Log2(1+volume/VolumeUnit)
}

// Volume sums weight x reps over the sets, counting bodyweight sets at BodyweightLoadKg.
func Volume(sets []gymlog.Set) float64 {
	var volume float64
	for _, s := range sets {
		if s.Reps <= 0 {
			continue
		}
		load := s.Weight
		if load <= 0 {
			load = BodyweightLoadKg
		}
		volume += load * float64(s.Reps)
	}
	return volume
}

// progressionAdjustment compares the workout's performance with the best
// attempt at the same exercise in the preceding lookback window.
func progressionAdjustment(workout gymlog.LogEntry, history []gymlog.LogEntry, meta gymlog.ExerciseMeta) float64 {
	at, ok := timeutil.Normalize(workout.Timestamp)
	if !ok {
		return 1.0
	}

	current, ok := records.Candidate(workout, meta)
	if !ok {
		return 1.0
	}

	from := at.AddDate(0, 0, -ProgressionLookbackDays)
	var previousBest float64
	seen := false
	for _, h := range history {
		if h.ExerciseID != workout.ExerciseID || (h.ID != "" && h.ID == workout.ID) {
			continue
		}
		ts, ok := timeutil.Normalize(h.Timestamp)
		if !ok || !ts.Before(at) || ts.Before(from) {
			continue
		}
		c, ok := records.Candidate(h, meta)
		if !ok || c.Type != current.Type {
			continue
		}
		seen = true
		previousBest = math.Max(previousBest, c.Value)
	}

	if !seen {
		if hasEarlierAttempt(workout, history, at) {
			return 1.0
		}
		return FirstAttemptBonus
	}
	if previousBest <= 0 {
		return MaxProgression
	}
	return clamp(current.Value/previousBest, MinProgression, MaxProgression)
}

func hasEarlierAttempt(workout gymlog.LogEntry, history []gymlog.LogEntry, at time.Time) bool {
	for _, h := range history {
		if h.ExerciseID != workout.ExerciseID || (h.ID != "" && h.ID == workout.ID) {
			continue
		}
		if ts, ok := timeutil.Normalize(h.Timestamp); ok && ts.Before(at) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
