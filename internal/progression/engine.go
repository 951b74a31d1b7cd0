package progression

import (
	"fmt"
	"time"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression/level"
	"github.com/tmduggan/gordon/internal/progression/muscles"
	"github.com/tmduggan/gordon/internal/progression/records"
	"github.com/tmduggan/gordon/internal/progression/scoring"
	"github.com/tmduggan/gordon/internal/progression/streak"
	"github.com/tmduggan/gordon/internal/timeutil"
)

const (
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonUnknownExercise  = "unknown_exercise"
)

// Diagnostic describes a log that was left out of some computations.
type Diagnostic struct {
	LogID  string `json:"logId"`
	Reason string `json:"reason"`
}

// Snapshot is the result of a full recomputation.
type Snapshot struct {
	Profile     gymlog.Profile `json:"profile"`
	Level       level.Info     `json:"level"`
	Streaks     streak.Info    `json:"streaks"`
	Muscles     muscles.Result `json:"muscles"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	ComputedAt  time.Time      `json:"computedAt"`
}

// Engine runs the progression reducers. It holds configuration only and is
// safe for concurrent use.
type Engine struct {
	curve *level.Curve
}

func NewEngine(curve *level.Curve) *Engine {
	if curve == nil {
		curve = level.DefaultCurve()
	}
	return &Engine{
		curve: curve,
	}
}

func (e *Engine) Curve() *level.Curve {
	return e.curve
}

// Recompute replays the complete log history on top of the profile's
// identity fields. Total XP, muscle scores and personal bests are rebuilt
// from scratch; the input profile is not modified.
func (e *Engine) Recompute(profile gymlog.Profile, logs []gymlog.LogEntry, library gymlog.Library, now time.Time) (Snapshot, error) {
	var (
		totalXP     int64
		diagnostics []Diagnostic
	)
	for _, l := range logs {
		totalXP += l.XP()
		if _, ok := timeutil.Normalize(l.Timestamp); !ok {
			diagnostics = append(diagnostics, Diagnostic{LogID: l.ID, Reason: ReasonInvalidTimestamp})
		}
		if l.IsExercise() {
			if library == nil {
				diagnostics = append(diagnostics, Diagnostic{LogID: l.ID, Reason: ReasonUnknownExercise})
			} else if _, ok := library.Lookup(l.ExerciseID); !ok {
				diagnostics = append(diagnostics, Diagnostic{LogID: l.ID, Reason: ReasonUnknownExercise})
			}
		}
	}

	levelInfo, err := e.curve.FromXP(totalXP, profile.AccountCreatedAt, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("level from xp: %w", err)
	}

	muscleResult := muscles.Aggregate(logs, library)

	updated := gymlog.NewProfile(profile.UserID, profile.AccountCreatedAt)
	updated.TotalXP = totalXP
	updated.MuscleScores = muscleResult.Normalized
	updated.PersonalBests = records.Replay(logs, library, now)
	updated.UpdatedAt = now

	return Snapshot{
		Profile:     updated,
		Level:       levelInfo,
		Streaks:     streak.FromLogs(logs, now),
		Muscles:     muscleResult,
		Diagnostics: diagnostics,
		ComputedAt:  now,
	}, nil
}

// Level computes the level info of an arbitrary XP amount.
func (e *Engine) Level(totalXP int64, accountCreatedAt, now time.Time) (level.Info, error) {
	return e.curve.FromXP(totalXP, accountCreatedAt, now)
}

// ScoreWorkout scores a workout against the user's history and profile.
func (e *Engine) ScoreWorkout(workout gymlog.LogEntry, history []gymlog.LogEntry, meta gymlog.ExerciseMeta, profile gymlog.Profile) int {
	return scoring.Score(workout, history, meta, profile)
}

// RemoveLog subtracts a deleted log's recorded score from the total XP.
func (e *Engine) RemoveLog(profile gymlog.Profile, l gymlog.LogEntry) gymlog.Profile {
	out := profile.Clone()
	out.TotalXP -= l.XP()
	if out.TotalXP < 0 {
		out.TotalXP = 0
	}
	return out
}
