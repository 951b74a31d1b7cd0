package gymlog

import (
	"github.com/tmduggan/gordon/internal/timeutil"
)

type Set struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// LogEntry is a single exercise or food log. Food logs carry no ExerciseID.
type LogEntry struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	ExerciseID string             `json:"exerciseId,omitempty"`
	Timestamp  timeutil.Timestamp `json:"timestamp"`
	Sets       []Set              `json:"sets,omitempty"`
	// Duration in minutes.
	Duration float64 `json:"duration,omitempty"`
	Score    int     `json:"score"`
}

func (l LogEntry) IsExercise() bool {
	return l.ExerciseID != ""
}

// XP returns the recorded score clamped at zero.
func (l LogEntry) XP() int64 {
	if l.Score < 0 {
		return 0
	}
	return int64(l.Score)
}
