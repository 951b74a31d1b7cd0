package records

import (
	"sort"
	"time"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/timeutil"
)

type Window string

const (
	WindowCurrent Window = "current"
	WindowQuarter Window = "quarter"
	WindowYear    Window = "year"
	WindowAllTime Window = "allTime"
)

var Windows = []Window{WindowCurrent, WindowQuarter, WindowYear, WindowAllTime}

// Start returns the earliest instant still inside the window. The all-time
// window has no start and reports ok=false.
func (w Window) Start(now time.Time) (start time.Time, ok bool) {
	switch w {
	case WindowCurrent:
		return timeutil.MonthsBefore(now, 1), true
	case WindowQuarter:
		return timeutil.MonthsBefore(now, 3), true
	case WindowYear:
		return timeutil.YearsBefore(now, 1), true
	default:
		return time.Time{}, false
	}
}

func (w Window) Contains(t, now time.Time) bool {
	start, bounded := w.Start(now)
	if !bounded {
		return true
	}
	return !t.Before(start)
}

// EstimateOneRepMax uses the Epley formula.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	return weight * (1 + float64(reps)/30)
}

// Candidate derives the record candidate of a single log. Weighted sets
// produce a 1rm, bodyweight-only sets produce a reps record and cardio or
// set-less logs produce a duration record.
func Candidate(l gymlog.LogEntry, meta gymlog.ExerciseMeta) (gymlog.PersonalBest, bool) {
	ts, ok := timeutil.Normalize(l.Timestamp)
	if !ok {
		return gymlog.PersonalBest{}, false
	}

	if meta.IsCardio() || len(l.Sets) == 0 {
		if l.Duration <= 0 {
			return gymlog.PersonalBest{}, false
		}
		return gymlog.PersonalBest{Type: gymlog.RecordDuration, Value: l.Duration, Date: ts}, true
	}

	var best1RM float64
	bestReps := 0
	for _, s := range l.Sets {
		if e := EstimateOneRepMax(s.Weight, s.Reps); e > best1RM {
			best1RM = e
		}
		if s.Weight <= 0 && s.Reps > bestReps {
			bestReps = s.Reps
		}
	}

	switch {
	case best1RM > 0:
		return gymlog.PersonalBest{Type: gymlog.RecordOneRepMax, Value: best1RM, Date: ts}, true
	case bestReps > 0:
		return gymlog.PersonalBest{Type: gymlog.RecordReps, Value: float64(bestReps), Date: ts}, true
	}
	return gymlog.PersonalBest{}, false
}

// MaxClockSkew is how far past now a candidate may be dated. Such candidates
// are recorded as of now; later ones are ignored.
const MaxClockSkew = 5 * time.Minute

// UpdateWindows applies a candidate to every window. Records that aged out
// of their window are dropped first, so a lower but current candidate can
// take their place. The all-time record never expires.
func UpdateWindows(bests gymlog.WindowBests, candidate gymlog.PersonalBest, now time.Time) gymlog.WindowBests {
	out := bests.Clone()
	future := candidate.Date.After(now.Add(MaxClockSkew))
	if candidate.Date.After(now) && !future {
		candidate.Date = now
	}
	for _, w := range Windows {
		slot := slotFor(&out, w)
		if *slot != nil && !w.Contains((*slot).Date, now) {
			*slot = nil
		}
		if future || !w.Contains(candidate.Date, now) {
			continue
		}
		if replaces(*slot, candidate) {
			c := candidate
			*slot = &c
		}
	}
	return out
}

func slotFor(wb *gymlog.WindowBests, w Window) **gymlog.PersonalBest {
	switch w {
	case WindowCurrent:
		return &wb.Current
	case WindowQuarter:
		return &wb.Quarter
	case WindowYear:
		return &wb.Year
	default:
		return &wb.AllTime
	}
}

// Record returns the window's record, or nil.
func Record(wb gymlog.WindowBests, w Window) *gymlog.PersonalBest {
	return *slotFor(&wb, w)
}

func replaces(record *gymlog.PersonalBest, candidate gymlog.PersonalBest) bool {
	if record == nil {
		return true
	}
	if record.Type != candidate.Type {
		return false
	}
	return candidate.Value > record.Value
}

// UpdatePersonalBests applies the log's candidate to the exercise's records
// and returns the updated profile. The input profile is not modified.
func UpdatePersonalBests(exerciseID string, workout gymlog.LogEntry, meta gymlog.ExerciseMeta, profile gymlog.Profile, now time.Time) gymlog.Profile {
	candidate, ok := Candidate(workout, meta)
	if !ok {
		return profile.Clone()
	}
	return UpdatePersonalBestsWith(exerciseID, candidate, profile, now)
}

// UpdatePersonalBestsWith applies a precomputed candidate, e.g. a pace.
func UpdatePersonalBestsWith(exerciseID string, candidate gymlog.PersonalBest, profile gymlog.Profile, now time.Time) gymlog.Profile {
	out := profile.Clone()
	out.PersonalBests[exerciseID] = UpdateWindows(out.PersonalBests[exerciseID], candidate, now)
	return out
}

// Replay rebuilds all records from the full history. Logs are applied in
// chronological order with ties broken by id.
func Replay(logs []gymlog.LogEntry, library gymlog.Library, now time.Time) map[string]gymlog.WindowBests {
	type dated struct {
		log gymlog.LogEntry
		ts  time.Time
	}

	ordered := make([]dated, 0, len(logs))
	for _, l := range logs {
		if !l.IsExercise() {
			continue
		}
		ts, ok := timeutil.Normalize(l.Timestamp)
		if !ok {
			continue
		}
		ordered = append(ordered, dated{log: l, ts: ts})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ts.Equal(ordered[j].ts) {
			return ordered[i].ts.Before(ordered[j].ts)
		}
		return ordered[i].log.ID < ordered[j].log.ID
	})

	bests := make(map[string]gymlog.WindowBests)
	if library == nil {
		return bests
	}
	for _, d := range ordered {
		meta, ok := library.Lookup(d.log.ExerciseID)
		if !ok {
			continue
		}
		candidate, ok := Candidate(d.log, meta)
		if !ok {
			continue
		}
		bests[d.log.ExerciseID] = UpdateWindows(bests[d.log.ExerciseID], candidate, now)
	}

	return bests
}
