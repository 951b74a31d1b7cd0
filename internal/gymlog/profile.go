package gymlog

import "time"

type RecordType string

const (
	RecordOneRepMax RecordType = "1rm"
	RecordReps      RecordType = "reps"
	RecordDuration  RecordType = "duration"
	RecordPace      RecordType = "pace"
)

type PersonalBest struct {
	Type  RecordType `json:"type"`
	Value float64    `json:"value"`
	Date  time.Time  `json:"date"`
}

// WindowBests holds an exercise's best record per rolling window. A nil
// window means no live record.
type WindowBests struct {
	Current *PersonalBest `json:"current,omitempty"`
	Quarter *PersonalBest `json:"quarter,omitempty"`
	Year    *PersonalBest `json:"year,omitempty"`
	AllTime *PersonalBest `json:"allTime,omitempty"`
}

// Profile holds the engine-owned aggregates of a single user.
type Profile struct {
	UserID           string                 `json:"userId"`
	AccountCreatedAt time.Time              `json:"accountCreatedAt"`
	TotalXP          int64                  `json:"totalXP"`
	MuscleScores     map[string]float64     `json:"muscleScores"`
	PersonalBests    map[string]WindowBests `json:"personalBests"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// NewProfile returns the lazily created default profile.
func NewProfile(userID string, createdAt time.Time) Profile {
	return Profile{
		UserID:           userID,
		AccountCreatedAt: createdAt,
		MuscleScores:     map[string]float64{},
		PersonalBests:    map[string]WindowBests{},
	}
}

// Clone returns a copy that shares no maps or records with p.
func (p Profile) Clone() Profile {
	out := p
	out.MuscleScores = make(map[string]float64, len(p.MuscleScores))
	for k, v := range p.MuscleScores {
		out.MuscleScores[k] = v
	}
	out.PersonalBests = make(map[string]WindowBests, len(p.PersonalBests))
	for k, v := range p.PersonalBests {
		out.PersonalBests[k] = v.Clone()
	}
	return out
}

func (wb WindowBests) Clone() WindowBests {
	return WindowBests{
		Current: wb.Current.clone(),
		Quarter: wb.Quarter.clone(),
		Year:    wb.Year.clone(),
		AllTime: wb.AllTime.clone(),
	}
}

func (pb *PersonalBest) clone() *PersonalBest {
	if pb == nil {
		return nil
	}
	c := *pb
	return &c
}
