package gymlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CategoryStrength = "strength"
	CategoryCardio   = "cardio"
)

type ExerciseMeta struct {
	ID               string     `json:"id"`
	Target           string     `json:"target"`
	SecondaryMuscles MuscleList `json:"secondaryMuscles"`
	Equipment        string     `json:"equipment"`
	Difficulty       string     `json:"difficulty"`
	Category         string     `json:"category"`
}

func (m ExerciseMeta) NormalizedTarget() string {
	return NormalizeMuscle(m.Target)
}

func (m ExerciseMeta) IsCardio() bool {
	return strings.EqualFold(m.Category, CategoryCardio)
}

// MuscleList holds case-normalized muscle names. It decodes from either a
// JSON array or a single delimited string, and is never nil after decoding.
type MuscleList []string

func (ml *MuscleList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ml = MuscleList{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("secondary muscles string: %w", err)
		}
		*ml = ParseMuscles(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("secondary muscles list: %w", err)
		}
		*ml = NormalizeMuscles(list)
	default:
		return fmt.Errorf("secondary muscles: unexpected json %q", data)
	}
	return nil
}

func NormalizeMuscle(muscle string) string {
	return strings.ToLower(strings.TrimSpace(muscle))
}

// ParseMuscles splits a delimited muscle string (comma, semicolon or pipe).
func ParseMuscles(s string) MuscleList {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	return NormalizeMuscles(parts)
}

// NormalizeMuscles lowercases and trims each name and drops blanks. Order and
// repeats are kept, every listed entry is attributed.
func NormalizeMuscles(muscles []string) MuscleList {
	out := make(MuscleList, 0, len(muscles))
	for _, m := range muscles {
		if m = NormalizeMuscle(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
