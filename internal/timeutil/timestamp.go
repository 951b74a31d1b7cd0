package timeutil

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Epoch seconds outside year 1 to year 9999 are treated as malformed.
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

// EpochSeconds is the wrapper shape used by document stores for timestamps.
type EpochSeconds struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

func (e EpochSeconds) Time() time.Time {
	return time.Unix(e.Seconds, e.Nanoseconds)
}

func (e EpochSeconds) inRange() bool {
	return e.Seconds >= minEpochSeconds && e.Seconds <= maxEpochSeconds
}

func fromEpoch(e EpochSeconds) Timestamp {
	if !e.inRange() {
		return Timestamp{}
	}
	return NewTimestamp(e.Time())
}

// Timestamp is the canonical timestamp carried by log entries. It accepts
// both RFC 3339 strings and EpochSeconds wrappers when decoded from JSON.
// Input that cannot be interpreted leaves the timestamp invalid rather than
// failing the whole document.
type Timestamp struct {
	t     time.Time
	valid bool
}

func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{t: t, valid: true}
}

func (ts Timestamp) Time() time.Time {
	return ts.t
}

func (ts Timestamp) Valid() bool {
	return ts.valid
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.valid {
		return []byte("null"), nil
	}
	return json.Marshal(ts.t.Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if t, ok := parseString(s); ok {
			*ts = NewTimestamp(t)
		}
	case '{':
		var wrapper struct {
			Seconds      *int64 `json:"seconds"`
			Nanoseconds  int64  `json:"nanoseconds"`
			USeconds     *int64 `json:"_seconds"`
			UNanoseconds int64  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil
		}
		switch {
		case wrapper.Seconds != nil:
			*ts = fromEpoch(EpochSeconds{*wrapper.Seconds, wrapper.Nanoseconds})
		case wrapper.USeconds != nil:
			*ts = fromEpoch(EpochSeconds{*wrapper.USeconds, wrapper.UNanoseconds})
		}
	default:
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return nil
		}
		if secs < minEpochSeconds || secs > maxEpochSeconds {
			return nil
		}
		whole := math.Floor(secs)
		*ts = fromEpoch(EpochSeconds{int64(whole), int64((secs - whole) * 1e9)})
	}

	return nil
}

// Normalize converts any of the supported timestamp representations into
// a time.Time. The second return value is false if v is missing or malformed.
func Normalize(v any) (time.Time, bool) {
	var t time.Time
	switch ts := v.(type) {
	case time.Time:
		t = ts
	case *time.Time:
		if ts == nil {
			return time.Time{}, false
		}
		t = *ts
	case Timestamp:
		return ts.t, ts.valid
	case *Timestamp:
		if ts == nil {
			return time.Time{}, false
		}
		return ts.t, ts.valid
	case EpochSeconds:
		return fromEpoch(ts).normalized()
	case *EpochSeconds:
		if ts == nil {
			return time.Time{}, false
		}
		return fromEpoch(*ts).normalized()
	case int64:
		return fromEpoch(EpochSeconds{Seconds: ts}).normalized()
	case int:
		return fromEpoch(EpochSeconds{Seconds: int64(ts)}).normalized()
	case string:
		return parseString(ts)
	default:
		return time.Time{}, false
	}

	if t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func (ts Timestamp) normalized() (time.Time, bool) {
	return ts.t, ts.valid
}

func parseString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
