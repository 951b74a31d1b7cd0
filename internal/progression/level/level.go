package level

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tmduggan/gordon/internal/timeutil"
)

var (
	ErrLevelCapExceeded = errors.New("level cap exceeded")
	ErrInvalidCurve     = errors.New("invalid level curve")
)

const (
	DefaultBaseXP             = 1000
	DefaultGrowthRate         = 1.15
	DefaultDecayGraceDays     = 30
	DefaultDecayPerDay        = 0.01
	DefaultMaxDecayMultiplier = 2.0
	DefaultMaxLevel           = 1000
)

var DefaultTitles = map[int]string{
	1:   "Novice",
	5:   "Apprentice",
	10:  "Athlete",
	15:  "Contender",
	20:  "Veteran",
	30:  "Elite",
	40:  "Champion",
	50:  "Legend",
	75:  "Mythic",
	100: "Immortal",
}

type Info struct {
	Level          int     `json:"level"`
	CurrentLevelXP int64   `json:"currentLevelXP"`
	NextLevelXP    int64   `json:"nextLevelXP"`
	Progress       float64 `json:"progress"`
	XPToNext       int64   `json:"xpToNext"`
	Title          string  `json:"levelTitle"`
}

// Curve describes the exponential XP threshold curve and its account-age decay.
type Curve struct {
	BaseXP             float64
	GrowthRate         float64
	DecayGraceDays     int
	DecayPerDay        float64
	MaxDecayMultiplier float64
	MaxLevel           int
	Titles             map[int]string

	titleKeys []int
}

func DefaultCurve() *Curve {
	c, _ := NewCurve(Curve{
		BaseXP:             DefaultBaseXP,
		GrowthRate:         DefaultGrowthRate,
		DecayGraceDays:     DefaultDecayGraceDays,
		DecayPerDay:        DefaultDecayPerDay,
		MaxDecayMultiplier: DefaultMaxDecayMultiplier,
		MaxLevel:           DefaultMaxLevel,
		Titles:             DefaultTitles,
	})
	return c
}

func NewCurve(params Curve) (*Curve, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c := params
	c.titleKeys = make([]int, 0, len(c.Titles))
	for lvl := range c.Titles {
		c.titleKeys = append(c.titleKeys, lvl)
	}
	sort.Ints(c.titleKeys)

	return &c, nil
}

func (c Curve) Validate() error {
	switch {
	case c.BaseXP <= 0:
		return fmt.Errorf("%w: base xp must be positive, got %v", ErrInvalidCurve, c.BaseXP)
	case c.GrowthRate <= 1:
		return fmt.Errorf("%w: growth rate must be above 1, got %v", ErrInvalidCurve, c.GrowthRate)
	case c.MaxLevel < 2:
		return fmt.Errorf("%w: max level must be at least 2, got %d", ErrInvalidCurve, c.MaxLevel)
	case c.DecayPerDay < 0 || c.DecayGraceDays < 0:
		return fmt.Errorf("%w: decay must not be negative", ErrInvalidCurve)
	case c.MaxDecayMultiplier < 1:
		return fmt.Errorf("%w: max decay multiplier must be at least 1, got %v", ErrInvalidCurve, c.MaxDecayMultiplier)
	}
	return nil
}

// DecayMultiplier raises level-up cost as the account ages.
func (c *Curve) DecayMultiplier(accountCreatedAt, now time.Time) float64 {
	days := timeutil.DaysSince(accountCreatedAt, now)
	if days < c.DecayGraceDays {
		return 1.0
	}
	return math.Min(1+c.DecayPerDay*float64(days-c.DecayGraceDays), c.MaxDecayMultiplier)
}

// XPForLevel returns the total XP needed to reach level. Values beyond the
// int64 range saturate at math.MaxInt64.
func (c *Curve) XPForLevel(level int, accountCreatedAt, now time.Time) int64 {
	return c.xpForLevel(level, c.DecayMultiplier(accountCreatedAt, now))
}

func (c *Curve) xpForLevel(level int, decay float64) int64 {
	if level <= 1 {
		return 0
	}
	xp := math.Round(c.BaseXP * math.Pow(c.GrowthRate, float64(level-1)) * decay)
	if xp >= math.MaxInt64 || math.IsInf(xp, 1) {
		return math.MaxInt64
	}
	return int64(xp)
}

// FromXP finds the highest level whose threshold does not exceed totalXP.
// Negative XP is treated as zero.
func (c *Curve) FromXP(totalXP int64, accountCreatedAt, now time.Time) (Info, error) {
	if totalXP < 0 {
		totalXP = 0
	}

	decay := c.DecayMultiplier(accountCreatedAt, now)
	lvl := 1
	for c.xpForLevel(lvl+1, decay) <= totalXP {
		lvl++
		if lvl >= c.MaxLevel {
			return Info{}, fmt.Errorf("%w: %d xp reaches level %d", ErrLevelCapExceeded, totalXP, c.MaxLevel)
		}
	}

	current := c.xpForLevel(lvl, decay)
	next := c.xpForLevel(lvl+1, decay)

	var progress float64
	if span := next - current; span > 0 {
		progress = 100 * float64(totalXP-current) / float64(span)
	}

	return Info{
		Level:          lvl,
		CurrentLevelXP: current,
		NextLevelXP:    next,
		Progress:       progress,
		XPToNext:       next - totalXP,
		Title:          c.Title(lvl),
	}, nil
}

// Title returns the milestone title for the nearest lower-or-equal level.
func (c *Curve) Title(level int) string {
	keys := c.titleKeys
	if keys == nil && len(c.Titles) > 0 {
		keys = make([]int, 0, len(c.Titles))
		for lvl := range c.Titles {
			keys = append(keys, lvl)
		}
		sort.Ints(keys)
	}

	i := sort.SearchInts(keys, level+1) - 1
	if i < 0 {
		return fmt.Sprintf("Level %d", level)
	}
	return c.Titles[keys[i]]
}
