package streak

import (
	"time"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/timeutil"
)

type Info struct {
	DailyStreak  int `json:"dailyStreak"`
	WeeklyStreak int `json:"weeklyStreak"`
	DailyBonus   int `json:"dailyBonus"`
	WeeklyBonus  int `json:"weeklyBonus"`
}

type Threshold struct {
	Streak int
	Bonus  int
}

// Ordered by streak, ascending.
var (
	DailyBonuses = []Threshold{
		{Streak: 7, Bonus: 50},
		{Streak: 14, Bonus: 100},
		{Streak: 30, Bonus: 200},
		{Streak: 60, Bonus: 500},
		{Streak: 90, Bonus: 1000},
	}
	WeeklyBonuses = []Threshold{
		{Streak: 4, Bonus: 100},
		{Streak: 8, Bonus: 250},
		{Streak: 12, Bonus: 500},
	}
)

// BonusFor returns the bonus of the highest threshold not exceeding streak.
func BonusFor(streak int, table []Threshold) int {
	bonus := 0
	for _, th := range table {
		if th.Streak > streak {
			break
		}
		bonus = th.Bonus
	}
	return bonus
}

// FromLogs computes streaks over the logs' timestamps. Logs without a valid
// timestamp are ignored.
func FromLogs(logs []gymlog.LogEntry, now time.Time) Info {
	timestamps := make([]time.Time, 0, len(logs))
	for _, l := range logs {
		if ts, ok := timeutil.Normalize(l.Timestamp); ok {
			timestamps = append(timestamps, ts)
		}
	}
	return Compute(timestamps, now)
}

// Compute walks back from today, one day and one week at a time, counting
// consecutive buckets that hold at least one timestamp. Day and week
// boundaries are taken in now's location.
func Compute(timestamps []time.Time, now time.Time) Info {
	if len(timestamps) == 0 {
		return Info{}
	}

	loc := now.Location()
	days := make(map[time.Time]struct{}, len(timestamps))
	weeks := make(map[time.Time]struct{})
	for _, ts := range timestamps {
		local := ts.In(loc)
		days[timeutil.StartOfDay(local)] = struct{}{}
		weeks[timeutil.StartOfWeek(local)] = struct{}{}
	}

	daily := 0
	for day := timeutil.StartOfDay(now); daily < len(days); day = day.AddDate(0, 0, -1) {
		if _, ok := days[day]; !ok {
			break
		}
		daily++
	}

	weekly := 0
	for week := timeutil.StartOfWeek(now); weekly < len(weeks); week = timeutil.StartOfWeek(week.AddDate(0, 0, -7)) {
		if _, ok := weeks[week]; !ok {
			break
		}
		weekly++
	}

	return Info{
		DailyStreak:  daily,
		WeeklyStreak: weekly,
		DailyBonus:   BonusFor(daily, DailyBonuses),
		WeeklyBonus:  BonusFor(weekly, WeeklyBonuses),
	}
}
