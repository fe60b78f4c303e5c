package analytics

import (
	"slices"
	"time"
)

type StreakResult struct {
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
	CompletedDays int `json:"completed_days"`
}

// CalculateStreaks computes the current and best run of consecutive days in
// dates. The current streak is only alive when the latest date is today or
// yesterday; otherwise it is reported as 0 and only the best streak remains.
func CalculateStreaks(dates []string, today time.Time) (StreakResult, error) {
	if len(dates) == 0 {
		return StreakResult{}, nil
	}

	days := make([]day, 0, len(dates))
	for _, s := range dates {
		d, err := parseDay(s)
		if err != nil {
			return StreakResult{}, err
		}
		days = append(days, d)
	}
	slices.Sort(days)
	days = slices.Compact(days)

	run, best := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
	}

	res := StreakResult{BestStreak: best, CompletedDays: len(days)}
	if lag := dayOf(today) - days[len(days)-1]; lag == 0 || lag == 1 {
		res.CurrentStreak = run
	}
	return res, nil
}
