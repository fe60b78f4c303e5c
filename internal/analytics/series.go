package analytics

import (
	"time"

	"streakly/internal/models"
)

// NoData marks a chart day without a journal entry. Scores are 1..5, so it
// never collides with a real value.
const NoData = 0

const (
	WeekDays     = 7
	TimelineDays = 30
)

// MoodPoint is one day's sentiment score.
type MoodPoint struct {
	Date  string
	Score int
}

// ChartPoint is one labelled day of the weekly chart; Value is NoData when absent.
type ChartPoint struct {
	Label string `json:"label"`
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// WeeklySeries is the 7-day chart ending on the window end.
type WeeklySeries struct {
	Points []ChartPoint `json:"points"`
	// Average is nil when no day in the window has a score.
	Average *float64 `json:"average"`
}

// TimelinePoint is one day of the timeline; Value is nil when the day has no entry.
type TimelinePoint struct {
	Date  string `json:"date"`
	Value *int   `json:"value"`
}

// MoodPoints projects stored mood records into aggregator input.
func MoodPoints(records []models.MoodRecord) []MoodPoint {
	out := make([]MoodPoint, len(records))
	for i, r := range records {
		out[i] = MoodPoint{Date: string(r.Date), Score: r.Score}
	}
	return out
}

// BuildWeeklySeries returns exactly seven points ending on windowEnd.
func BuildWeeklySeries(records []MoodPoint, windowEnd time.Time) (WeeklySeries, error) {
	scores, err := indexScores(records)
	if err != nil {
		return WeeklySeries{}, err
	}

	last := dayOf(windowEnd)
	series := WeeklySeries{Points: make([]ChartPoint, 0, WeekDays)}
	sum, n := 0, 0
	for d := last - WeekDays + 1; d <= last; d++ {
		t := d.time()
		v, ok := scores[d]
		if !ok {
			v = NoData
		}
		series.Points = append(series.Points, ChartPoint{
			Label: t.Weekday().String()[:3],
			Date:  t.Format(models.DateLayout),
			Value: v,
		})
		if v != NoData {
			sum += v
			n++
		}
	}
	if n > 0 {
		avg := float64(sum) / float64(n)
		series.Average = &avg
	}
	return series, nil
}

// BuildTimelineSeries returns one point per day of [windowStart, windowEnd]
// in ascending order; days without a record have a nil Value.
func BuildTimelineSeries(records []MoodPoint, windowStart, windowEnd time.Time) ([]TimelinePoint, error) {
	first, last := dayOf(windowStart), dayOf(windowEnd)
	if last < first {
		return nil, ErrInvalidWindow
	}
	scores, err := indexScores(records)
	if err != nil {
		return nil, err
	}

	out := make([]TimelinePoint, 0, last-first+1)
	for d := first; d <= last; d++ {
		p := TimelinePoint{Date: d.time().Format(models.DateLayout)}
		if v, ok := scores[d]; ok {
			p.Value = &v
		}
		out = append(out, p)
	}
	return out, nil
}

// indexScores builds the day lookup; later records win over earlier ones.
func indexScores(records []MoodPoint) (map[day]int, error) {
	scores := make(map[day]int, len(records))
	for _, r := range records {
		d, err := parseDay(r.Date)
		if err != nil {
			return nil, err
		}
		scores[d] = r.Score
	}
	return scores, nil
}
