package analytics

import (
	"errors"
	"testing"
	"time"
)

func TestBuildWeeklySeriesAlwaysSevenPoints(t *testing.T) {
	var many []MoodPoint
	for i := 0; i < 10; i++ {
		many = append(many, MoodPoint{Date: daysAgo(i), Score: 1 + i%5})
	}
	inputs := map[string][]MoodPoint{
		"none":  nil,
		"three": {{daysAgo(0), 2}, {daysAgo(3), 4}, {daysAgo(6), 5}},
		"ten":   many,
	}

	for name, records := range inputs {
		t.Run(name, func(t *testing.T) {
			series, err := BuildWeeklySeries(records, today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(series.Points) != WeekDays {
				t.Fatalf("expected %d points, got %d", WeekDays, len(series.Points))
			}
			if series.Points[0].Date != daysAgo(6) || series.Points[6].Date != daysAgo(0) {
				t.Errorf("window should run %s..%s, got %s..%s",
					daysAgo(6), daysAgo(0), series.Points[0].Date, series.Points[6].Date)
			}
			for _, p := range series.Points {
				if p.Label == "" {
					t.Errorf("point %s has no label", p.Date)
				}
			}
		})
	}
}

func TestBuildWeeklySeriesValuesAndAverage(t *testing.T) {
	records := []MoodPoint{
		{daysAgo(0), 2},
		{daysAgo(3), 4},
		{daysAgo(9), 1}, // outside the window
	}
	series, err := BuildWeeklySeries(records, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{NoData, NoData, NoData, 4, NoData, NoData, 2}
	for i, p := range series.Points {
		if p.Value != want[i] {
			t.Errorf("point %d (%s): expected %d, got %d", i, p.Date, want[i], p.Value)
		}
	}
	if series.Points[6].Label != "Sun" {
		t.Errorf("expected 2026-10-18 to be labelled Sun, got %q", series.Points[6].Label)
	}
	if series.Average == nil || *series.Average != 3 {
		t.Errorf("expected average 3, got %v", series.Average)
	}
}

func TestBuildWeeklySeriesNoDataAverage(t *testing.T) {
	series, err := BuildWeeklySeries(nil, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Average != nil {
		t.Errorf("expected nil average for an empty week, got %v", *series.Average)
	}
	for _, p := range series.Points {
		if p.Value != NoData {
			t.Errorf("expected sentinel on %s, got %d", p.Date, p.Value)
		}
	}
}

func TestBuildWeeklySeriesLastWriteWins(t *testing.T) {
	series, err := BuildWeeklySeries([]MoodPoint{{daysAgo(0), 5}, {daysAgo(0), 1}}, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := series.Points[6].Value; got != 1 {
		t.Errorf("expected last record to win with 1, got %d", got)
	}
}

func TestBuildTimelineSeriesSparse(t *testing.T) {
	start, end := Window(today, TimelineDays)
	records := []MoodPoint{{daysAgo(2), 5}, {daysAgo(20), 1}}

	timeline, err := BuildTimelineSeries(records, start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(timeline) != TimelineDays {
		t.Fatalf("expected %d entries, got %d", TimelineDays, len(timeline))
	}

	absent := 0
	for i, p := range timeline {
		if i > 0 && p.Date <= timeline[i-1].Date {
			t.Fatalf("timeline not ascending at %d: %s after %s", i, p.Date, timeline[i-1].Date)
		}
		if p.Value == nil {
			absent++
			continue
		}
		switch p.Date {
		case daysAgo(2):
			if *p.Value != 5 {
				t.Errorf("expected 5 on %s, got %d", p.Date, *p.Value)
			}
		case daysAgo(20):
			if *p.Value != 1 {
				t.Errorf("expected 1 on %s, got %d", p.Date, *p.Value)
			}
		default:
			t.Errorf("unexpected value on %s", p.Date)
		}
	}
	if absent != 28 {
		t.Errorf("expected 28 absent days, got %d", absent)
	}
}

func TestBuildTimelineSeriesInvalidInput(t *testing.T) {
	if _, err := BuildTimelineSeries(nil, today, today.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
	start, end := Window(today, 7)
	if _, err := BuildTimelineSeries([]MoodPoint{{"2026-13-01", 3}}, start, end); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestWindow(t *testing.T) {
	start, end := Window(time.Date(2026, 1, 3, 23, 59, 0, 0, time.UTC), 7)
	if got := start.Format("2006-01-02"); got != "2025-12-28" {
		t.Errorf("expected start 2025-12-28, got %s", got)
	}
	if got := end.Format("2006-01-02"); got != "2026-01-03" {
		t.Errorf("expected end 2026-01-03, got %s", got)
	}
}
