package core

import (
	"errors"
	"sort"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func dream(id int64, date string, emotions ...string) DreamRecord {
	r := DreamRecord{ID: id, Name: "dream", Emotions: emotions}
	if date != "" {
		r.DreamDate = strPtr(date)
	}
	return r
}

var fixedNow = time.Date(2024, time.February, 14, 9, 30, 0, 0, time.UTC)

func TestBuildGridCellCount(t *testing.T) {
	for year := 1999; year <= 2026; year++ {
		for m := 0; m < 12; m++ {
			g, err := BuildGrid(year, m, nil, "", fixedNow)
			if err != nil {
				t.Fatalf("%d-%d: unexpected error %v", year, m, err)
			}
			lead := FirstWeekday(year, time.Month(m+1))
			days := DaysIn(year, time.Month(m+1))
			if len(g.Cells) != lead+days {
				t.Fatalf("%d-%d: got %d cells, want %d", year, m, len(g.Cells), lead+days)
			}
			for i := 0; i < lead; i++ {
				if !g.Cells[i].Empty() {
					t.Fatalf("%d-%d: cell %d should be padding", year, m, i)
				}
			}
			for i := lead; i < len(g.Cells); i++ {
				if g.Cells[i].Day != i-lead+1 {
					t.Fatalf("%d-%d: cell %d has day %d", year, m, i, g.Cells[i].Day)
				}
			}
		}
	}
}

func TestBuildGridFebruaryLength(t *testing.T) {
	cases := []struct {
		year int
		days int
	}{
		{2000, 29},
		{2004, 29},
		{2024, 29},
		{1900, 28},
		{2001, 28},
		{2023, 28},
	}
	for _, tc := range cases {
		g, err := BuildGrid(tc.year, 1, nil, "", fixedNow)
		if err != nil {
			t.Fatalf("%d: %v", tc.year, err)
		}
		days := 0
		for _, c := range g.Cells {
			if !c.Empty() {
				days++
			}
		}
		if days != tc.days {
			t.Fatalf("February %d: got %d day cells, want %d", tc.year, days, tc.days)
		}
	}
}

func TestBuildGridFirstWeekday(t *testing.T) {
	// 1 February 2024 was a Thursday.
	g, err := BuildGrid(2024, 1, nil, "", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Cells) != 4+29 {
		t.Fatalf("got %d cells", len(g.Cells))
	}
	if g.Cells[4].Day != 1 {
		t.Fatalf("day 1 should sit at index 4, got day %d", g.Cells[4].Day)
	}
	// September 2024 starts on a Sunday: no padding.
	g, _ = BuildGrid(2024, 8, nil, "", fixedNow)
	if g.Cells[0].Day != 1 {
		t.Fatalf("September 2024 should start without padding")
	}
}

func TestBuildGridPlacesDream(t *testing.T) {
	records := []DreamRecord{dream(5, "2024-02-10", "fear")}
	g, err := BuildGrid(2024, 1, records, "", fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	cell := cellFor(t, g, 10)
	if !cell.HasDream || cell.DreamID != 5 {
		t.Fatalf("day 10 = %+v, want dream 5", cell)
	}
	if len(g.Emotions) != 1 || g.Emotions[0] != "fear" {
		t.Fatalf("emotions = %v", g.Emotions)
	}
	if g.DreamCount != 1 {
		t.Fatalf("dream count = %d", g.DreamCount)
	}
	for _, c := range g.Cells {
		if c.Day != 10 && c.HasDream {
			t.Fatalf("unexpected dream on day %d", c.Day)
		}
	}
}

func TestBuildGridSameDayLastWins(t *testing.T) {
	records := []DreamRecord{
		dream(1, "2024-02-10"),
		dream(2, "2024-02-10"),
	}
	g, _ := BuildGrid(2024, 1, records, "", fixedNow)
	if id := cellFor(t, g, 10).DreamID; id != 2 {
		t.Fatalf("day 10 links dream %d, want 2", id)
	}

	records[0], records[1] = records[1], records[0]
	g, _ = BuildGrid(2024, 1, records, "", fixedNow)
	if id := cellFor(t, g, 10).DreamID; id != 1 {
		t.Fatalf("day 10 links dream %d, want 1", id)
	}
	if g.DreamCount != 1 {
		t.Fatalf("dream count = %d, want 1", g.DreamCount)
	}
}

func TestBuildGridToday(t *testing.T) {
	g, _ := BuildGrid(2024, 1, nil, "", fixedNow)
	todays := 0
	for _, c := range g.Cells {
		if c.IsToday {
			todays++
			if c.Day != 14 {
				t.Fatalf("today flagged on day %d", c.Day)
			}
		}
	}
	if todays != 1 {
		t.Fatalf("got %d today cells", todays)
	}

	// Same month number, different year.
	g, _ = BuildGrid(2023, 1, nil, "", fixedNow)
	for _, c := range g.Cells {
		if c.IsToday {
			t.Fatalf("no cell should be today in February 2023")
		}
	}
	// Same year, different month.
	g, _ = BuildGrid(2024, 2, nil, "", fixedNow)
	for _, c := range g.Cells {
		if c.IsToday {
			t.Fatalf("no cell should be today in March 2024")
		}
	}
}

func TestBuildGridFilter(t *testing.T) {
	records := []DreamRecord{
		dream(1, "2024-02-01", "joy", "calm"),
		dream(2, "2024-02-02", "fear"),
		dream(3, "2024-02-03", "Joy"),
		dream(4, "2024-02-04", "joy"),
	}
	unfiltered, _ := BuildGrid(2024, 1, records, "", fixedNow)
	filtered, _ := BuildGrid(2024, 1, records, "joy", fixedNow)

	byID := map[int64]DreamRecord{}
	for _, r := range records {
		byID[r.ID] = r
	}
	linked := 0
	for _, c := range filtered.Cells {
		if !c.HasDream {
			continue
		}
		linked++
		if !byID[c.DreamID].HasEmotion("joy") {
			t.Fatalf("cell %d links dream %d without joy", c.Day, c.DreamID)
		}
	}
	if linked != 2 {
		t.Fatalf("filtered grid links %d dreams, want 2", linked)
	}
	if len(filtered.Emotions) != len(unfiltered.Emotions) {
		t.Fatalf("filter changed the emotion index: %v vs %v", filtered.Emotions, unfiltered.Emotions)
	}
	for i := range filtered.Emotions {
		if filtered.Emotions[i] != unfiltered.Emotions[i] {
			t.Fatalf("filter changed the emotion index: %v vs %v", filtered.Emotions, unfiltered.Emotions)
		}
	}
	want := []string{"Joy", "calm", "fear", "joy"}
	for i, e := range want {
		if unfiltered.Emotions[i] != e {
			t.Fatalf("emotions = %v, want %v", unfiltered.Emotions, want)
		}
	}
}

func TestBuildGridSkipsBadDates(t *testing.T) {
	records := []DreamRecord{
		dream(1, "", "lost"),
		dream(2, "10/02/2024", "odd"),
		dream(3, "2024-02-30"),
		dream(4, "2024-02-11", "fine"),
	}
	g, err := BuildGrid(2024, 1, records, "", fixedNow)
	if err != nil {
		t.Fatalf("bad dates must not fail the grid: %v", err)
	}
	if len(g.Skipped) != 3 {
		t.Fatalf("skipped = %d, want 3", len(g.Skipped))
	}
	if g.Skipped[0].DreamID != 1 || g.Skipped[1].DreamID != 2 || g.Skipped[2].DreamID != 3 {
		t.Fatalf("skipped ids out of order: %v", g.Skipped)
	}
	if !cellFor(t, g, 11).HasDream {
		t.Fatalf("valid record should still be placed")
	}
	want := []string{"fine", "lost", "odd"}
	if len(g.Emotions) != len(want) {
		t.Fatalf("emotions = %v, want %v", g.Emotions, want)
	}
	for i := range want {
		if g.Emotions[i] != want[i] {
			t.Fatalf("emotions = %v, want %v", g.Emotions, want)
		}
	}
}

func TestBuildGridIgnoresOtherMonths(t *testing.T) {
	records := []DreamRecord{
		dream(1, "2024-03-10", "spring"),
		dream(2, "2023-02-10"),
	}
	g, _ := BuildGrid(2024, 1, records, "", fixedNow)
	for _, c := range g.Cells {
		if c.HasDream {
			t.Fatalf("dream from another month placed on day %d", c.Day)
		}
	}
	if len(g.Skipped) != 0 {
		t.Fatalf("out-of-month records are not date errors")
	}
	if len(g.Emotions) != 1 || g.Emotions[0] != "spring" {
		t.Fatalf("emotions = %v", g.Emotions)
	}
}

func TestBuildGridInvalidMonth(t *testing.T) {
	for _, m := range []int{-1, 12, 40} {
		if _, err := BuildGrid(2024, m, nil, "", fixedNow); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: got %v, want ErrInvalidMonth", m, err)
		}
	}
}

func TestEmotionIndexSortedUnique(t *testing.T) {
	records := []DreamRecord{
		dream(1, "2024-01-01", "b", "a", "b"),
		dream(2, "2024-01-02", "c", "a"),
		dream(3, "2024-01-03"),
	}
	got := EmotionIndex(records)
	if !sort.StringsAreSorted(got) {
		t.Fatalf("not sorted: %v", got)
	}
	seen := map[string]bool{}
	for _, e := range got {
		if seen[e] {
			t.Fatalf("duplicate %q in %v", e, got)
		}
		seen[e] = true
	}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	if empty := EmotionIndex(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("empty input should give an empty, non-nil index")
	}
}

func TestWeeks(t *testing.T) {
	g, _ := BuildGrid(2024, 1, nil, "", fixedNow)
	weeks := g.Weeks()
	if len(weeks) != 5 {
		t.Fatalf("February 2024 spans %d rows, want 5", len(weeks))
	}
	last := weeks[len(weeks)-1]
	if last[4].Day != 29 || !last[5].Empty() || !last[6].Empty() {
		t.Fatalf("last row = %+v", last)
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		year      int
		month     time.Month
		delta     int
		wantYear  int
		wantMonth time.Month
	}{
		{2024, time.January, -1, 2023, time.December},
		{2024, time.December, 1, 2025, time.January},
		{2024, time.May, 0, 2024, time.May},
		{2024, time.March, 14, 2025, time.May},
	}
	for _, tc := range cases {
		y, m := AddMonths(tc.year, tc.month, tc.delta)
		if y != tc.wantYear || m != tc.wantMonth {
			t.Fatalf("AddMonths(%d, %v, %d) = %d %v", tc.year, tc.month, tc.delta, y, m)
		}
	}
}

func cellFor(t *testing.T, g MonthGrid, day int) Cell {
	t.Helper()
	for _, c := range g.Cells {
		if c.Day == day {
			return c
		}
	}
	t.Fatalf("no cell for day %d", day)
	return Cell{}
}
