package core

import (
	"sort"
	"time"
)

type (
	// Cell is one position of the month grid. Padding cells have Day == 0.
	Cell struct {
		Day      int
		IsToday  bool
		HasDream bool
		DreamID  int64
	}

	// MonthGrid is the calendar view of one month.
	MonthGrid struct {
		Year       int
		Month      time.Month
		Cells      []Cell
		Emotions   []string
		Skipped    []*DateParseError
		Filter     string
		DreamCount int
	}
)

// Empty reports whether the cell is leading padding.
func (c Cell) Empty() bool { return c.Day == 0 }

// Weeks splits the cells into rows of seven, padding the last row.
func (g MonthGrid) Weeks() [][]Cell {
	var weeks [][]Cell
	for start := 0; start < len(g.Cells); start += 7 {
		end := start + 7
		row := make([]Cell, 7)
		if end > len(g.Cells) {
			end = len(g.Cells)
		}
		copy(row, g.Cells[start:end])
		weeks = append(weeks, row)
	}
	return weeks
}

// BuildGrid lays out the month at monthIndex (0 = January) of year and maps records
// onto day cells. The emotion index always covers every record; emotionFilter, when
// not empty, only narrows which records are placed. When two records share a day the
// later one in records wins. Records whose date cannot be parsed are returned in
// Skipped instead of being placed.
func BuildGrid(year, monthIndex int, records []DreamRecord, emotionFilter string, now time.Time) (MonthGrid, error) {
	if monthIndex < 0 || monthIndex > 11 {
		return MonthGrid{}, ErrInvalidMonth
	}
	month := time.Month(monthIndex + 1)

	grid := MonthGrid{
		Year:     year,
		Month:    month,
		Emotions: EmotionIndex(records),
		Filter:   emotionFilter,
	}

	lead := FirstWeekday(year, month)
	days := DaysIn(year, month)
	grid.Cells = make([]Cell, lead+days)
	for day := 1; day <= days; day++ {
		grid.Cells[lead+day-1] = Cell{Day: day}
	}
	if now.Year() == year && now.Month() == month {
		grid.Cells[lead+now.Day()-1].IsToday = true
	}

	for _, r := range records {
		d, err := r.Date()
		if err != nil {
			if dpe, ok := err.(*DateParseError); ok {
				grid.Skipped = append(grid.Skipped, dpe)
			}
			continue
		}
		if emotionFilter != "" && !r.HasEmotion(emotionFilter) {
			continue
		}
		if d.Year() != year || d.Month() != month {
			continue
		}
		cell := &grid.Cells[lead+d.Day()-1]
		if !cell.HasDream {
			grid.DreamCount++
		}
		cell.HasDream = true
		cell.DreamID = r.ID
	}

	return grid, nil
}

// EmotionIndex returns every emotion tag across records, sorted and de-duplicated.
func EmotionIndex(records []DreamRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		for _, e := range r.Emotions {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

// FilterByEmotion keeps the records carrying emotion. An empty emotion keeps all.
func FilterByEmotion(records []DreamRecord, emotion string) []DreamRecord {
	if emotion == "" {
		return records
	}
	out := make([]DreamRecord, 0, len(records))
	for _, r := range records {
		if r.HasEmotion(emotion) {
			out = append(out, r)
		}
	}
	return out
}

// FirstWeekday is the weekday of day 1 of the month, 0 = Sunday.
func FirstWeekday(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	if month == time.February && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month-1]
}

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// AddMonths moves a (year, month) pair by delta months.
func AddMonths(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}
