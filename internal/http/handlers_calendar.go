package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dreams/internal/core"
	applog "dreams/internal/log"
)

type calendarPage struct {
	Title      string
	Year       int
	Month      int
	PrevYear   int
	PrevMonth  int
	NextYear   int
	NextMonth  int
	Filter     string
	Emotions   []string
	Weekdays   []string
	Weeks      [][]core.Cell
	DreamCount int
	Skipped    int
	LoadError  string
}

// DateOf formats a day of the displayed month for the "new dream" link.
func (p calendarPage) DateOf(day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, day)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	params := ParseMonthParams(r.URL.Query(), now)
	filter := sanitizeInput(r.URL.Query().Get("emotion"))

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	status := http.StatusOK
	loadError := ""
	records, err := s.store.ListMonth(ctx, params.Year, params.Month)
	if err != nil {
		status = statusFor(err)
		loadError = "Could not load the dreams of this month. Please try again."
		s.events.LogError(r.Context(), "Month listing failed", err, applog.ComponentCalendar, applog.OpList,
			applog.NewFields().WithMonth(params.Year, params.Month))
		records = nil
	}

	grid, err := core.BuildGrid(params.Year, params.Month-1, records, filter, now)
	if err != nil {
		BadRequestError("Invalid month").Write(w)
		return
	}
	for _, skipped := range grid.Skipped {
		s.events.LogSkippedRecord(r.Context(), params.Year, params.Month, skipped)
		if s.metrics != nil {
			s.metrics.SkippedRecords.Inc()
		}
	}

	prevYear, prevMonth := core.AddMonths(params.Year, time.Month(params.Month), -1)
	nextYear, nextMonth := core.AddMonths(params.Year, time.Month(params.Month), 1)

	s.render(w, r, status, "calendar.html", calendarPage{
		Title:      fmt.Sprintf("%s %d", grid.Month, grid.Year),
		Year:       params.Year,
		Month:      params.Month,
		PrevYear:   prevYear,
		PrevMonth:  int(prevMonth),
		NextYear:   nextYear,
		NextMonth:  int(nextMonth),
		Filter:     filter,
		Emotions:   grid.Emotions,
		Weekdays:   weekdayLabels,
		Weeks:      grid.Weeks(),
		DreamCount: grid.DreamCount,
		Skipped:    len(grid.Skipped),
		LoadError:  loadError,
	})
}
