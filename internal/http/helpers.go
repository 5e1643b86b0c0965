package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dreams/internal/core"
)

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// calendarURL links to the calendar month, keeping the emotion filter when set.
func calendarURL(year, month int, emotion string) string {
	u := fmt.Sprintf("/?year=%d&month=%d", year, month)
	if emotion != "" {
		u += "&emotion=" + url.QueryEscape(emotion)
	}
	return u
}

// monthOf returns the calendar month of a record, or the month of fallback when
// the date is unusable.
func monthOf(r core.DreamRecord, fallback time.Time) (int, int) {
	if d, err := r.Date(); err == nil {
		return d.Year(), int(d.Month())
	}
	return fallback.Year(), int(fallback.Month())
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
