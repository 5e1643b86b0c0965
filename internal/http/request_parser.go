// This file implements utilities for parsing request data: month navigation
// parameters, dream forms, path ids and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dreams/internal/core"
)

const maxJSONBodyBytes = 1 << 20

// MonthParams holds a 1-based year/month pair taken from a query string.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, defaulting to
// the month of now. Unparseable or out-of-range values fall back to the default.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 && y <= 9999 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	return params
}

// ParseRequiredMonth reads mandatory year and month query parameters for the API.
// Missing or non-numeric values are reported as errors; the month range is left
// to the store so the caller can answer 400.
func ParseRequiredMonth(query url.Values) (year, month int, err error) {
	year, err = requiredInt(query, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err = requiredInt(query, "month")
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func requiredInt(query url.Values, name string) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return 0, fmt.Errorf("query parameter %q is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return n, nil
}

// ParseDreamForm binds a submitted dream form to FormState. Emotions may arrive as
// one comma separated field or as repeated fields.
func ParseDreamForm(form url.Values) core.FormState {
	f := core.FormState{
		Name:              sanitizeInput(form.Get("name")),
		Description:       sanitizeInput(form.Get("description")),
		DreamDate:         strings.TrimSpace(form.Get("dream_date")),
		Lucidity:          formBool(form.Get("lucidity")),
		Recurring:         formBool(form.Get("recurring")),
		SleepDuration:     form.Get("sleep_duration"),
		RoomTemp:          form.Get("room_temp"),
		StressBeforeSleep: form.Get("stress_before_sleep"),
		Emotions:          []string{},
	}
	for _, v := range form["emotions"] {
		f.Emotions = append(f.Emotions, core.ParseEmotionList(sanitizeInput(v))...)
	}
	return f
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

// ParseDreamID reads the {id} path value.
func ParseDreamID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dream id %q", raw)
	}
	return id, nil
}

// DecodeJSONBody reads a bounded JSON body into dst. Unknown fields are ignored.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("malformed JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
