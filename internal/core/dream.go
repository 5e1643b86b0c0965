package core

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the wire format of dream_date.
const DateLayout = "2006-01-02"

type (
	// DreamRecord is a dream as exchanged with the store.
	DreamRecord struct {
		ID                int64    `json:"id,omitempty"`
		Name              string   `json:"name"`
		Description       string   `json:"description"`
		DreamDate         *string  `json:"dream_date"`
		Lucidity          bool     `json:"lucidity"`
		SleepDuration     *float64 `json:"sleep_duration"`
		Recurring         bool     `json:"recurring"`
		RoomTemp          *float64 `json:"room_temp"`
		StressBeforeSleep *float64 `json:"stress_before_sleep"`
		Emotions          []string `json:"emotions"`
	}

	// DreamPayload is the body of create and update requests. It never carries an id.
	DreamPayload struct {
		Name              string   `json:"name"`
		Description       string   `json:"description"`
		DreamDate         *string  `json:"dream_date"`
		Lucidity          bool     `json:"lucidity"`
		SleepDuration     *float64 `json:"sleep_duration"`
		Recurring         bool     `json:"recurring"`
		RoomTemp          *float64 `json:"room_temp"`
		StressBeforeSleep *float64 `json:"stress_before_sleep"`
		Emotions          []string `json:"emotions"`
	}
)

// Payload strips the identifier.
func (r DreamRecord) Payload() DreamPayload {
	return DreamPayload{
		Name:              r.Name,
		Description:       r.Description,
		DreamDate:         r.DreamDate,
		Lucidity:          r.Lucidity,
		SleepDuration:     r.SleepDuration,
		Recurring:         r.Recurring,
		RoomTemp:          r.RoomTemp,
		StressBeforeSleep: r.StressBeforeSleep,
		Emotions:          r.Emotions,
	}
}

// WithID merges a store-assigned identifier back into a record.
func (p DreamPayload) WithID(id int64) DreamRecord {
	return DreamRecord{
		ID:                id,
		Name:              p.Name,
		Description:       p.Description,
		DreamDate:         p.DreamDate,
		Lucidity:          p.Lucidity,
		SleepDuration:     p.SleepDuration,
		Recurring:         p.Recurring,
		RoomTemp:          p.RoomTemp,
		StressBeforeSleep: p.StressBeforeSleep,
		Emotions:          p.Emotions,
	}
}

// Date parses dream_date. A missing or malformed value yields a *DateParseError.
func (r DreamRecord) Date() (time.Time, error) {
	if r.DreamDate == nil || strings.TrimSpace(*r.DreamDate) == "" {
		return time.Time{}, &DateParseError{DreamID: r.ID}
	}
	d, err := ParseDreamDate(*r.DreamDate)
	if err != nil {
		return time.Time{}, &DateParseError{DreamID: r.ID, Value: *r.DreamDate, Err: err}
	}
	return d, nil
}

// HasEmotion reports exact, case-sensitive membership.
func (r DreamRecord) HasEmotion(emotion string) bool {
	for _, e := range r.Emotions {
		if e == emotion {
			return true
		}
	}
	return false
}

// ParseDreamDate reads YYYY-MM-DD. Timestamps with a time part are accepted and
// truncated to their calendar date.
func ParseDreamDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Parse(DateLayout, s)
}

// Validate checks the rules the store enforces before persisting.
func (p DreamPayload) Validate() error {
	var problems []error

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, ErrEmptyName)
	}
	if p.DreamDate == nil || strings.TrimSpace(*p.DreamDate) == "" {
		problems = append(problems, ErrMissingDate)
	} else if _, err := ParseDreamDate(*p.DreamDate); err != nil {
		problems = append(problems, &DateParseError{Value: *p.DreamDate, Err: err})
	}
	for _, n := range p.numericFields() {
		if n.value != nil && (math.IsNaN(*n.value) || math.IsInf(*n.value, 0)) {
			problems = append(problems, &InvalidNumberError{Field: n.field})
		}
	}
	if p.StressBeforeSleep != nil && (*p.StressBeforeSleep < 1 || *p.StressBeforeSleep > 10) {
		problems = append(problems, ErrStressOutOfRange)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Normalized returns a copy with trimmed text, a non-nil emotion list without blank
// entries, and dream_date rewritten to YYYY-MM-DD when it parses.
func (p DreamPayload) Normalized() DreamPayload {
	out := p
	out.Name = strings.TrimSpace(p.Name)
	out.Emotions = cleanEmotions(p.Emotions)
	if p.DreamDate != nil {
		if d, err := ParseDreamDate(*p.DreamDate); err == nil {
			s := d.Format(DateLayout)
			out.DreamDate = &s
		}
	}
	return out
}

type numericField struct {
	field string
	value *float64
}

func (p DreamPayload) numericFields() []numericField {
	return []numericField{
		{FieldSleepDuration, p.SleepDuration},
		{FieldRoomTemp, p.RoomTemp},
		{FieldStressBeforeSleep, p.StressBeforeSleep},
	}
}

func cleanEmotions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
