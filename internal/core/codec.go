package core

import (
	"math"
	"strconv"
	"strings"
)

// Wire names of the numeric fields, used to label InvalidNumberError.
const (
	FieldSleepDuration     = "sleep_duration"
	FieldRoomTemp          = "room_temp"
	FieldStressBeforeSleep = "stress_before_sleep"
)

// FormState is a dream as bound to an edit form. Numeric fields hold the text typed
// by the user; "" means unset.
type FormState struct {
	Name              string
	Description       string
	DreamDate         string
	Lucidity          bool
	SleepDuration     string
	Recurring         bool
	RoomTemp          string
	StressBeforeSleep string
	Emotions          []string
}

// EmotionsText renders the emotion list for a text input.
func (f FormState) EmotionsText() string {
	return JoinEmotions(f.Emotions)
}

// Decode prepares a stored dream for editing. The identifier is not carried over.
// Encode(Decode(r)) gives back r's payload except that a nil emotion list comes back
// empty.
func Decode(r DreamRecord) FormState {
	f := FormState{
		Name:              r.Name,
		Description:       r.Description,
		Lucidity:          r.Lucidity,
		Recurring:         r.Recurring,
		SleepDuration:     formatNumber(r.SleepDuration),
		RoomTemp:          formatNumber(r.RoomTemp),
		StressBeforeSleep: formatNumber(r.StressBeforeSleep),
		Emotions:          []string{},
	}
	if r.DreamDate != nil {
		f.DreamDate = *r.DreamDate
	}
	if r.Emotions != nil {
		f.Emotions = append(f.Emotions, r.Emotions...)
	}
	return f
}

// Encode converts form state into a create/update payload. Emotion tags are kept as
// written; only whitespace-only entries are dropped. A numeric field whose text is
// not a finite number yields an *InvalidNumberError naming the field.
func Encode(f FormState) (DreamPayload, error) {
	p := DreamPayload{
		Name:        f.Name,
		Description: f.Description,
		Lucidity:    f.Lucidity,
		Recurring:   f.Recurring,
		Emotions:    dropBlankEmotions(f.Emotions),
	}
	if f.DreamDate != "" {
		d := f.DreamDate
		p.DreamDate = &d
	}

	var err error
	if p.SleepDuration, err = parseNumber(FieldSleepDuration, f.SleepDuration); err != nil {
		return DreamPayload{}, err
	}
	if p.RoomTemp, err = parseNumber(FieldRoomTemp, f.RoomTemp); err != nil {
		return DreamPayload{}, err
	}
	if p.StressBeforeSleep, err = parseNumber(FieldStressBeforeSleep, f.StressBeforeSleep); err != nil {
		return DreamPayload{}, err
	}
	return p, nil
}

// ParseEmotionList splits comma separated text into trimmed, non-empty tags.
func ParseEmotionList(text string) []string {
	return cleanEmotions(strings.Split(text, ","))
}

// JoinEmotions is the inverse of ParseEmotionList for display.
func JoinEmotions(emotions []string) string {
	return strings.Join(emotions, ", ")
}

func dropBlankEmotions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseNumber(field, text string) (*float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &InvalidNumberError{Field: field, Value: text}
	}
	return &v, nil
}
