package sheets

import (
	"context"
	"errors"
	"strconv"
	"time"

	"dreams/internal/core"
)

// Ports for outbound adapters.
type (
	// DreamRowWriter appends one row per dream change to the export sheet.
	DreamRowWriter interface {
		AppendDream(ctx context.Context, event string, r core.DreamRecord, at time.Time) (rowRef string, err error)
		AppendTombstone(ctx context.Context, t Tombstone, at time.Time) (rowRef string, err error)
	}

	// HeaderWriter is implemented by sheets that can write the column titles on first use.
	HeaderWriter interface {
		EnsureHeader(ctx context.Context) error
	}
)

// Tombstone describes a deleted dream by its last known name and date.
type Tombstone struct {
	DreamID   int64
	Name      string
	DreamDate string
}

// EventDeleted is the event column value of tombstone rows.
const EventDeleted = "deleted"

// Header lists the export columns in order.
var Header = []any{
	"exported_at", "event", "dream_id", "name", "dream_date", "description",
	"lucidity", "recurring", "sleep_duration", "room_temp", "stress_before_sleep", "emotions",
}

// DreamRow lays out a dream as an export row matching Header.
func DreamRow(event string, r core.DreamRecord, at time.Time) []any {
	date := ""
	if r.DreamDate != nil {
		date = *r.DreamDate
	}
	return []any{
		at.UTC().Format(time.RFC3339),
		event,
		r.ID,
		r.Name,
		date,
		r.Description,
		r.Lucidity,
		r.Recurring,
		cell(r.SleepDuration),
		cell(r.RoomTemp),
		cell(r.StressBeforeSleep),
		core.JoinEmotions(r.Emotions),
	}
}

// TombstoneRow lays out a deletion marker matching Header.
func TombstoneRow(t Tombstone, at time.Time) []any {
	row := make([]any, len(Header))
	for i := range row {
		row[i] = ""
	}
	row[0] = at.UTC().Format(time.RFC3339)
	row[1] = EventDeleted
	row[2] = t.DreamID
	row[3] = t.Name
	row[4] = t.DreamDate
	return row
}

func cell(v *float64) any {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ExportError wraps a failed append. Permanent errors will fail again on retry.
type ExportError struct {
	Permanent bool
	Err       error
}

func (e *ExportError) Error() string { return "sheet export: " + e.Err.Error() }
func (e *ExportError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is an ExportError that retrying cannot fix.
func IsPermanent(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee) && ee.Permanent
}
