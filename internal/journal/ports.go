// Package journal declares the store ports the web UI, the JSON API and dreamctl are
// written against. Adapters live in the memory and remote subpackages and in
// internal/services for the sqlite store.
package journal

import (
	"context"

	"dreams/internal/core"
)

// Ports for store adapters. Missing ids are reported as *core.NotFoundError.
type (
	// MonthLister returns the dreams dated in a month (1-12). Records with an
	// unusable date may also be returned; the calendar reports them as skipped.
	MonthLister interface {
		ListMonth(ctx context.Context, year, month int) ([]core.DreamRecord, error)
	}

	DreamReader interface {
		GetDream(ctx context.Context, id int64) (core.DreamRecord, error)
	}

	DreamWriter interface {
		CreateDream(ctx context.Context, p core.DreamPayload) (core.DreamRecord, error)
		// UpdateDream replaces every field, emotions included.
		UpdateDream(ctx context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error)
		// DeleteDream returns the record as it was before deletion.
		DeleteDream(ctx context.Context, id int64) (core.DreamRecord, error)
	}

	// EmotionSearcher lists every dream carrying the exact tag, across all months.
	EmotionSearcher interface {
		ListByEmotion(ctx context.Context, emotion string) ([]core.DreamRecord, error)
	}

	// Store is the full set of operations a backend provides.
	Store interface {
		MonthLister
		DreamReader
		DreamWriter
		EmotionSearcher
	}
)
