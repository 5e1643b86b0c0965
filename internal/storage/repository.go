package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dreams/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores dreams and their emotions in a sqlite database.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return classify(r.db.PingContext(ctx))
}

// ListMonth implements journal.MonthLister
func (r *SQLiteRepository) ListMonth(ctx context.Context, year, month int) ([]core.DreamRecord, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.queries.ListDreamsInRange(ctx, from.Format(core.DateLayout), to.Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list dreams for %d-%02d: %w", year, month, classify(err))
	}
	return r.withEmotions(ctx, rows)
}

// GetDream implements journal.DreamReader
func (r *SQLiteRepository) GetDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	row, err := r.queries.GetDream(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DreamRecord{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.DreamRecord{}, fmt.Errorf("get dream %d: %w", id, classify(err))
	}
	records, err := r.withEmotions(ctx, []Dream{row})
	if err != nil {
		return core.DreamRecord{}, err
	}
	return records[0], nil
}

// CreateDream inserts the dream and its emotions in one transaction.
func (r *SQLiteRepository) CreateDream(ctx context.Context, p core.DreamPayload) (core.DreamRecord, error) {
	p = p.Normalized()
	var created core.DreamRecord
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.CreateDream(ctx, toParams(p))
		if err != nil {
			return fmt.Errorf("insert dream: %w", err)
		}
		if err := insertEmotions(ctx, q, row.ID, p.Emotions); err != nil {
			return err
		}
		created = toRecord(row, p.Emotions)
		return nil
	})
	if err != nil {
		return core.DreamRecord{}, err
	}

	slog.DebugContext(ctx, "Dream saved to SQLite", "dream_id", created.ID, "dream_date", *created.DreamDate)
	return created, nil
}

// UpdateDream replaces all fields and the emotion list of an existing dream.
func (r *SQLiteRepository) UpdateDream(ctx context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error) {
	p = p.Normalized()
	var updated core.DreamRecord
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.UpdateDream(ctx, UpdateDreamParams{ID: id, CreateDreamParams: toParams(p)})
		if errors.Is(err, sql.ErrNoRows) {
			return &core.NotFoundError{ID: id}
		}
		if err != nil {
			return fmt.Errorf("update dream %d: %w", id, err)
		}
		if err := q.DeleteEmotions(ctx, id); err != nil {
			return fmt.Errorf("clear emotions of dream %d: %w", id, err)
		}
		if err := insertEmotions(ctx, q, id, p.Emotions); err != nil {
			return err
		}
		updated = toRecord(row, p.Emotions)
		return nil
	})
	if err != nil {
		return core.DreamRecord{}, err
	}
	return updated, nil
}

// DeleteDream removes a dream and returns it as it was.
func (r *SQLiteRepository) DeleteDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	var deleted core.DreamRecord
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetDream(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return &core.NotFoundError{ID: id}
		}
		if err != nil {
			return fmt.Errorf("get dream %d: %w", id, err)
		}
		emotions, err := q.ListEmotions(ctx, []int64{id})
		if err != nil {
			return fmt.Errorf("list emotions of dream %d: %w", id, err)
		}
		// emotions go with the dream through ON DELETE CASCADE
		if _, err := q.DeleteDream(ctx, id); err != nil {
			return fmt.Errorf("delete dream %d: %w", id, err)
		}
		deleted = toRecord(row, emotions[id])
		return nil
	})
	if err != nil {
		return core.DreamRecord{}, err
	}
	return deleted, nil
}

// ListByEmotion implements journal.EmotionSearcher
func (r *SQLiteRepository) ListByEmotion(ctx context.Context, emotion string) ([]core.DreamRecord, error) {
	rows, err := r.queries.ListDreamsByEmotion(ctx, emotion)
	if err != nil {
		return nil, fmt.Errorf("list dreams with emotion %q: %w", emotion, classify(err))
	}
	return r.withEmotions(ctx, rows)
}

// ListAll returns every stored dream ordered by date.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.DreamRecord, error) {
	rows, err := r.queries.ListAllDreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dreams: %w", classify(err))
	}
	return r.withEmotions(ctx, rows)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

func (r *SQLiteRepository) withEmotions(ctx context.Context, rows []Dream) ([]core.DreamRecord, error) {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	emotions, err := r.queries.ListEmotions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list emotions: %w", classify(err))
	}
	records := make([]core.DreamRecord, len(rows))
	for i, row := range rows {
		records[i] = toRecord(row, emotions[row.ID])
	}
	return records, nil
}

func insertEmotions(ctx context.Context, q *Queries, dreamID int64, emotions []string) error {
	for i, e := range emotions {
		if err := q.InsertEmotion(ctx, Emotion{DreamID: dreamID, Position: int64(i), Emotion: e}); err != nil {
			return fmt.Errorf("insert emotion %q: %w", e, err)
		}
	}
	return nil
}

func toParams(p core.DreamPayload) CreateDreamParams {
	var date string
	if p.DreamDate != nil {
		date = *p.DreamDate
	}
	return CreateDreamParams{
		Name:              p.Name,
		Description:       p.Description,
		DreamDate:         date,
		Lucidity:          p.Lucidity,
		SleepDuration:     nullFloat(p.SleepDuration),
		Recurring:         p.Recurring,
		RoomTemp:          nullFloat(p.RoomTemp),
		StressBeforeSleep: nullFloat(p.StressBeforeSleep),
	}
}

func toRecord(d Dream, emotions []string) core.DreamRecord {
	date := d.DreamDate
	if emotions == nil {
		emotions = []string{}
	}
	return core.DreamRecord{
		ID:                d.ID,
		Name:              d.Name,
		Description:       d.Description,
		DreamDate:         &date,
		Lucidity:          d.Lucidity,
		SleepDuration:     floatPtr(d.SleepDuration),
		Recurring:         d.Recurring,
		RoomTemp:          floatPtr(d.RoomTemp),
		StressBeforeSleep: floatPtr(d.StressBeforeSleep),
		Emotions:          emotions,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// classify marks busy and locked database errors with core.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
	}
	return err
}
