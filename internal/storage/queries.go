package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Dream is a row of the dreams table.
type Dream struct {
	ID                int64
	Name              string
	Description       string
	DreamDate         string
	Lucidity          bool
	SleepDuration     sql.NullFloat64
	Recurring         bool
	RoomTemp          sql.NullFloat64
	StressBeforeSleep sql.NullFloat64
}

// Emotion is a row of the emotions table.
type Emotion struct {
	DreamID  int64
	Position int64
	Emotion  string
}

const dreamColumns = `id, name, description, dream_date, lucidity, sleep_duration, recurring, room_temp, stress_before_sleep`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDream(row rowScanner) (Dream, error) {
	var d Dream
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.DreamDate,
		&d.Lucidity,
		&d.SleepDuration,
		&d.Recurring,
		&d.RoomTemp,
		&d.StressBeforeSleep,
	)
	return d, err
}

func (q *Queries) listDreams(ctx context.Context, query string, args ...any) ([]Dream, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Dream
	for rows.Next() {
		d, err := scanDream(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CreateDreamParams struct {
	Name              string
	Description       string
	DreamDate         string
	Lucidity          bool
	SleepDuration     sql.NullFloat64
	Recurring         bool
	RoomTemp          sql.NullFloat64
	StressBeforeSleep sql.NullFloat64
}

const createDream = `INSERT INTO dreams (name, description, dream_date, lucidity, sleep_duration, recurring, room_temp, stress_before_sleep)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + dreamColumns

func (q *Queries) CreateDream(ctx context.Context, arg CreateDreamParams) (Dream, error) {
	row := q.db.QueryRowContext(ctx, createDream,
		arg.Name,
		arg.Description,
		arg.DreamDate,
		arg.Lucidity,
		arg.SleepDuration,
		arg.Recurring,
		arg.RoomTemp,
		arg.StressBeforeSleep,
	)
	return scanDream(row)
}

type UpdateDreamParams struct {
	ID int64
	CreateDreamParams
}

const updateDream = `UPDATE dreams
SET name = ?, description = ?, dream_date = ?, lucidity = ?, sleep_duration = ?, recurring = ?, room_temp = ?, stress_before_sleep = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + dreamColumns

func (q *Queries) UpdateDream(ctx context.Context, arg UpdateDreamParams) (Dream, error) {
	row := q.db.QueryRowContext(ctx, updateDream,
		arg.Name,
		arg.Description,
		arg.DreamDate,
		arg.Lucidity,
		arg.SleepDuration,
		arg.Recurring,
		arg.RoomTemp,
		arg.StressBeforeSleep,
		arg.ID,
	)
	return scanDream(row)
}

const getDream = `SELECT ` + dreamColumns + ` FROM dreams WHERE id = ?`

func (q *Queries) GetDream(ctx context.Context, id int64) (Dream, error) {
	return scanDream(q.db.QueryRowContext(ctx, getDream, id))
}

const deleteDream = `DELETE FROM dreams WHERE id = ?`

func (q *Queries) DeleteDream(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteDream, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// dream_date is stored as YYYY-MM-DD, so a half-open string range selects a month.
const listDreamsInRange = `SELECT ` + dreamColumns + ` FROM dreams
WHERE dream_date >= ? AND dream_date < ?
ORDER BY dream_date, id`

func (q *Queries) ListDreamsInRange(ctx context.Context, from, to string) ([]Dream, error) {
	return q.listDreams(ctx, listDreamsInRange, from, to)
}

const listDreamsByEmotion = `SELECT ` + dreamColumns + ` FROM dreams
WHERE id IN (SELECT dream_id FROM emotions WHERE emotion = ?)
ORDER BY dream_date, id`

func (q *Queries) ListDreamsByEmotion(ctx context.Context, emotion string) ([]Dream, error) {
	return q.listDreams(ctx, listDreamsByEmotion, emotion)
}

const listAllDreams = `SELECT ` + dreamColumns + ` FROM dreams ORDER BY dream_date, id`

func (q *Queries) ListAllDreams(ctx context.Context) ([]Dream, error) {
	return q.listDreams(ctx, listAllDreams)
}

const insertEmotion = `INSERT INTO emotions (dream_id, position, emotion) VALUES (?, ?, ?)`

func (q *Queries) InsertEmotion(ctx context.Context, arg Emotion) error {
	_, err := q.db.ExecContext(ctx, insertEmotion, arg.DreamID, arg.Position, arg.Emotion)
	return err
}

const deleteEmotions = `DELETE FROM emotions WHERE dream_id = ?`

func (q *Queries) DeleteEmotions(ctx context.Context, dreamID int64) error {
	_, err := q.db.ExecContext(ctx, deleteEmotions, dreamID)
	return err
}

// ListEmotions returns the emotions of the given dreams grouped by dream id, in
// authored order.
func (q *Queries) ListEmotions(ctx context.Context, dreamIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(dreamIDs))
	if len(dreamIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dreamIDs)), ",")
	args := make([]any, len(dreamIDs))
	for i, id := range dreamIDs {
		args[i] = id
	}
	query := `SELECT dream_id, emotion FROM emotions WHERE dream_id IN (` + placeholders + `) ORDER BY dream_id, position`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var emotion string
		if err := rows.Scan(&id, &emotion); err != nil {
			return nil, err
		}
		out[id] = append(out[id], emotion)
	}
	return out, rows.Err()
}
