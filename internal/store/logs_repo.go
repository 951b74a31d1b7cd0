package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
)

type LogsRepo struct {
	db *pgxpool.Pool
}

func NewLogsRepo(db *pgxpool.Pool) *LogsRepo {
	return &LogsRepo{
		db: db,
	}
}

func (r *LogsRepo) Add(ctx context.Context, entry gymlog.LogEntry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", entry.UserID))
	span.SetAttributes(attribute.String("log_id", entry.ID))

	timestamp, err := json.Marshal(entry.Timestamp)
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	sets := entry.Sets
	if sets == nil {
		sets = []gymlog.Set{}
	}
	setsJson, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("marshal sets: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO workout_log
			(id, user_id, exercise_id, timestamp, sets, duration, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		entry.ID, entry.UserID, entry.ExerciseID, timestamp, setsJson, entry.Duration, entry.Score,
	)
	return err
}

func (r *LogsRepo) Get(ctx context.Context, userID, logID string) (_ *gymlog.LogEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("log_id", logID))

	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, exercise_id, timestamp, sets, duration, score
		FROM workout_log
		WHERE user_id = $1 AND id = $2;`,
		userID, logID,
	)
	entry, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByUser returns the user's logs in insertion order.
func (r *LogsRepo) ListByUser(ctx context.Context, userID string) (_ []gymlog.LogEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.listByUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, exercise_id, timestamp, sets, duration, score
		FROM workout_log
		WHERE user_id = $1
		ORDER BY created_at, id;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []gymlog.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("logs", len(logs)))
	return logs, nil
}

func (r *LogsRepo) Delete(ctx context.Context, userID, logID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.logs.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("log_id", logID))

	tag, err := r.db.Exec(ctx,
		`DELETE FROM workout_log WHERE user_id = $1 AND id = $2`,
		userID, logID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}
	return nil
}

// scanLog decodes a workout_log row. Unparseable timestamps decode to an
// invalid timestamp so the engine can report them instead of failing.
func scanLog(row pgx.Row) (gymlog.LogEntry, error) {
	var (
		entry     gymlog.LogEntry
		timestamp []byte
		sets      []byte
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.ExerciseID, &timestamp, &sets, &entry.Duration, &entry.Score); err != nil {
		return gymlog.LogEntry{}, err
	}
	if len(timestamp) > 0 {
		if err := json.Unmarshal(timestamp, &entry.Timestamp); err != nil {
			return gymlog.LogEntry{}, fmt.Errorf("unmarshal timestamp: %w", err)
		}
	}
	if len(sets) > 0 {
		if err := json.Unmarshal(sets, &entry.Sets); err != nil {
			return gymlog.LogEntry{}, fmt.Errorf("unmarshal sets: %w", err)
		}
	}
	if len(entry.Sets) == 0 {
		entry.Sets = nil
	}
	return entry, nil
}
