package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
)

type LibraryRepo struct {
	db *pgxpool.Pool
}

func NewLibraryRepo(db *pgxpool.Pool) *LibraryRepo {
	return &LibraryRepo{
		db: db,
	}
}

func (r *LibraryRepo) Upsert(ctx context.Context, meta gymlog.ExerciseMeta) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.library.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_id", meta.ID))

	secondary := meta.SecondaryMuscles
	if secondary == nil {
		secondary = gymlog.MuscleList{}
	}
	secondaryJson, err := json.Marshal(secondary)
	if err != nil {
		return fmt.Errorf("marshal secondary muscles: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO exercise_meta
			(id, target, secondary_muscles, equipment, difficulty, category)
			VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			target = EXCLUDED.target,
			secondary_muscles = EXCLUDED.secondary_muscles,
			equipment = EXCLUDED.equipment,
			difficulty = EXCLUDED.difficulty,
			category = EXCLUDED.category;`,
		meta.ID, meta.Target, secondaryJson, meta.Equipment, meta.Difficulty, meta.Category,
	)
	return err
}

// Snapshot loads the whole exercise library.
func (r *LibraryRepo) Snapshot(ctx context.Context) (_ *gymlog.Catalog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.library.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercises, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("exercises", len(exercises)))
	return gymlog.NewCatalog(exercises), nil
}

func (r *LibraryRepo) list(ctx context.Context) ([]gymlog.ExerciseMeta, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, target, secondary_muscles, equipment, difficulty, category
		FROM exercise_meta
		ORDER BY id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []gymlog.ExerciseMeta
	for rows.Next() {
		var (
			meta      gymlog.ExerciseMeta
			secondary []byte
		)
		if err := rows.Scan(&meta.ID, &meta.Target, &secondary, &meta.Equipment, &meta.Difficulty, &meta.Category); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if err := json.Unmarshal(secondary, &meta.SecondaryMuscles); err != nil {
			return nil, fmt.Errorf("unmarshal secondary muscles of %s: %w", meta.ID, err)
		}
		exercises = append(exercises, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}
