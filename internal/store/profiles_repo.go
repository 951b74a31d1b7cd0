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

type ProfilesRepo struct {
	db *pgxpool.Pool
}

func NewProfilesRepo(db *pgxpool.Pool) *ProfilesRepo {
	return &ProfilesRepo{
		db: db,
	}
}

func (r *ProfilesRepo) Get(ctx context.Context, userID string) (_ *gymlog.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	var (
		profile       gymlog.Profile
		muscleScores  []byte
		personalBests []byte
	)
	err = r.db.
		QueryRow(ctx, `
			SELECT user_id, account_created_at, total_xp, muscle_scores, personal_bests, updated_at
			FROM progression_profile
			WHERE user_id = $1
		`, userID).
		Scan(&profile.UserID, &profile.AccountCreatedAt, &profile.TotalXP, &muscleScores, &personalBests, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	profile.MuscleScores = map[string]float64{}
	profile.PersonalBests = map[string]gymlog.WindowBests{}
	if err := json.Unmarshal(muscleScores, &profile.MuscleScores); err != nil {
		return nil, fmt.Errorf("unmarshal muscle scores: %w", err)
	}
	if err := json.Unmarshal(personalBests, &profile.PersonalBests); err != nil {
		return nil, fmt.Errorf("unmarshal personal bests: %w", err)
	}

	return &profile, nil
}

// Save upserts the aggregates. The account creation time of an existing
// profile is never overwritten.
func (r *ProfilesRepo) Save(ctx context.Context, profile gymlog.Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", profile.UserID))
	span.SetAttributes(attribute.Int64("total_xp", profile.TotalXP))

	muscleScores, err := json.Marshal(nonNilScores(profile.MuscleScores))
	if err != nil {
		return fmt.Errorf("marshal muscle scores: %w", err)
	}
	personalBests, err := json.Marshal(nonNilBests(profile.PersonalBests))
	if err != nil {
		return fmt.Errorf("marshal personal bests: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO progression_profile
			(user_id, account_created_at, total_xp, muscle_scores, personal_bests, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			muscle_scores = EXCLUDED.muscle_scores,
			personal_bests = EXCLUDED.personal_bests,
			updated_at = EXCLUDED.updated_at;`,
		profile.UserID, profile.AccountCreatedAt, profile.TotalXP, muscleScores, personalBests, profile.UpdatedAt,
	)
	return err
}

// ListUserIDs returns every user with a profile or at least one log.
func (r *ProfilesRepo) ListUserIDs(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.listUserIDs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM progression_profile
		UNION
		SELECT DISTINCT user_id FROM workout_log
		ORDER BY user_id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("users", len(userIDs)))
	return userIDs, nil
}

func nonNilScores(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func nonNilBests(m map[string]gymlog.WindowBests) map[string]gymlog.WindowBests {
	if m == nil {
		return map[string]gymlog.WindowBests{}
	}
	return m
}
