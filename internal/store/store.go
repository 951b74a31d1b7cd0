package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrLogNotFound     = errors.New("log not found")
)

const Schema = `
CREATE TABLE IF NOT EXISTS progression_profile
(
    user_id            VARCHAR PRIMARY KEY,
    account_created_at TIMESTAMPTZ NOT NULL,
    total_xp           BIGINT      NOT NULL DEFAULT 0,
    muscle_scores      JSONB       NOT NULL DEFAULT '{}',
    personal_bests     JSONB       NOT NULL DEFAULT '{}',
    updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS workout_log
(
    id          VARCHAR PRIMARY KEY,
    user_id     VARCHAR          NOT NULL,
    exercise_id VARCHAR          NOT NULL DEFAULT '',
    timestamp   JSONB,
    sets        JSONB            NOT NULL DEFAULT '[]',
    duration    DOUBLE PRECISION NOT NULL DEFAULT 0,
    score       INTEGER          NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_workout_log_user_id ON workout_log (user_id, created_at);

CREATE TABLE IF NOT EXISTS exercise_meta
(
    id                VARCHAR PRIMARY KEY,
    target            VARCHAR NOT NULL,
    secondary_muscles JSONB   NOT NULL DEFAULT '[]',
    equipment         VARCHAR NOT NULL DEFAULT '',
    difficulty        VARCHAR NOT NULL DEFAULT '',
    category          VARCHAR NOT NULL DEFAULT ''
);
`

// Migrate creates the progression tables when they are missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Debugln("progression schema applied")
	return nil
}
