package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NewDBPoolParams struct {
	DBHost string
	DBPort string
	DBName string
	// AppName shows up in pg_stat_activity.
	AppName        string
	MaxConns       int32
	TracingEnabled bool
}

// ConnString builds the DSN for the local trust-auth postgres user.
func ConnString(params NewDBPoolParams) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User("postgres"),
		Host:   params.DBHost + ":" + params.DBPort,
		Path:   "/" + params.DBName,
	}
	if params.AppName != "" {
		dsn.RawQuery = url.Values{"application_name": []string{params.AppName}}.Encode()
	}
	return dsn.String()
}

func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(params))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if params.MaxConns > 0 {
		poolConfig.MaxConns = params.MaxConns
	}
	// recompute runs hold connections in bursts, idle ones can go
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return db, nil
}
