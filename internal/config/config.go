package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tmduggan/gordon/internal/progression/level"
)

type Config struct {
	Host string
	Port int
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	// sentry
	Environment   string `toml:"environment"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	SentryDSN     string `toml:"sentry_dsn"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// zero lets pgxpool pick
	PostgresMaxConns int32 `toml:"postgres_max_conns"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// telemetry
	PrometheusMetricsHost   string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort   string `toml:"prometheus_metrics_port"`
	HoneycombTracingEnabled bool   `toml:"honeycomb_tracing_enabled"`
	// progression
	AutoMigrate              bool     `toml:"auto_migrate"`
	RecomputeSchedule        string   `toml:"recompute_schedule"`
	RecomputeConcurrency     int      `toml:"recompute_concurrency"`
	RecomputeRateLimitPerMin int      `toml:"recompute_rate_limit_per_min"`
	SnapshotCacheTTL         Duration `toml:"snapshot_cache_ttl"`
	LibraryCacheTTL          Duration `toml:"library_cache_ttl"`
	LibraryCacheSizeMB       int      `toml:"library_cache_size_mb"`
	Curve                    *Curve   `toml:"curve"`
}

// Curve overrides the default level curve. Zero fields keep their defaults.
type Curve struct {
	BaseXP             float64 `toml:"base_xp"`
	GrowthRate         float64 `toml:"growth_rate"`
	DecayGraceDays     int     `toml:"decay_grace_days"`
	DecayPerDay        float64 `toml:"decay_per_day"`
	MaxDecayMultiplier float64 `toml:"max_decay_multiplier"`
	MaxLevel           int     `toml:"max_level"`
}

// Duration decodes TOML strings such as "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RecomputeSchedule == "" {
		c.RecomputeSchedule = "0 3 * * *"
	}
	if c.RecomputeConcurrency <= 0 {
		c.RecomputeConcurrency = 4
	}
	if c.RecomputeRateLimitPerMin <= 0 {
		c.RecomputeRateLimitPerMin = 10
	}
	if c.SnapshotCacheTTL.Duration <= 0 {
		c.SnapshotCacheTTL.Duration = 10 * time.Minute
	}
	if c.LibraryCacheTTL.Duration <= 0 {
		c.LibraryCacheTTL.Duration = time.Hour
	}
	if c.LibraryCacheSizeMB <= 0 {
		c.LibraryCacheSizeMB = 10
	}
}

// LevelCurve builds the level curve, applying any configured overrides.
func (c *Config) LevelCurve() (*level.Curve, error) {
	params := *level.DefaultCurve()
	if c.Curve != nil {
		if c.Curve.BaseXP > 0 {
			params.BaseXP = c.Curve.BaseXP
		}
		if c.Curve.GrowthRate > 0 {
			params.GrowthRate = c.Curve.GrowthRate
		}
		if c.Curve.DecayGraceDays > 0 {
			params.DecayGraceDays = c.Curve.DecayGraceDays
		}
		if c.Curve.DecayPerDay > 0 {
			params.DecayPerDay = c.Curve.DecayPerDay
		}
		if c.Curve.MaxDecayMultiplier > 0 {
			params.MaxDecayMultiplier = c.Curve.MaxDecayMultiplier
		}
		if c.Curve.MaxLevel > 0 {
			params.MaxLevel = c.Curve.MaxLevel
		}
	}

	curve, err := level.NewCurve(params)
	if err != nil {
		return nil, fmt.Errorf("level curve: %w", err)
	}
	return curve, nil
}
