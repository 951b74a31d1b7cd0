package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/tmduggan/gordon/internal/cache"
	"github.com/tmduggan/gordon/internal/config"
	"github.com/tmduggan/gordon/internal/db"
	"github.com/tmduggan/gordon/internal/middleware"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/api"
	progressionmcp "github.com/tmduggan/gordon/internal/progression/mcp"
	"github.com/tmduggan/gordon/internal/scheduler"
	"github.com/tmduggan/gordon/internal/store"
	"github.com/tmduggan/gordon/internal/telemetry/metrics"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
	"github.com/tmduggan/gordon/pkg"
)

const serviceName = "progression-service"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	serviceToken      string // guards mutating progression routes
	versionInfo       string

	config             *config.Config
	dbPool             *pgxpool.Pool
	redisClient        *redis.Client
	progressionService *progression.Service
	scheduler          *scheduler.Scheduler

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	ServiceToken            string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		AppName:        serviceName,
		MaxConns:       cfg.PostgresMaxConns,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, dbPool); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Debugln("db schema migrated")
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("progression", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0,
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, serviceName, rdb)
	if err != nil {
		return nil, err
	}

	curve, err := cfg.LevelCurve()
	if err != nil {
		return nil, err
	}

	progressionService := progression.NewService(progression.NewServiceParams{
		Engine:         progression.NewEngine(curve),
		Profiles:       store.NewProfilesRepo(dbPool),
		Logs:           store.NewLogsRepo(dbPool),
		Library:        store.NewCachedLibrary(store.NewLibraryRepo(dbPool), cfg.LibraryCacheSizeMB, cfg.LibraryCacheTTL.Duration),
		Cache:          cache.NewSnapshotCache(rdb, cfg.SnapshotCacheTTL.Duration),
		MetricsManager: metricsManager,
		Concurrency:    cfg.RecomputeConcurrency,
	})

	recomputeScheduler, err := scheduler.New(cfg.RecomputeSchedule, progressionService, 0)
	if err != nil {
		return nil, err
	}

	return &Server{
		serviceToken: params.ServiceToken,
		versionInfo:  params.VersionInfo,

		config:             cfg,
		dbPool:             dbPool,
		redisClient:        rdb,
		progressionService: progressionService,
		scheduler:          recomputeScheduler,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("progression-router"))

	r.HandleFunc("/health", s.handleHealth).Methods("GET").Name("health")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	progressionHandler := api.NewHandler(s.progressionService)
	progressionHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.RecomputeRateLimitPerMin)

	mcpServer := progressionmcp.NewServer(s.progressionService)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)).Name("mcp")

	r.NotFoundHandler = http.HandlerFunc(http.NotFound)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.ServiceTokenCheck(s.serviceToken))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, map[string]string{
		"status":  "ok",
		"version": s.versionInfo,
	}, http.StatusOK)
}

func (s *Server) metricsRouterSetup() *mux.Router {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	return metricsRouter
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: s.metricsRouterSetup(),
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.scheduler.Start(ctx)
	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		err = multierr.Append(err, s.metricsHttpServer.Shutdown(ctx))
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		err = multierr.Append(err, s.redisClient.Close())
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if err != nil {
		log.Errorf(" >>> graceful shutdown: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
