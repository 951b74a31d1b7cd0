package progression

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression/level"
	"github.com/tmduggan/gordon/internal/store"
	"github.com/tmduggan/gordon/internal/telemetry/metrics"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
	"github.com/tmduggan/gordon/internal/timeutil"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=progression_test

var (
	ErrSnapshotNotCached = errors.New("snapshot not cached")
	ErrUnknownExercise   = errors.New("unknown exercise")
	ErrInvalidUserID     = errors.New("invalid user id")
)

const DefaultRecomputeConcurrency = 4

type profileRepo interface {
	Get(ctx context.Context, userID string) (*gymlog.Profile, error)
	Save(ctx context.Context, profile gymlog.Profile) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type logsRepo interface {
	ListByUser(ctx context.Context, userID string) ([]gymlog.LogEntry, error)
	Get(ctx context.Context, userID, logID string) (*gymlog.LogEntry, error)
	Delete(ctx context.Context, userID, logID string) error
}

type libraryRepo interface {
	Snapshot(ctx context.Context) (*gymlog.Catalog, error)
}

type snapshotCache interface {
	Get(ctx context.Context, userID string) (*Snapshot, error)
	Set(ctx context.Context, snapshot Snapshot) error
	Invalidate(ctx context.Context, userID string) error
}

// RecomputeAllReport summarizes a batch recomputation.
type RecomputeAllReport struct {
	RunID      string        `json:"runId"`
	Users      int           `json:"users"`
	Recomputed int           `json:"recomputed"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Service loads user data, runs the engine and persists the results.
type Service struct {
	engine         *Engine
	profiles       profileRepo
	logs           logsRepo
	library        libraryRepo
	cache          snapshotCache
	metricsManager *metrics.Manager
	concurrency    int
	now            func() time.Time
}

type NewServiceParams struct {
	Engine         *Engine
	Profiles       profileRepo
	Logs           logsRepo
	Library        libraryRepo
	Cache          snapshotCache
	MetricsManager *metrics.Manager
	Concurrency    int
	Now            func() time.Time
}

func NewService(params NewServiceParams) *Service {
	s := &Service{
		engine:         params.Engine,
		profiles:       params.Profiles,
		logs:           params.Logs,
		library:        params.Library,
		cache:          params.Cache,
		metricsManager: params.MetricsManager,
		concurrency:    params.Concurrency,
		now:            params.Now,
	}
	if s.engine == nil {
		s.engine = NewEngine(nil)
	}
	if s.metricsManager == nil {
		s.metricsManager = metrics.NewTestManager()
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultRecomputeConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Progress returns the cached snapshot of the user, recomputing on a miss.
func (s *Service) Progress(ctx context.Context, userID string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if s.cache != nil {
		snapshot, err := s.cache.Get(ctx, userID)
		if err == nil {
			s.metricsManager.CounterCacheHits.Inc()
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return snapshot, nil
		}
		if !errors.Is(err, ErrSnapshotNotCached) {
			log.Warnf("get cached snapshot for [%s]: %s", userID, err)
		}
		s.metricsManager.CounterCacheMisses.Inc()
	}

	return s.Recompute(ctx, userID)
}

// Recompute rebuilds the user's aggregates from the complete log history,
// persists them and refreshes the cached snapshot.
func (s *Service) Recompute(ctx context.Context, userID string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.recompute")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	if userID == "" {
		return nil, ErrInvalidUserID
	}

	begin := time.Now()
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		s.metricsManager.CounterRecomputes.WithLabelValues(result).Inc()
		s.metricsManager.HistRecomputeDuration.Observe(time.Since(begin).Seconds())
	}()

	now := s.now()
	profile, err := s.loadProfile(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	library, err := s.library.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("library snapshot: %w", err)
	}

	snapshot, err := s.engine.Recompute(profile, logs, library, now)
	if err != nil {
		return nil, fmt.Errorf("recompute %s: %w", userID, err)
	}
	s.reportDiagnostics(userID, snapshot.Diagnostics)
	span.SetAttributes(
		attribute.Int("logs", len(logs)),
		attribute.Int64("total_xp", snapshot.Profile.TotalXP),
		attribute.Int("level", snapshot.Level.Level),
	)

	if err := s.profiles.Save(ctx, snapshot.Profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshot); err != nil {
			log.Errorf("cache snapshot for [%s]: %s", userID, err)
		}
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"logs":     len(logs),
		"total_xp": snapshot.Profile.TotalXP,
		"level":    snapshot.Level.Level,
	}).Debug("profile recomputed")

	return &snapshot, nil
}

// ScoreWorkout previews the score of a workout against the stored history.
// Nothing is persisted.
func (s *Service) ScoreWorkout(ctx context.Context, userID string, workout gymlog.LogEntry) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.scoreWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("exercise_id", workout.ExerciseID))

	if userID == "" {
		return 0, ErrInvalidUserID
	}

	library, err := s.library.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("library snapshot: %w", err)
	}
	meta, ok := library.Lookup(workout.ExerciseID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownExercise, workout.ExerciseID)
	}

	now := s.now()
	profile, err := s.loadProfile(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	history, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list logs: %w", err)
	}

	workout.UserID = userID
	if !workout.Timestamp.Valid() {
		workout.Timestamp = timeutil.NewTimestamp(now)
	}

	score := s.engine.ScoreWorkout(workout, history, meta, profile)
	s.metricsManager.CounterScoredWorkouts.Inc()
	span.SetAttributes(attribute.Int("score", score))

	return score, nil
}

// DeleteLog removes a log, subtracts its score and then replays the
// remaining history. A replayed total that differs from the incremental one
// is logged as drift; the replayed value wins.
func (s *Service) DeleteLog(ctx context.Context, userID, logID string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.deleteLog")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("log_id", logID))

	if userID == "" {
		return nil, ErrInvalidUserID
	}

	entry, err := s.logs.Get(ctx, userID, logID)
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}

	profile, err := s.loadProfile(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.logs.Delete(ctx, userID, logID); err != nil {
		return nil, fmt.Errorf("delete log: %w", err)
	}
	incremental := s.engine.RemoveLog(profile, *entry)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Errorf("invalidate snapshot for [%s]: %s", userID, err)
		}
	}

	snapshot, err := s.Recompute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if drift := snapshot.Profile.TotalXP - incremental.TotalXP; drift != 0 {
		s.metricsManager.CounterXPDrift.Inc()
		log.WithFields(log.Fields{
			"user_id":        userID,
			"log_id":         logID,
			"incremental_xp": incremental.TotalXP,
			"replayed_xp":    snapshot.Profile.TotalXP,
			"drift":          drift,
		}).Warn("total xp drift after log deletion")
	}

	return snapshot, nil
}

// RecomputeAll recomputes every known user with bounded concurrency. A
// failing user is logged and counted without stopping the batch; only
// context cancellation aborts it.
func (s *Service) RecomputeAll(ctx context.Context) (_ *RecomputeAllReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progression.recomputeAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	begin := time.Now()
	report := &RecomputeAllReport{RunID: uuid.New().String()}
	span.SetAttributes(attribute.String("run_id", report.RunID))
	runLog := log.WithField("run_id", report.RunID)

	userIDs, err := s.profiles.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	report.Users = len(userIDs)
	runLog.Infof("recomputing %d users, concurrency %d", len(userIDs), s.concurrency)

	var recomputed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range userIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.Recompute(gctx, userID); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				runLog.WithField("user_id", userID).Errorf("recompute failed: %s", err)
				return nil
			}
			recomputed.Add(1)
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	report.Recomputed = int(recomputed.Load())
	report.Failed = int(failed.Load())
	report.Duration = time.Since(begin)
	s.metricsManager.HistRecomputeAllDuration.Observe(report.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("recomputed", report.Recomputed),
		attribute.Int("failed", report.Failed),
	)

	if waitErr != nil {
		return report, fmt.Errorf("recompute all: %w", waitErr)
	}

	runLog.Infof("recomputed %d/%d users in %s, %d failed", report.Recomputed, report.Users, report.Duration, report.Failed)
	return report, nil
}

// Level computes level info for an arbitrary XP amount without touching
// any stored profile.
func (s *Service) Level(totalXP int64, accountCreatedAt time.Time) (level.Info, error) {
	return s.engine.Level(totalXP, accountCreatedAt, s.now())
}

func (s *Service) loadProfile(ctx context.Context, userID string, now time.Time) (gymlog.Profile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		log.Debugf("no profile for [%s], starting a new one", userID)
		return gymlog.NewProfile(userID, now), nil
	}
	if err != nil {
		return gymlog.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if profile.MuscleScores == nil {
		profile.MuscleScores = map[string]float64{}
	}
	if profile.PersonalBests == nil {
		profile.PersonalBests = map[string]gymlog.WindowBests{}
	}
	return *profile, nil
}

func (s *Service) reportDiagnostics(userID string, diagnostics []Diagnostic) {
	for _, d := range diagnostics {
		s.metricsManager.CounterSkippedLogs.WithLabelValues(d.Reason).Inc()
		log.WithFields(log.Fields{
			"user_id": userID,
			"log_id":  d.LogID,
			"reason":  d.Reason,
		}).Warn("log skipped during recompute")
	}
}
