package progression_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/level"
	"github.com/tmduggan/gordon/internal/store"
	"github.com/tmduggan/gordon/internal/telemetry/metrics"
	"github.com/tmduggan/gordon/internal/timeutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type serviceMocks struct {
	profiles *MockprofileRepo
	logs     *MocklogsRepo
	library  *MocklibraryRepo
	cache    *MocksnapshotCache
	metrics  *metrics.Manager
}

func newTestService(t *testing.T, curve *level.Curve) (*progression.Service, serviceMocks) {
	ctrl := gomock.NewController(t)
	mocks := serviceMocks{
		profiles: NewMockprofileRepo(ctrl),
		logs:     NewMocklogsRepo(ctrl),
		library:  NewMocklibraryRepo(ctrl),
		cache:    NewMocksnapshotCache(ctrl),
		metrics:  metrics.NewTestManager(),
	}
	service := progression.NewService(progression.NewServiceParams{
		Engine:         progression.NewEngine(curve),
		Profiles:       mocks.profiles,
		Logs:           mocks.logs,
		Library:        mocks.library,
		Cache:          mocks.cache,
		MetricsManager: mocks.metrics,
		Concurrency:    3,
		Now:            func() time.Time { return now },
	})
	return service, mocks
}

func testLogs() []gymlog.LogEntry {
	return []gymlog.LogEntry{
		exerciseLog("1", "bench", now.Add(-time.Hour), 700),
		exerciseLog("2", "pushdown", now.AddDate(0, 0, -1), 300),
		exerciseLog("3", "removed", now.AddDate(0, 0, -2), 200),
	}
}

func TestService_Progress_CacheHit(t *testing.T) {
	service, mocks := newTestService(t, nil)
	cached := &progression.Snapshot{Profile: gymlog.NewProfile("u1", now)}

	mocks.cache.EXPECT().Get(gomock.Any(), "u1").Return(cached, nil)

	snap, err := service.Progress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, cached, snap)
	assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterCacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(mocks.metrics.CounterCacheMisses))
}

func TestService_Progress_CacheMissRecomputes(t *testing.T) {
	service, mocks := newTestService(t, nil)

	mocks.cache.EXPECT().Get(gomock.Any(), "u1").Return(nil, progression.ErrSnapshotNotCached)
	mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(nil, store.ErrProfileNotFound)
	mocks.logs.EXPECT().ListByUser(gomock.Any(), "u1").Return(testLogs(), nil)
	mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil)
	mocks.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, profile gymlog.Profile) error {
			assert.Equal(t, "u1", profile.UserID)
			assert.Equal(t, now, profile.AccountCreatedAt)
			assert.Equal(t, int64(1200), profile.TotalXP)
			assert.Equal(t, now, profile.UpdatedAt)
			return nil
		})
	mocks.cache.EXPECT().Set(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, snap progression.Snapshot) error {
			assert.Equal(t, 2, snap.Level.Level)
			return nil
		})

	snap, err := service.Progress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), snap.Profile.TotalXP)
	assert.Equal(t, 3, snap.Streaks.DailyStreak)

	assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterCacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterRecomputes.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterSkippedLogs.WithLabelValues(progression.ReasonUnknownExercise)))
}

func TestService_Progress_InvalidUser(t *testing.T) {
	service, _ := newTestService(t, nil)
	_, err := service.Progress(context.Background(), "")
	assert.ErrorIs(t, err, progression.ErrInvalidUserID)
}

func TestService_Recompute_CacheFailureIsNotFatal(t *testing.T) {
	service, mocks := newTestService(t, nil)
	stored := gymlog.NewProfile("u1", now.AddDate(-1, 0, 0))

	mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(&stored, nil)
	mocks.logs.EXPECT().ListByUser(gomock.Any(), "u1").Return(nil, nil)
	mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil)
	mocks.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, profile gymlog.Profile) error {
			assert.Equal(t, stored.AccountCreatedAt, profile.AccountCreatedAt)
			return nil
		})
	mocks.cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	snap, err := service.Recompute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Level.Level)
}

func TestService_Recompute_Errors(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		service, mocks := newTestService(t, nil)
		mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(nil, errors.New("db down"))

		_, err := service.Recompute(context.Background(), "u1")
		require.Error(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterRecomputes.WithLabelValues(metrics.ResultError)))
	})

	t.Run("level cap", func(t *testing.T) {
		curve, err := level.NewCurve(level.Curve{BaseXP: 1, GrowthRate: 1.0001, MaxDecayMultiplier: 1, MaxLevel: 5})
		require.NoError(t, err)
		service, mocks := newTestService(t, curve)

		mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(nil, store.ErrProfileNotFound)
		mocks.logs.EXPECT().ListByUser(gomock.Any(), "u1").Return(testLogs(), nil)
		mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil)

		_, err = service.Recompute(context.Background(), "u1")
		assert.ErrorIs(t, err, level.ErrLevelCapExceeded)
	})

	t.Run("save", func(t *testing.T) {
		service, mocks := newTestService(t, nil)
		mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(nil, store.ErrProfileNotFound)
		mocks.logs.EXPECT().ListByUser(gomock.Any(), "u1").Return(nil, nil)
		mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil)
		mocks.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("tx failed"))

		_, err := service.Recompute(context.Background(), "u1")
		assert.ErrorContains(t, err, "save profile")
	})
}

func TestService_ScoreWorkout(t *testing.T) {
	service, mocks := newTestService(t, nil)
	history := testLogs()

	mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil).Times(2)
	mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(nil, store.ErrProfileNotFound)
	mocks.logs.EXPECT().ListByUser(gomock.Any(), "u1").Return(history, nil)

	workout := gymlog.LogEntry{ExerciseID: "bench", Sets: []gymlog.Set{{Weight: 90, Reps: 8}}}
	score, err := service.ScoreWorkout(context.Background(), "u1", workout)
	require.NoError(t, err)

	meta, _ := testCatalog().Lookup("bench")
	workout.UserID = "u1"
	workout.Timestamp = timeutil.NewTimestamp(now)
	expected := progression.NewEngine(nil).ScoreWorkout(workout, history, meta, gymlog.NewProfile("u1", now))
	assert.Equal(t, expected, score)
	assert.Positive(t, score)
	assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterScoredWorkouts))

	_, err = service.ScoreWorkout(context.Background(), "u1", gymlog.LogEntry{ExerciseID: "nope"})
	assert.ErrorIs(t, err, progression.ErrUnknownExercise)
}

func expectRecompute(mocks serviceMocks, stored gymlog.Profile, logs []gymlog.LogEntry) {
	mocks.profiles.EXPECT().Get(gomock.Any(), stored.UserID).Return(&stored, nil)
	mocks.logs.EXPECT().ListByUser(gomock.Any(), stored.UserID).Return(logs, nil)
	mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil)
	mocks.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	mocks.cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil)
}

func TestService_DeleteLog(t *testing.T) {
	logs := testLogs()
	stored := gymlog.NewProfile("u1", now.AddDate(0, -2, 0))
	stored.TotalXP = 1200

	t.Run("consistent", func(t *testing.T) {
		service, mocks := newTestService(t, nil)
		victim := logs[0]

		mocks.logs.EXPECT().Get(gomock.Any(), "u1", "1").Return(&victim, nil)
		mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(&stored, nil)
		mocks.logs.EXPECT().Delete(gomock.Any(), "u1", "1").Return(nil)
		mocks.cache.EXPECT().Invalidate(gomock.Any(), "u1").Return(nil)
		expectRecompute(mocks, stored, logs[1:])

		snap, err := service.DeleteLog(context.Background(), "u1", "1")
		require.NoError(t, err)
		assert.Equal(t, int64(500), snap.Profile.TotalXP)
		assert.NotContains(t, snap.Profile.PersonalBests, "bench")
		assert.Equal(t, 0.0, testutil.ToFloat64(mocks.metrics.CounterXPDrift))
	})

	t.Run("drift", func(t *testing.T) {
		service, mocks := newTestService(t, nil)
		drifted := stored.Clone()
		drifted.TotalXP = 5000
		victim := logs[1]

		mocks.logs.EXPECT().Get(gomock.Any(), "u1", "2").Return(&victim, nil)
		mocks.profiles.EXPECT().Get(gomock.Any(), "u1").Return(&drifted, nil)
		mocks.logs.EXPECT().Delete(gomock.Any(), "u1", "2").Return(nil)
		mocks.cache.EXPECT().Invalidate(gomock.Any(), "u1").Return(errors.New("redis down"))
		expectRecompute(mocks, drifted, []gymlog.LogEntry{logs[0], logs[2]})

		snap, err := service.DeleteLog(context.Background(), "u1", "2")
		require.NoError(t, err)
		assert.Equal(t, int64(900), snap.Profile.TotalXP)
		assert.Equal(t, 1.0, testutil.ToFloat64(mocks.metrics.CounterXPDrift))
	})

	t.Run("not found", func(t *testing.T) {
		service, mocks := newTestService(t, nil)
		mocks.logs.EXPECT().Get(gomock.Any(), "u1", "x").Return(nil, store.ErrLogNotFound)

		_, err := service.DeleteLog(context.Background(), "u1", "x")
		assert.ErrorIs(t, err, store.ErrLogNotFound)
	})
}

func TestService_RecomputeAll(t *testing.T) {
	service, mocks := newTestService(t, nil)

	var userIDs []string
	for i := 0; i < 10; i++ {
		userIDs = append(userIDs, fmt.Sprintf("u%d", i))
	}

	var (
		mu    sync.Mutex
		saved = map[string]bool{}
	)
	mocks.profiles.EXPECT().ListUserIDs(gomock.Any()).Return(userIDs, nil)
	mocks.profiles.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, store.ErrProfileNotFound).Times(10)
	mocks.logs.EXPECT().ListByUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, userID string) ([]gymlog.LogEntry, error) {
			if userID == "u7" {
				return nil, errors.New("broken user")
			}
			return testLogs(), nil
		}).Times(10)
	mocks.library.EXPECT().Snapshot(gomock.Any()).Return(testCatalog(), nil).Times(9)
	mocks.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, profile gymlog.Profile) error {
			mu.Lock()
			defer mu.Unlock()
			saved[profile.UserID] = true
			return nil
		}).Times(9)
	mocks.cache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil).Times(9)

	report, err := service.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 10, report.Users)
	assert.Equal(t, 9, report.Recomputed)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, saved, 9)
	assert.False(t, saved["u7"])
}

func TestService_RecomputeAll_Cancelled(t *testing.T) {
	service, mocks := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mocks.profiles.EXPECT().ListUserIDs(gomock.Any()).Return([]string{"u1", "u2"}, nil)

	report, err := service.RecomputeAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Recomputed)
}

func TestService_RecomputeAll_ListError(t *testing.T) {
	service, mocks := newTestService(t, nil)
	mocks.profiles.EXPECT().ListUserIDs(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := service.RecomputeAll(context.Background())
	assert.Error(t, err)
}

func TestService_Level(t *testing.T) {
	service, _ := newTestService(t, nil)
	info, err := service.Level(1150, now)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Level)
}
