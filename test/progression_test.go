//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmduggan/gordon/internal/middleware"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/api"
	"github.com/tmduggan/gordon/internal/progression/level"
)

const seedSQL = `
INSERT INTO exercise_meta (id, target, secondary_muscles, equipment, difficulty, category) VALUES
    ('bench', 'pectorals', '["triceps", "delts"]', 'barbell', 'intermediate', 'strength'),
    ('pushdown', 'triceps', '[]', 'cable', 'beginner', 'strength');

INSERT INTO workout_log (id, user_id, exercise_id, timestamp, sets, duration, score) VALUES
    ('l1', 'u1', 'bench', '"2024-06-10T10:00:00Z"', '[{"weight": 80, "reps": 8}]', 0, 700),
    ('l2', 'u1', 'pushdown', '{"seconds": 1718100000, "nanoseconds": 0}', '[{"weight": 30, "reps": 12}]', 0, 300),
    ('l3', 'u1', '', NULL, '[]', 0, 50);
`

func (s *IntegrationTestSuite) do(ctx context.Context, method, path, body string, withToken bool) (int, []byte) {
	t := s.T()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		req.Header.Set(middleware.ServiceTokenHeader, testServiceToken)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) TestProgressionFlow() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	_, err := s.DB.ExecContext(ctx, seedSQL)
	require.NoError(t, err)

	status, body := s.do(ctx, http.MethodGet, "/progression/u1", "", false)
	require.Equal(t, http.StatusOK, status, string(body))

	var snapshot progression.Snapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, int64(1050), snapshot.Profile.TotalXP)
	assert.Contains(t, snapshot.Profile.PersonalBests, "bench")
	assert.Contains(t, snapshot.Profile.PersonalBests, "pushdown")
	assert.Equal(t, 1.0, snapshot.Profile.MuscleScores["pectorals"])
	assert.Len(t, snapshot.Diagnostics, 1)

	// served from redis the second time
	status, body = s.do(ctx, http.MethodGet, "/progression/u1", "", false)
	require.Equal(t, http.StatusOK, status)
	var cached progression.Snapshot
	require.NoError(t, json.Unmarshal(body, &cached))
	assert.Equal(t, snapshot.Profile.TotalXP, cached.Profile.TotalXP)

	status, body = s.do(ctx, http.MethodPost, "/progression/u1/score",
		`{"exerciseId": "bench", "sets": [{"weight": 90, "reps": 8}]}`, true)
	require.Equal(t, http.StatusOK, status, string(body))
	var scoreResp api.ScoreResponse
	require.NoError(t, json.Unmarshal(body, &scoreResp))
	assert.Equal(t, "bench", scoreResp.ExerciseID)
	assert.Positive(t, scoreResp.Score)

	status, _ = s.do(ctx, http.MethodPost, "/progression/u1/score", `{"exerciseId": "nope"}`, true)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(ctx, http.MethodDelete, "/progression/u1/logs/l2", "", true)
	require.Equal(t, http.StatusOK, status, string(body))
	var afterDelete progression.Snapshot
	require.NoError(t, json.Unmarshal(body, &afterDelete))
	assert.Equal(t, int64(750), afterDelete.Profile.TotalXP)
	assert.NotContains(t, afterDelete.Profile.PersonalBests, "pushdown")

	status, _ = s.do(ctx, http.MethodDelete, "/progression/u1/logs/l2", "", true)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(ctx, http.MethodPost, "/progression/u1/recompute", "", false)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(ctx, http.MethodPost, "/progression/u1/recompute", "", true)
	require.Equal(t, http.StatusOK, status, string(body))
	var recomputed progression.Snapshot
	require.NoError(t, json.Unmarshal(body, &recomputed))
	assert.Equal(t, afterDelete.Profile.TotalXP, recomputed.Profile.TotalXP)
}

func (s *IntegrationTestSuite) TestLevelCurve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, body := s.do(ctx, http.MethodGet, "/progression/curve/level?xp=0", "", false)
	require.Equal(t, http.StatusOK, status)
	var info level.Info
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, 1, info.Level)

	status, _ = s.do(ctx, http.MethodGet, "/progression/curve/level?xp=lots", "", false)
	assert.Equal(t, http.StatusBadRequest, status)
}

func (s *IntegrationTestSuite) TestMetricsEndpoint() {
	t := s.T()

	resp, err := s.httpClient.Get(metricsEndpoint + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "progression_main_life_signal 1")
	assert.Contains(t, string(body), fmt.Sprintf("pgxpool_max_conns{db_name=%q}", testDBName))
}
