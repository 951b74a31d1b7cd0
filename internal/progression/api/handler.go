package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/middleware"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/level"
	"github.com/tmduggan/gordon/internal/store"
	"github.com/tmduggan/gordon/internal/telemetry/metrics"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
	"github.com/tmduggan/gordon/internal/timeutil"
	"github.com/tmduggan/gordon/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=api_test

type service interface {
	Progress(ctx context.Context, userID string) (*progression.Snapshot, error)
	Recompute(ctx context.Context, userID string) (*progression.Snapshot, error)
	ScoreWorkout(ctx context.Context, userID string, workout gymlog.LogEntry) (int, error)
	DeleteLog(ctx context.Context, userID, logID string) (*progression.Snapshot, error)
	Level(totalXP int64, accountCreatedAt time.Time) (level.Info, error)
}

type ScoreResponse struct {
	UserID     string `json:"userId"`
	ExerciseID string `json:"exerciseId"`
	Score      int    `json:"score"`
}

type Handler struct {
	service service
}

func NewHandler(service service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	recomputeAllowedPerMin int,
) {
	r.HandleFunc("/progression/curve/level", h.HandleLevel).Methods("GET").Name("curve-level")
	r.HandleFunc("/progression/{userID}", h.HandleProgress).Methods("GET").Name("progress")
	r.HandleFunc("/progression/{userID}/score", h.HandleScore).Methods("POST").Name("score-workout")
	r.HandleFunc("/progression/{userID}/logs/{logID}", h.HandleDeleteLog).Methods("DELETE").Name("delete-log")

	rateLimited := middleware.RateLimit(rateLimiter, metricsManager, "recompute", recomputeAllowedPerMin)
	r.Handle("/progression/{userID}/recompute", rateLimited(http.HandlerFunc(h.HandleRecompute))).Methods("POST").Name("recompute")
}

func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.progress")
	defer span.End()

	userID := mux.Vars(r)["userID"]
	span.SetAttributes(attribute.String("user_id", userID))

	snapshot, err := h.service.Progress(ctx, userID)
	if err != nil {
		writeServiceError(w, "get progress", err)
		return
	}
	pkg.WriteJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.recompute")
	defer span.End()

	userID := mux.Vars(r)["userID"]
	span.SetAttributes(attribute.String("user_id", userID))

	snapshot, err := h.service.Recompute(ctx, userID)
	if err != nil {
		writeServiceError(w, "recompute", err)
		return
	}
	pkg.WriteJSON(w, snapshot, http.StatusOK)
}

func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.score")
	defer span.End()

	if !pkg.IsJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID := mux.Vars(r)["userID"]
	span.SetAttributes(attribute.String("user_id", userID))

	var workout gymlog.LogEntry
	if err := pkg.DecodeJSON(w, r, &workout); err != nil {
		log.Errorf("score workout, unmarshal json params: %s", err)
		http.Error(w, "invalid workout", http.StatusBadRequest)
		return
	}
	if !workout.IsExercise() {
		http.Error(w, "missing exercise id", http.StatusBadRequest)
		return
	}

	score, err := h.service.ScoreWorkout(ctx, userID, workout)
	if err != nil {
		writeServiceError(w, "score workout", err)
		return
	}
	pkg.WriteJSON(w, ScoreResponse{
		UserID:     userID,
		ExerciseID: workout.ExerciseID,
		Score:      score,
	}, http.StatusOK)
}

func (h *Handler) HandleDeleteLog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.deleteLog")
	defer span.End()

	vars := mux.Vars(r)
	userID, logID := vars["userID"], vars["logID"]
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("log_id", logID))

	snapshot, err := h.service.DeleteLog(ctx, userID, logID)
	if err != nil {
		writeServiceError(w, "delete log", err)
		return
	}
	pkg.WriteJSON(w, snapshot, http.StatusOK)
}

// HandleLevel is a pure curve lookup: ?xp=<int>[&created=<timestamp>].
func (h *Handler) HandleLevel(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.progression.level")
	defer span.End()

	xpParam := r.URL.Query().Get("xp")
	totalXP, err := strconv.ParseInt(xpParam, 10, 64)
	if err != nil {
		http.Error(w, "invalid xp", http.StatusBadRequest)
		return
	}

	var createdAt time.Time
	if createdParam := r.URL.Query().Get("created"); createdParam != "" {
		t, ok := timeutil.Normalize(createdParam)
		if !ok {
			http.Error(w, "invalid created", http.StatusBadRequest)
			return
		}
		createdAt = t
	}

	info, err := h.service.Level(totalXP, createdAt)
	if err != nil {
		writeServiceError(w, "level", err)
		return
	}
	pkg.WriteJSON(w, info, http.StatusOK)
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, progression.ErrInvalidUserID),
		errors.Is(err, progression.ErrUnknownExercise):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrLogNotFound),
		errors.Is(err, store.ErrProfileNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, op+" failed", http.StatusInternalServerError)
	}
}
