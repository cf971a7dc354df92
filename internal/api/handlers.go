// Package api exposes HTTP handlers for the training service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"example.com/training/internal/auth"
	"example.com/training/internal/domain"
	"example.com/training/internal/persistence"
)

const (
	defaultListLimit   = 20
	maxListLimit       = 100
	defaultWindowHours = 24
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/summaries", h.summarize).Methods(http.MethodPost)
	v1.HandleFunc("/trainings", h.createTraining).Methods(http.MethodPost)
	v1.HandleFunc("/trainings", h.listTrainings).Methods(http.MethodGet)
	v1.HandleFunc("/trainings/stats", h.trainingStats).Methods(http.MethodGet)
	v1.HandleFunc("/trainings/{id}", h.getTraining).Methods(http.MethodGet)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingsRead, auth.ScopeTrainingsWrite); !ok {
		return
	}

	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.WorkoutType) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "workout_type is required")
		return
	}

	summary, err := h.service.Summarize(req.WorkoutType, req.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (h *Handler) createTraining(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingsWrite)
	if !ok {
		return
	}

	var req CreateTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	aggregate, replay, err := h.service.RecordTraining(r.Context(), domain.RecordTrainingInput{
		TenantID:       claims.TenantID,
		UserID:         req.UserID,
		Code:           req.WorkoutType,
		Data:           req.Data,
		StartedAt:      req.StartedAt,
		Source:         req.Source,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CreateTrainingResponse{
		TrainingID: aggregate.ID,
		Status:     string(aggregate.State),
		Replay:     replay,
		Summary:    toSummaryView(aggregate.Summary),
	}

	status := http.StatusAccepted
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (h *Handler) getTraining(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingsRead, auth.ScopeTrainingsWrite)
	if !ok {
		return
	}

	aggregate, err := h.service.GetTraining(r.Context(), claims.TenantID, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrainingView(*aggregate))
}

func (h *Handler) listTrainings(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingsRead, auth.ScopeTrainingsWrite)
	if !ok {
		return
	}

	query := r.URL.Query()
	userID := query.Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := defaultListLimit
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}

	cursor, err := persistence.DecodeCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	aggregates, next, err := h.service.ListTrainingsByUser(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]TrainingView, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, toTrainingView(agg))
	}
	writeJSON(w, http.StatusOK, ListTrainingsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) trainingStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingsRead, auth.ScopeTrainingsWrite)
	if !ok {
		return
	}

	query := r.URL.Query()
	userID := query.Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	windowHours := defaultWindowHours
	if raw := query.Get("window_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "window_hours must be a non-negative integer")
			return
		}
		windowHours = parsed
	}

	stats, err := h.service.GetTrainingStats(r.Context(), claims.TenantID, userID, time.Duration(windowHours)*time.Hour)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil, false
	}
	return claims, true
}

// CreateTrainingRequest is the payload for POST /v1/trainings.
type CreateTrainingRequest struct {
	UserID      string    `json:"user_id"`
	WorkoutType string    `json:"workout_type"`
	Data        []float64 `json:"data"`
	StartedAt   time.Time `json:"started_at"`
	Source      string    `json:"source"`
}

// Validate ensures request correctness. Package contents are checked by the domain.
func (r CreateTrainingRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.WorkoutType) == "" {
		return errors.New("workout_type is required")
	}
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	return nil
}

// SummaryRequest is the payload for POST /v1/summaries.
type SummaryRequest struct {
	WorkoutType string    `json:"workout_type"`
	Data        []float64 `json:"data"`
}

// SummaryView renders a summary together with its report line.
type SummaryView struct {
	domain.Summary
	Message string `json:"message"`
}

// CreateTrainingResponse describes the response body for create.
type CreateTrainingResponse struct {
	TrainingID string      `json:"training_id"`
	Status     string      `json:"status"`
	Replay     bool        `json:"idempotent_replay"`
	Summary    SummaryView `json:"summary"`
}

// TrainingView exposes full details about a training.
type TrainingView struct {
	TrainingID  string      `json:"training_id"`
	TenantID    string      `json:"tenant_id"`
	UserID      string      `json:"user_id"`
	WorkoutType string      `json:"workout_type"`
	Data        []float64   `json:"data"`
	Summary     SummaryView `json:"summary"`
	StartedAt   time.Time   `json:"started_at"`
	Source      string      `json:"source"`
	Version     string      `json:"version"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ListTrainingsResponse packages list results.
type ListTrainingsResponse struct {
	Items      []TrainingView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTrainingNotFound):
		writeError(w, http.StatusNotFound, "not_found", "training not found")
	case errors.Is(err, domain.ErrUnsupportedWorkoutType),
		errors.Is(err, domain.ErrInvalidArgumentCount),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrUserIDRequired),
		errors.Is(err, domain.ErrNonFiniteSummary):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toSummaryView(s domain.Summary) SummaryView {
	return SummaryView{Summary: s, Message: s.Message()}
}

func toTrainingView(agg domain.TrainingAggregate) TrainingView {
	return TrainingView{
		TrainingID:  agg.ID,
		TenantID:    agg.TenantID,
		UserID:      agg.UserID,
		WorkoutType: agg.WorkoutType.Code(),
		Data:        agg.Inputs,
		Summary:     toSummaryView(agg.Summary),
		StartedAt:   agg.StartedAt,
		Source:      agg.Source,
		Version:     agg.Version,
		Status:      string(agg.State),
		CreatedAt:   agg.CreatedAt,
		UpdatedAt:   agg.UpdatedAt,
	}
}
