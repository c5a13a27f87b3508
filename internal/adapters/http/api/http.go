// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	OnPreferenceSaved(ctx context.Context, userID string, role model.Role, profession, language string, slots []time.Time) (model.Preference, error)
	OnUserWithdrawn(ctx context.Context, userID string, role model.Role) (int, error)
	SaveTools(ctx context.Context, userID, profession string, tools []string) error

	GetSession(ctx context.Context, sessionID string) (model.Session, error)
	Transition(ctx context.Context, sessionID string, target model.SessionStatus) (model.Session, error)
	AssignRole(ctx context.Context, sessionID, userID string, role model.Role) (model.Session, error)
	CreateManualSession(ctx context.Context, creatorID, profession, language string, slotAt time.Time) (model.Session, error)
	FindLastAsInterviewer(ctx context.Context, userID string) (model.Session, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	preferencesHandler *PreferencesHandler
	sessionsHandler    *SessionsHandler
	usersHandler       *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		preferencesHandler: NewPreferencesHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		usersHandler:       NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/preferences", MetricsMiddleware(s.preferencesHandler.HandlePostPreferences, "preferences"))
	mux.HandleFunc("/withdrawals", MetricsMiddleware(s.preferencesHandler.HandlePostWithdrawal, "withdrawals"))
	mux.HandleFunc("/tools", MetricsMiddleware(s.preferencesHandler.HandlePostTools, "tools"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSession, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSessionSubtree, "sessions"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUserSubtree, "users"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// sessionResponse mirrors the JSON shape returned for sessions.
type sessionResponse struct {
	ID            string   `json:"id"`
	InterviewerID string   `json:"interviewer_id,omitempty"`
	CandidateID   string   `json:"candidate_id,omitempty"`
	ObserverIDs   []string `json:"observer_ids,omitempty"`
	Slot          string   `json:"slot"`
	Profession    string   `json:"profession"`
	Language      string   `json:"language"`
	Status        string   `json:"status"`
	VideoURL      string   `json:"video_url,omitempty"`
	VideoStatus   string   `json:"video_status"`
	CreatorID     string   `json:"creator_id,omitempty"`
	CreatedAt     string   `json:"created_at"`
	StartedAt     string   `json:"started_at,omitempty"`
}

func toSessionResponse(s model.Session) sessionResponse {
	resp := sessionResponse{
		ID:            s.ID,
		InterviewerID: s.InterviewerID,
		CandidateID:   s.CandidateID,
		ObserverIDs:   s.ObserverIDs,
		Slot:          s.Slot.UTC().Format(time.RFC3339),
		Profession:    s.Profession,
		Language:      s.Language,
		Status:        string(s.Status),
		VideoURL:      s.VideoURL,
		VideoStatus:   string(s.VideoStatus),
		CreatorID:     s.CreatorID,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.StartedAt != nil {
		resp.StartedAt = s.StartedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
