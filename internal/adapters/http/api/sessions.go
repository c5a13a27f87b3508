package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// SessionsHandler serves manual session creation and per-session operations.
type SessionsHandler struct {
	deps Dependencies
}

func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createSessionRequest struct {
	CreatorID  string `json:"creator_id"`
	Profession string `json:"profession"`
	Language   string `json:"language"`
	Slot       string `json:"slot"`
}

// HandlePostSession creates a session by hand, outside the matching flow.
// The creator fills roles afterwards via the role assignment endpoint.
func (h *SessionsHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	slotAt, err := time.Parse(time.RFC3339, req.Slot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: slot %q: %v", ErrBadRequest, req.Slot, err))
		return
	}

	sess, err := h.deps.CreateManualSession(r.Context(), req.CreatorID, req.Profession, req.Language, slotAt)
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// HandleSessionSubtree routes /sessions/{id}, /sessions/{id}/transition and
// /sessions/{id}/roles.
func (h *SessionsHandler) HandleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	sessionID := parts[0]

	switch {
	case len(parts) == 1:
		h.handleGetSession(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "transition":
		h.handleTransition(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "roles":
		h.handleAssignRole(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "not_found", nil)
	}
}

func (h *SessionsHandler) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	sess, err := h.deps.GetSession(r.Context(), sessionID)
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

type transitionRequest struct {
	Target string `json:"target"`
}

func (h *SessionsHandler) handleTransition(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	sess, err := h.deps.Transition(r.Context(), sessionID, model.SessionStatus(req.Target))
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

type assignRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *SessionsHandler) handleAssignRole(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	sess, err := h.deps.AssignRole(r.Context(), sessionID, req.UserID, model.Role(req.Role))
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// UsersHandler serves user-scoped lookups.
type UsersHandler struct {
	deps Dependencies
}

func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleUserSubtree routes /users/{id}/last-interview.
func (h *UsersHandler) HandleUserSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "last-interview" {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	sess, err := h.deps.FindLastAsInterviewer(r.Context(), parts[0])
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
