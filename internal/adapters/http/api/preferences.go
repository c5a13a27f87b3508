package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// PreferencesHandler serves enrollment, withdrawal and tool endpoints.
type PreferencesHandler struct {
	deps Dependencies
}

func NewPreferencesHandler(deps Dependencies) *PreferencesHandler {
	return &PreferencesHandler{deps: deps}
}

type preferenceRequest struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`
	Profession string   `json:"profession"`
	Language   string   `json:"language"`
	Slots      []string `json:"slots"`
}

type preferenceResponse struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Role      string   `json:"role"`
	Slots     []string `json:"slots"`
	CreatedAt string   `json:"created_at"`
}

// HandlePostPreferences records a user's latest interview preference and
// enqueues them for matching in every requested slot.
func (h *PreferencesHandler) HandlePostPreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	slots := make([]time.Time, 0, len(req.Slots))
	for _, raw := range req.Slots {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: slot %q: %v", ErrBadRequest, raw, err))
			return
		}
		slots = append(slots, t)
	}

	pref, err := h.deps.OnPreferenceSaved(r.Context(), req.UserID, model.Role(req.Role), req.Profession, req.Language, slots)
	if err != nil {
		translateError(w, err)
		return
	}

	out := preferenceResponse{
		ID:        pref.ID,
		UserID:    pref.UserID,
		Role:      string(pref.Role),
		Slots:     make([]string, 0, len(pref.Slots)),
		CreatedAt: pref.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, s := range pref.Slots {
		out.Slots = append(out.Slots, s.UTC().Format(time.RFC3339))
	}
	writeJSON(w, http.StatusCreated, out)
}

type withdrawalRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// HandlePostWithdrawal removes a user's waiting queue entries for a role.
func (h *PreferencesHandler) HandlePostWithdrawal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	removed, err := h.deps.OnUserWithdrawn(r.Context(), req.UserID, model.Role(req.Role))
	if err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type toolsRequest struct {
	UserID     string   `json:"user_id"`
	Profession string   `json:"profession"`
	Tools      []string `json:"tools"`
}

// HandlePostTools stores the tool list used for ranking compatible partners.
func (h *PreferencesHandler) HandlePostTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var req toolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	if err := h.deps.SaveTools(r.Context(), req.UserID, req.Profession, req.Tools); err != nil {
		translateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
