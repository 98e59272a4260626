package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Actions is the ledger-facing surface of the orchestrator.
type Actions interface {
	TurnInSummary(ctx context.Context, actorID string) (Summary, error)
	LegacyTransfer(ctx context.Context, actorID string, totalCompleted, pendingTurnIns int) (Summary, error)
	Redeem(ctx context.Context, actorID string, grant GrantFunc) (Summary, error)
}

type Handler struct {
	actions Actions
}

func NewHandler(actions Actions) *Handler {
	return &Handler{actions: actions}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAlreadyTransferred), errors.Is(err, ErrInsufficientTurnIns):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransfer):
		return http.StatusBadRequest
	case errors.Is(err, ErrRewardGrantFailed):
		// The batch is gone and the reward is not: an operator has to
		// reconcile, so this is not a plain client error.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actorID := r.URL.Query().Get("actorId")
	if actorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "actorId is required"})
		return
	}
	sum, err := h.actions.TurnInSummary(r.Context(), actorID)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type transferPayload struct {
	ActorID        string `json:"actorId"`
	TotalCompleted int    `json:"totalCompleted"`
	PendingTurnIns int    `json:"pendingTurnIns"`
}

func (h *Handler) LegacyTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p transferPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if p.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "actorId is required"})
		return
	}
	sum, err := h.actions.LegacyTransfer(r.Context(), p.ActorID, p.TotalCompleted, p.PendingTurnIns)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type redeemPayload struct {
	ActorID string `json:"actorId"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p redeemPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if p.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "actorId is required"})
		return
	}
	// Reward granting is the caller's follow-up step; over HTTP the grant is
	// acknowledged by the client after a successful consume.
	sum, err := h.actions.Redeem(r.Context(), p.ActorID, nil)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
