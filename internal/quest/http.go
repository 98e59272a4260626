package quest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Actions is the quest-facing surface of the orchestrator.
type Actions interface {
	Join(ctx context.Context, req JoinRequest) (Quest, error)
	Leave(ctx context.Context, questID, actorID string) (Quest, error)
	CreateQuest(ctx context.Context, req CreateRequest) (Quest, error)
	PostQuest(ctx context.Context, questID string, ref DisplayRef) (Quest, error)
	UpdateProgress(ctx context.Context, questID, actorID string, upd ProgressUpdate) (Quest, error)
	SetParticipantProgress(ctx context.Context, questID, actorID string, progress ParticipantProgress) (Quest, error)
	CloseQuest(ctx context.Context, questID string, status Status) (Quest, error)
	GetQuest(ctx context.Context, questID string) (Quest, error)
	ListQuests(ctx context.Context) ([]Quest, error)
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

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

// statusFor maps the input-error taxonomy onto HTTP codes. Anything outside
// the taxonomy is a store failure and surfaces as 500 with no retry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotMember):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrQuestFull),
		errors.Is(err, ErrCrossQuestCap),
		errors.Is(err, ErrNotActive),
		errors.Is(err, ErrBadStatus):
		return http.StatusConflict
	case errors.Is(err, ErrRuleViolation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type createPayload struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	ParticipantCap  *int   `json:"participantCap"`
	SignupDeadline  string `json:"signupDeadline"`
	RequiredVillage string `json:"requiredVillage"`
	PostedBy        string `json:"postedBy"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	req := CreateRequest{
		Title:           p.Title,
		Description:     p.Description,
		Type:            Type(p.Type),
		ParticipantCap:  p.ParticipantCap,
		RequiredVillage: p.RequiredVillage,
		PostedBy:        p.PostedBy,
	}
	if p.SignupDeadline != "" {
		dl, err := time.Parse(time.RFC3339, p.SignupDeadline)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "signupDeadline must be RFC3339"})
			return
		}
		req.SignupDeadline = &dl
	}
	q, err := h.actions.CreateQuest(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

type postPayload struct {
	QuestID   string `json:"questId"`
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p postPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.PostQuest(r.Context(), p.QuestID, DisplayRef{ChannelID: p.ChannelID, MessageID: p.MessageID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type joinPayload struct {
	QuestID       string `json:"questId"`
	ActorID       string `json:"actorId"`
	CharacterName string `json:"characterName"`
	ActorVillage  string `json:"actorVillage"`
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p joinPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.Join(r.Context(), JoinRequest{
		QuestID:       p.QuestID,
		ActorID:       p.ActorID,
		CharacterName: p.CharacterName,
		ActorVillage:  p.ActorVillage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type leavePayload struct {
	QuestID string `json:"questId"`
	ActorID string `json:"actorId"`
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p leavePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.Leave(r.Context(), p.QuestID, p.ActorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type progressPayload struct {
	QuestID         string `json:"questId"`
	ActorID         string `json:"actorId"`
	RPPosts         int    `json:"rpPosts"`
	SuccessfulRolls int    `json:"successfulRolls"`
	Submission      string `json:"submission"`
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p progressPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.UpdateProgress(r.Context(), p.QuestID, p.ActorID, ProgressUpdate{
		RPPosts:         p.RPPosts,
		SuccessfulRolls: p.SuccessfulRolls,
		Submission:      p.Submission,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type moderatePayload struct {
	QuestID  string `json:"questId"`
	ActorID  string `json:"actorId"`
	Progress string `json:"progress"`
}

func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p moderatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.SetParticipantProgress(r.Context(), p.QuestID, p.ActorID, ParticipantProgress(p.Progress))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type closePayload struct {
	QuestID string `json:"questId"`
	Status  string `json:"status"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var p closePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	q, err := h.actions.CloseQuest(r.Context(), p.QuestID, Status(p.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
		return
	}
	q, err := h.actions.GetQuest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	quests, err := h.actions.ListQuests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}
