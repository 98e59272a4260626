package quest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateRequest carries a moderator's new quest definition.
type CreateRequest struct {
	Title           string
	Description     string
	Type            Type
	ParticipantCap  *int
	SignupDeadline  *time.Time
	RequiredVillage string
	PostedBy        string
}

// Create mints a new quest in draft status. Posting is a separate step so
// moderators can stage edits before the quest goes live.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (Quest, error) {
	if strings.TrimSpace(req.Title) == "" {
		return Quest{}, fmt.Errorf("%w: title is required", ErrRuleViolation)
	}
	if req.ParticipantCap != nil && *req.ParticipantCap <= 0 {
		return Quest{}, fmt.Errorf("%w: participant cap must be positive", ErrRuleViolation)
	}

	now := m.Clock.Now()
	q := Quest{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Status:          StatusDraft,
		Participants:    map[string]Participant{},
		ParticipantCap:  req.ParticipantCap,
		SignupDeadline:  req.SignupDeadline,
		RequiredVillage: req.RequiredVillage,
		PostedBy:        req.PostedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if m.Rules != nil {
		if err := m.Rules.ValidateTypeRules(q); err != nil {
			return Quest{}, fmt.Errorf("%w: %v", ErrRuleViolation, err)
		}
	}

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// Post activates a draft or unposted quest and pins its display artifact.
func (m *Manager) Post(ctx context.Context, questID string, ref DisplayRef) (Quest, error) {
	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}
	if q.Status != StatusDraft && q.Status != StatusUnposted {
		return Quest{}, fmt.Errorf("%w: cannot post a %s quest", ErrBadStatus, q.Status)
	}

	if m.Rules != nil {
		if err := m.Rules.ValidateTypeRules(q); err != nil {
			return Quest{}, fmt.Errorf("%w: %v", ErrRuleViolation, err)
		}
	}

	q.Status = StatusActive
	q.Display = &ref
	q.UpdatedAt = m.Clock.Now()

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// ProgressUpdate carries a participant's incremental activity.
type ProgressUpdate struct {
	RPPosts         int
	SuccessfulRolls int
	Submission      string
}

// UpdateProgress applies incremental activity to a member's record.
func (m *Manager) UpdateProgress(ctx context.Context, questID, actorID string, upd ProgressUpdate) (Quest, error) {
	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}
	if q.Status != StatusActive {
		return Quest{}, ErrNotActive
	}
	p, ok := q.Participants[actorID]
	if !ok {
		return Quest{}, ErrNotMember
	}
	if p.Progress == ProgressDisqualified {
		return Quest{}, fmt.Errorf("%w: participant is disqualified", ErrBadStatus)
	}

	p.RPPostCount += upd.RPPosts
	p.SuccessfulRolls += upd.SuccessfulRolls
	if s := strings.TrimSpace(upd.Submission); s != "" {
		p.Submissions = append(p.Submissions, s)
	}
	q.Participants[actorID] = p
	q.UpdatedAt = m.Clock.Now()

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// SetParticipantProgress is a moderator edit of one member's standing.
// completedNow reports a fresh in_progress -> completed transition so the
// caller can credit the actor's turn-in ledger exactly once.
func (m *Manager) SetParticipantProgress(ctx context.Context, questID, actorID string, progress ParticipantProgress) (Quest, bool, error) {
	switch progress {
	case ProgressInProgress, ProgressCompleted, ProgressDisqualified:
	default:
		return Quest{}, false, fmt.Errorf("%w: unknown progress %q", ErrRuleViolation, progress)
	}

	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, false, err
	}
	if !ok {
		return Quest{}, false, ErrNotFound
	}
	p, ok := q.Participants[actorID]
	if !ok {
		return Quest{}, false, ErrNotMember
	}

	completedNow := progress == ProgressCompleted && p.Progress != ProgressCompleted
	p.Progress = progress
	q.Participants[actorID] = p
	q.UpdatedAt = m.Clock.Now()

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, false, err
	}
	return q, completedNow, nil
}

// Close moves an active quest to a terminal status.
func (m *Manager) Close(ctx context.Context, questID string, status Status) (Quest, error) {
	switch status {
	case StatusCompleted, StatusCancelled, StatusExpired:
	default:
		return Quest{}, fmt.Errorf("%w: %q is not a terminal status", ErrBadStatus, status)
	}

	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}
	if q.Status != StatusActive {
		return Quest{}, fmt.Errorf("%w: cannot close a %s quest", ErrBadStatus, q.Status)
	}

	q.Status = status
	q.UpdatedAt = m.Clock.Now()

	if err := m.Quests.Put(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// Get loads a single quest.
func (m *Manager) Get(ctx context.Context, questID string) (Quest, error) {
	q, ok, err := m.Quests.Get(ctx, questID)
	if err != nil {
		return Quest{}, err
	}
	if !ok {
		return Quest{}, ErrNotFound
	}
	return q, nil
}

// List returns every quest, sorted by ID.
func (m *Manager) List(ctx context.Context) ([]Quest, error) {
	return m.Quests.List(ctx)
}
