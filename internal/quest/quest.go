package quest

import (
	"time"
)

// Type categorizes quests by the kind of activity they track.
type Type string

const (
	TypeArt         Type = "Art"
	TypeWriting     Type = "Writing"
	TypeInteractive Type = "Interactive"
	TypeRP          Type = "RP"
	TypeArtWriting  Type = "ArtWriting"
	TypeOther       Type = "Other"
)

// Status tracks the lifecycle of a quest.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusUnposted  Status = "unposted"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ParticipantProgress tracks a single member's standing within a quest.
type ParticipantProgress string

const (
	ProgressInProgress   ParticipantProgress = "in_progress"
	ProgressCompleted    ParticipantProgress = "completed"
	ProgressDisqualified ParticipantProgress = "disqualified"
)

// DisplayRef points at the externally rendered summary artifact. The format
// of the artifact itself is owned by the display renderer.
type DisplayRef struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// Participant is the per-actor membership record nested in a quest.
type Participant struct {
	CharacterName   string              `json:"characterName"`
	Progress        ParticipantProgress `json:"progress"`
	RPPostCount     int                 `json:"rpPostCount"`
	SuccessfulRolls int                 `json:"successfulRolls"`
	RequiredVillage string              `json:"requiredVillage,omitempty"`
	Submissions     []string            `json:"submissions,omitempty"`
	JoinedAt        time.Time           `json:"joinedAt"`
	UsedVoucher     bool                `json:"usedVoucher,omitempty"`
}

// Quest is a shared, time-bounded community task with a participant roster.
// Participants is the one canonical container, keyed by actor ID.
type Quest struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	Type            Type                   `json:"type"`
	Status          Status                 `json:"status"`
	Participants    map[string]Participant `json:"participants"`
	ParticipantCap  *int                   `json:"participantCap,omitempty"`
	SignupDeadline  *time.Time             `json:"signupDeadline,omitempty"`
	RequiredVillage string                 `json:"requiredVillage,omitempty"`
	Display         *DisplayRef            `json:"display,omitempty"`
	PostedBy        string                 `json:"postedBy,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// Capped reports whether the quest limits its roster size.
func (q *Quest) Capped() bool {
	return q.ParticipantCap != nil && *q.ParticipantCap > 0
}

// Full reports whether the roster has reached the participant cap.
func (q *Quest) Full() bool {
	return q.Capped() && len(q.Participants) >= *q.ParticipantCap
}

// OpenForSignup reports whether an actor may still join at the given time.
func (q *Quest) OpenForSignup(now time.Time) bool {
	if q.Status != StatusActive {
		return false
	}
	if q.SignupDeadline != nil && now.After(*q.SignupDeadline) {
		return false
	}
	return true
}

// HasMember reports whether the actor already owns a membership entry.
// Membership is keyed by actor, not character.
func (q *Quest) HasMember(actorID string) bool {
	_, ok := q.Participants[actorID]
	return ok
}

func (q *Quest) ensureParticipants() {
	if q.Participants == nil {
		q.Participants = map[string]Participant{}
	}
}
