package quest

import "errors"

// Input errors returned to the caller verbatim. None of these are retried.
var (
	ErrNotFound      = errors.New("quest not found")
	ErrNotActive     = errors.New("quest is not open for signup")
	ErrAlreadyMember = errors.New("actor already joined this quest")
	ErrNotMember     = errors.New("actor is not a member of this quest")
	ErrQuestFull     = errors.New("quest has reached its participant cap")
	ErrCrossQuestCap = errors.New("actor already holds membership in another active member-capped quest")
	ErrRuleViolation = errors.New("quest rule violation")
	ErrBadStatus     = errors.New("quest status does not allow this operation")
)
