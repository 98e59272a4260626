package rules

import (
	"fmt"
	"strings"

	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/config"
	"github.com/Ruutuli/Tinglebot2.0-sub009/internal/quest"
)

// Validator applies config-driven, quest-type specific rules. It implements
// quest.RuleValidator.
type Validator struct {
	cfg *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateTypeRules checks structural rules for a quest definition. A
// participant cap is only meaningful for quest types that run member-capped.
func (v *Validator) ValidateTypeRules(q quest.Quest) error {
	if q.Type == "" {
		return fmt.Errorf("quest type is required")
	}
	if q.Capped() && !v.memberCapType(q.Type) {
		return fmt.Errorf("%s quests cannot carry a participant cap", q.Type)
	}
	if q.Type == quest.TypeRP && v.cfg.Quests.Rules.RPRequiresVillage && strings.TrimSpace(q.RequiredVillage) == "" {
		return fmt.Errorf("RP quests must name a required village")
	}
	return nil
}

// ValidateLocationRule checks an actor's eligibility at join time. Only RP
// quests constrain the actor's current location.
func (v *Validator) ValidateLocationRule(q quest.Quest, actorVillage string) error {
	if q.Type != quest.TypeRP || !v.cfg.Quests.Rules.RPRequiresVillage {
		return nil
	}
	if q.RequiredVillage == "" {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(actorVillage), q.RequiredVillage) {
		return fmt.Errorf("actor must be in %s to join this RP quest", q.RequiredVillage)
	}
	return nil
}

func (v *Validator) memberCapType(t quest.Type) bool {
	for _, allowed := range v.cfg.Quests.Rules.MemberCapTypes {
		if string(t) == allowed {
			return true
		}
	}
	return false
}
