package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// RuleName identifies one instructor-configurable completion rule.
type RuleName string

const (
	RuleAttendance          RuleName = "attendance"
	RuleEngagementChats     RuleName = "engagementChats"
	RuleEngagementTalks     RuleName = "engagementTalks"
	RuleEngagementRaiseHand RuleName = "engagementRaiseHand"
	RuleEngagementPollVotes RuleName = "engagementPollVotes"
	RuleEngagementEmojis    RuleName = "engagementEmojis"
)

// Recognised reports whether the rule name belongs to the known set.
// Unrecognised names are ignored by the evaluator, never an error.
func (r RuleName) Recognised() bool {
	switch r {
	case RuleAttendance, RuleEngagementChats, RuleEngagementTalks,
		RuleEngagementRaiseHand, RuleEngagementPollVotes, RuleEngagementEmojis:
		return true
	}
	return false
}

// MetricKey returns the engagement metric this rule is compared against, or
// empty for the attendance rule which compares against total minutes.
func (r RuleName) MetricKey() string {
	switch r {
	case RuleEngagementChats:
		return "chats"
	case RuleEngagementTalks:
		return "talks"
	case RuleEngagementRaiseHand:
		return "raisehand"
	case RuleEngagementPollVotes:
		return "pollvotes"
	case RuleEngagementEmojis:
		return "emojis"
	}
	return ""
}

// CompletionRule is one enabled/threshold pair. The rule only participates in
// the verdict when Enabled is true.
type CompletionRule struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold"`
}

// CompletionRuleSet maps rule names to their configuration. It is supplied by
// the surrounding platform per activity.
type CompletionRuleSet map[RuleName]CompletionRule

// ParseRuleSet converts the stored per-instance rule configuration into a
// typed rule set. Entries that do not decode as enabled/threshold pairs are
// dropped.
func ParseRuleSet(raw datatypes.JSONMap) CompletionRuleSet {
	rules := CompletionRuleSet{}
	for name, value := range raw {
		payload, err := json.Marshal(value)
		if err != nil {
			continue
		}
		var rule CompletionRule
		if err := json.Unmarshal(payload, &rule); err != nil {
			continue
		}
		rules[RuleName(name)] = rule
	}
	return rules
}

// Active returns the recognised, enabled rules of the set.
func (s CompletionRuleSet) Active() map[RuleName]CompletionRule {
	active := make(map[RuleName]CompletionRule)
	for name, rule := range s {
		if rule.Enabled && name.Recognised() {
			active[name] = rule
		}
	}
	return active
}

// CompletionState is the binary completion verdict for one user.
type CompletionState string

const (
	CompletionComplete   CompletionState = "complete"
	CompletionIncomplete CompletionState = "incomplete"
)
