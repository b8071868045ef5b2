package director

import (
	"regexp"

	"github.com/edtronaut/coworker/types"
)

// ObjectiveRule maps trigger phrasing in the conversation to a scenario
// objective. Rules are static scenario configuration.
type ObjectiveRule struct {
	ID      string
	Phase   string // phase the scenario moves to when the objective is touched; "" keeps the current phase
	Pattern *regexp.Regexp
}

// DefaultObjectiveRules returns the objective triggers of the builtin
// workplace negotiation scenario.
func DefaultObjectiveRules() []ObjectiveRule {
	return []ObjectiveRule{
		{
			ID:      "negotiation_opened",
			Phase:   "negotiation",
			Pattern: regexp.MustCompile(`(?i)\b(raise|salary|compensation|promotion|negotiat\w*)\b`),
		},
		{
			ID:      "evidence_presented",
			Pattern: regexp.MustCompile(`(?i)\b(my (results|metrics|numbers)|i delivered|track record|performance review)\b`),
		},
		{
			ID:      "counterpart_position_explored",
			Pattern: regexp.MustCompile(`(?i)\b(what (would|do) you need|your (constraints|budget|priorities)|from your (side|perspective))\b`),
		},
		{
			ID:      "agreement_reached",
			Phase:   "closing",
			Pattern: regexp.MustCompile(`(?i)\b(we have a deal|i accept|agreed|let's move forward)\b`),
		},
	}
}

// applyObjectiveRules scans the recent history plus the candidate reply and
// unions any triggered objectives into a copy of the scenario state. Returns
// the updated state and the ids newly touched this turn.
func applyObjectiveRules(rules []ObjectiveRule, conv *types.Conversation, candidate types.Turn, window int) (types.ScenarioState, []string) {
	state := conv.Scenario.Clone()
	if state.ObjectivesTotal == 0 {
		state.ObjectivesTotal = len(rules)
	}

	texts := make([]string, 0, window+1)
	for _, t := range conv.RecentTurns(window) {
		texts = append(texts, t.Content)
	}
	texts = append(texts, candidate.Content)

	var touched []string
	for _, rule := range rules {
		if state.Touched(rule.ID) {
			continue
		}
		for _, text := range texts {
			if rule.Pattern.MatchString(text) {
				if state.TouchObjective(rule.ID) {
					touched = append(touched, rule.ID)
					if rule.Phase != "" {
						state.Phase = rule.Phase
					}
				}
				break
			}
		}
	}
	return state, touched
}
