package director

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/persona"
	"github.com/edtronaut/coworker/types"
)

// Decision is the outcome of one audit.
type Decision string

const (
	DecisionAccept    Decision = "accept"
	DecisionRevise    Decision = "revise"
	DecisionIntervene Decision = "intervene"
)

// AuditResult is what the Director returns for one candidate turn.
type AuditResult struct {
	Decision Decision
	// UpdatedScenario is the scenario state after objective detection. Only
	// the Director mutates scenario state.
	UpdatedScenario types.ScenarioState
	// Hint is optional coaching for the learner.
	Hint *types.Hint
	// RevisionInstruction is set only when Decision is DecisionRevise.
	RevisionInstruction string
	// InterventionMessage is the redirect shown instead of the NPC reply when
	// Decision is DecisionIntervene.
	InterventionMessage string
	// SafetyFlags to attach to the resulting turn.
	SafetyFlags []string
}

// Config controls the Director's heuristics.
type Config struct {
	// ObjectiveWindow is how many recent turns objective triggers scan.
	ObjectiveWindow int `yaml:"objective_window" json:"objective_window"`

	// StuckWindow is the number of recent learner turns without objective
	// progress before a hint is emitted.
	StuckWindow int `yaml:"stuck_window" json:"stuck_window"`

	// ConsistencyCheck enables the LLM-backed persona consistency audit.
	ConsistencyCheck bool `yaml:"consistency_check" json:"consistency_check"`

	// AuditLogHints additionally writes emitted hints to the audit log.
	AuditLogHints bool `yaml:"audit_log_hints" json:"audit_log_hints"`

	// InterventionMessage overrides the default redirect text.
	InterventionMessage string `yaml:"intervention_message" json:"intervention_message"`
}

// DefaultConfig returns the default Director configuration.
func DefaultConfig() Config {
	return Config{
		ObjectiveWindow:  6,
		StuckWindow:      3,
		ConsistencyCheck: true,
	}
}

const defaultInterventionMessage = "Let's keep this conversation inside the simulation. " +
	"Please continue working the scenario with your counterpart."

const consistencySystemPrompt = `You are a hidden supervisor auditing a workplace
simulation. Judge whether the NPC's reply below stays in character given the
persona rules. Answer with exactly "OK" if it does, or "REVISE: <one concrete
instruction>" describing the violation if it does not.`

// Processor audits candidate NPC turns and steers the scenario.
type Processor struct {
	gen      gateway.GenerationGateway
	rules    []ObjectiveRule
	safety   []safetyPattern
	config   Config
	logger   *zap.Logger
	auditLog *zap.Logger
}

// NewProcessor creates a Director. rules may be nil to use the builtin
// scenario objectives.
func NewProcessor(gen gateway.GenerationGateway, rules []ObjectiveRule, config Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules == nil {
		rules = DefaultObjectiveRules()
	}
	if config.ObjectiveWindow <= 0 {
		config.ObjectiveWindow = DefaultConfig().ObjectiveWindow
	}
	if config.StuckWindow <= 0 {
		config.StuckWindow = DefaultConfig().StuckWindow
	}
	return &Processor{
		gen:      gen,
		rules:    rules,
		safety:   defaultSafetyPatterns(),
		config:   config,
		logger:   logger.With(zap.String("component", "director")),
		auditLog: logger.With(zap.String("component", "director_audit")),
	}
}

// Audit evaluates the conversation including the candidate turn.
// The conversation's last turn is expected to be the learner's message that
// the candidate replies to.
func (p *Processor) Audit(ctx context.Context, conv *types.Conversation, candidate types.Turn, desc *persona.Descriptor) (AuditResult, error) {
	if err := ctx.Err(); err != nil {
		return AuditResult{}, err
	}

	// (a) Safety first: a violation in the learner's message or in the
	// candidate reply ends the audit with an intervention.
	if res, violated := p.checkSafety(conv, candidate); violated {
		res.UpdatedScenario = conv.Scenario.Clone()
		return res, nil
	}

	// (b) Objective detection over the candidate and recent history.
	state, touched := applyObjectiveRules(p.rules, conv, candidate, p.config.ObjectiveWindow)
	if len(touched) > 0 {
		p.logger.Info("objectives touched",
			zap.String("session_id", conv.SessionID),
			zap.Strings("objectives", touched))
	}

	result := AuditResult{Decision: DecisionAccept, UpdatedScenario: state}

	// (c) Persona consistency via the generation gateway.
	if p.config.ConsistencyCheck && desc != nil {
		decision, instruction, err := p.checkConsistency(ctx, candidate, desc)
		if err != nil {
			// The audit is advisory. A failed consistency check degrades to
			// accept with a flag instead of failing the whole turn.
			p.logger.Warn("consistency check unavailable, accepting candidate",
				zap.String("session_id", conv.SessionID), zap.Error(err))
			result.SafetyFlags = append(result.SafetyFlags, types.FlagAuditDegraded)
		} else if decision == DecisionRevise {
			result.Decision = DecisionRevise
			result.RevisionInstruction = instruction
		}
	}

	// (d) Coaching hint when the learner looks stuck. Suppressed while a
	// revision is pending so a single turn carries one signal.
	if result.Decision == DecisionAccept {
		if hint := p.stuckHint(conv, touched); hint != nil {
			result.Hint = hint
			if p.config.AuditLogHints {
				p.auditLog.Info("hint emitted",
					zap.String("session_id", conv.SessionID),
					zap.String("severity", string(hint.Severity)),
					zap.String("content", hint.Content))
			}
		}
	}

	return result, nil
}

func (p *Processor) checkSafety(conv *types.Conversation, candidate types.Turn) (AuditResult, bool) {
	texts := []string{candidate.Content}
	if last := conv.LastTurn(); last != nil && last.Speaker == types.SpeakerUser {
		texts = append(texts, last.Content)
	}
	for _, text := range texts {
		if hit := safetyScan(p.safety, text); hit != nil {
			p.logger.Warn("policy violation detected",
				zap.String("session_id", conv.SessionID),
				zap.String("violation", hit.description),
				zap.String("severity", hit.severity))
			msg := p.config.InterventionMessage
			if msg == "" {
				msg = defaultInterventionMessage
			}
			return AuditResult{
				Decision:            DecisionIntervene,
				InterventionMessage: msg,
				SafetyFlags:         []string{hit.flag},
			}, true
		}
	}
	return AuditResult{}, false
}

func (p *Processor) checkConsistency(ctx context.Context, candidate types.Turn, desc *persona.Descriptor) (Decision, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Persona: %s (%s)\n", desc.DisplayName, desc.Role)
	if len(desc.ConsistencyRules) > 0 {
		b.WriteString("Rules:\n")
		for _, r := range desc.ConsistencyRules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\nCandidate reply:\n%s\n", candidate.Content)

	verdict, err := p.gen.Generate(ctx, gateway.GenerateRequest{
		System:      consistencySystemPrompt,
		Prompt:      b.String(),
		Temperature: 0.2,
	})
	if err != nil {
		return DecisionAccept, "", err
	}

	verdict = strings.TrimSpace(verdict)
	if rest, ok := strings.CutPrefix(verdict, "REVISE:"); ok {
		instruction := strings.TrimSpace(rest)
		if instruction == "" {
			instruction = "Rewrite the reply to stay in character."
		}
		return DecisionRevise, instruction, nil
	}
	return DecisionAccept, "", nil
}

// stuckHint fires when the learner made no objective progress in the last
// StuckWindow learner turns, or keeps repeating near-duplicate messages.
func (p *Processor) stuckHint(conv *types.Conversation, touchedNow []string) *types.Hint {
	userTurns := conv.RecentUserTurns(p.config.StuckWindow)

	if len(userTurns) >= 2 {
		a := normalize(userTurns[len(userTurns)-1].Content)
		b := normalize(userTurns[len(userTurns)-2].Content)
		if a != "" && a == b {
			return types.NewHint(
				"You're repeating yourself. Try a different angle, for example ask what your counterpart needs.",
				types.HintWarning)
		}
	}

	if len(touchedNow) == 0 && len(userTurns) >= p.config.StuckWindow && len(conv.Scenario.ObjectivesTouched) < conv.Scenario.ObjectivesTotal {
		return types.NewHint(
			"The conversation has stalled. Consider stating your goal directly or backing it with concrete results.",
			types.HintSuggestion)
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
