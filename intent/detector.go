package intent

import (
	"regexp"
	"sort"
	"strings"
)

// Intent is a coarse classification of a learner message.
type Intent string

const (
	IntentQuestion     Intent = "question"
	IntentProposal     Intent = "proposal"
	IntentNegotiation  Intent = "negotiation"
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentAgreement    Intent = "agreement"
	IntentDisagreement Intent = "disagreement"
	IntentRequestInfo  Intent = "request_info"
	IntentUnknown      Intent = "unknown"
)

var intentPatterns = map[Intent][]*regexp.Regexp{
	IntentQuestion: {
		regexp.MustCompile(`(?i)\b(what|how|why|when|where|who|which|can you|could you|would you)\b`),
		regexp.MustCompile(`\?\s*$`),
	},
	IntentProposal: {
		regexp.MustCompile(`(?i)\b(i (think|propose|suggest|recommend)|let's|we (should|could|might)|my plan)\b`),
	},
	IntentNegotiation: {
		regexp.MustCompile(`(?i)\b(offer|deal|terms|counter|negotiate|compromise|trade-off|agree on|raise|salary)\b`),
	},
	IntentGreeting: {
		regexp.MustCompile(`(?i)\b(hello|hi|hey|good (morning|afternoon|evening)|greetings)\b`),
	},
	IntentFarewell: {
		regexp.MustCompile(`(?i)\b(bye|goodbye|see you|farewell|take care|talk later)\b`),
	},
	IntentAgreement: {
		regexp.MustCompile(`(?i)\b(i agree|absolutely|exactly|correct|sounds good|definitely)\b`),
	},
	IntentDisagreement: {
		regexp.MustCompile(`(?i)\b(i disagree|i don't think|that's wrong|incorrect)\b`),
	},
	IntentRequestInfo: {
		regexp.MustCompile(`(?i)\b(tell me|show me|can i see|give me|share|provide)\b`),
	},
}

// Detector is a heuristic intent classifier. The zero value is ready to use.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect returns every intent matched by the text, ordered by descending
// match score and then lexicographically for ties. Empty input yields nil.
func (d *Detector) Detect(text string) []Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	type scored struct {
		intent Intent
		score  int
	}
	var matches []scored
	for in, patterns := range intentPatterns {
		score := 0
		for _, p := range patterns {
			if p.MatchString(text) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{intent: in, score: score})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].intent < matches[j].intent
	})

	out := make([]Intent, len(matches))
	for i, m := range matches {
		out[i] = m.intent
	}
	return out
}

// DetectPrimary returns the single best intent, or IntentUnknown when
// nothing matches.
func (d *Detector) DetectPrimary(text string) Intent {
	intents := d.Detect(text)
	if len(intents) == 0 {
		return IntentUnknown
	}
	return intents[0]
}

// Strings converts intents into plain tags for Turn.Intents.
func Strings(intents []Intent) []string {
	if len(intents) == 0 {
		return nil
	}
	out := make([]string, len(intents))
	for i, in := range intents {
		out[i] = string(in)
	}
	return out
}
