package director

import (
	"regexp"

	"github.com/edtronaut/coworker/types"
)

// Violation severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// safetyPattern describes one policy violation trigger.
type safetyPattern struct {
	pattern     *regexp.Regexp
	description string
	severity    string
	flag        string
}

// defaultSafetyPatterns covers prompt-injection and jailbreak attempts plus
// attempts to drag the simulation off-topic.
func defaultSafetyPatterns() []safetyPattern {
	return []safetyPattern{
		{
			pattern:     regexp.MustCompile(`(?i)ignore\s+(all\s+)?(your|previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|guidelines?)`),
			description: "attempt to override persona instructions",
			severity:    SeverityCritical,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)disregard\s+(all\s+)?(your|previous|prior|above|earlier)\s*(instructions?|prompts?|rules?)?`),
			description: "attempt to disregard instructions",
			severity:    SeverityCritical,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)(reveal|show|print|repeat)\s+(your\s+)?(system\s+prompt|initial\s+instructions?|hidden\s+rules?)`),
			description: "attempt to extract the system prompt",
			severity:    SeverityCritical,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\b(you\s+are\s+now|pretend\s+to\s+be|act\s+as)\s+(a\s+)?(?:different|another|new)\b`),
			description: "attempt to replace the persona",
			severity:    SeverityHigh,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\b(break|drop|exit|leave)\s+character\b`),
			description: "attempt to break character",
			severity:    SeverityHigh,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\bDAN\s+mode\b|\bdeveloper\s+mode\b|\bjailbreak\b`),
			description: "known jailbreak phrasing",
			severity:    SeverityHigh,
			flag:        types.FlagJailbreakAttempt,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\bforget\s+(about\s+)?(work|the\s+(scenario|simulation|exercise|meeting))\b`),
			description: "attempt to abandon the scenario",
			severity:    SeverityMedium,
			flag:        types.FlagOffTopic,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\btell\s+(me|us)\s+(a\s+)?(long\s+)?(fantasy|fictional|bedtime|sci-?fi)\s+(story|tale)\b`),
			description: "request for unrelated fiction",
			severity:    SeverityMedium,
			flag:        types.FlagOffTopic,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\b(write|sing|recite)\s+(me\s+|us\s+)?(a\s+)?(poem|song|rap|haiku|limerick)\b`),
			description: "request for unrelated creative writing",
			severity:    SeverityMedium,
			flag:        types.FlagOffTopic,
		},
		{
			pattern:     regexp.MustCompile(`(?i)\blet'?s\s+(talk|chat)\s+about\s+something\s+(else|completely\s+different)\b`),
			description: "attempt to change the subject away from the scenario",
			severity:    SeverityMedium,
			flag:        types.FlagOffTopic,
		},
	}
}

// safetyScan returns the first matching violation, or nil.
func safetyScan(patterns []safetyPattern, text string) *safetyPattern {
	for i := range patterns {
		if patterns[i].pattern.MatchString(text) {
			return &patterns[i]
		}
	}
	return nil
}
