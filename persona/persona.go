package persona

import (
	"fmt"
	"strings"
)

// FewShot is one example exchange folded into the prompt's static section.
type FewShot struct {
	User      string `yaml:"user" json:"user"`
	Assistant string `yaml:"assistant" json:"assistant"`
}

// Descriptor is an immutable NPC persona configuration, loaded once and
// looked up by id. It is not session-scoped.
type Descriptor struct {
	ID                   string             `yaml:"id" json:"id"`
	DisplayName          string             `yaml:"display_name" json:"display_name"`
	Role                 string             `yaml:"role" json:"role"`
	Company              string             `yaml:"company,omitempty" json:"company,omitempty"`
	SystemPromptTemplate string             `yaml:"system_prompt" json:"system_prompt"`
	Traits               map[string]float64 `yaml:"traits,omitempty" json:"traits,omitempty"`
	KnowledgeDomains     []string           `yaml:"knowledge_domains,omitempty" json:"knowledge_domains,omitempty"`
	AllowedToolIDs       []string           `yaml:"allowed_tool_ids,omitempty" json:"allowed_tool_ids,omitempty"`
	FewShots             []FewShot          `yaml:"few_shots,omitempty" json:"few_shots,omitempty"`
	// ConsistencyRules describe in-character constraints the Director checks
	// candidate replies against.
	ConsistencyRules []string `yaml:"consistency_rules,omitempty" json:"consistency_rules,omitempty"`
}

// Validate checks the descriptor is usable for prompt construction.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("persona id is required")
	}
	if strings.TrimSpace(d.SystemPromptTemplate) == "" {
		return fmt.Errorf("persona %q: system prompt template is required", d.ID)
	}
	return nil
}

// SystemPrompt renders the static system prompt for the persona. The result
// depends only on the descriptor, never on conversation state, so prompt
// prefixes stay cacheable.
func (d *Descriptor) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.SystemPromptTemplate))
	if len(d.FewShots) > 0 {
		b.WriteString("\n\n# Example Exchanges\n")
		for _, fs := range d.FewShots {
			fmt.Fprintf(&b, "User: %s\n%s: %s\n", fs.User, d.displayLabel(), fs.Assistant)
		}
	}
	return b.String()
}

func (d *Descriptor) displayLabel() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.ID
}
