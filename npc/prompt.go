package npc

import (
	"fmt"
	"strings"

	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/types"
)

// PromptInput collects everything a prompt is assembled from.
type PromptInput struct {
	Conversation *types.Conversation
	Snippets     []gateway.Snippet
	// RevisionInstruction is non-empty when the Director requested a retry.
	RevisionInstruction string
}

// buildPrompt assembles the user-side prompt in the fixed section order:
// retrieved knowledge, recent history window, current instruction. The static
// persona section travels separately as the system prompt.
//
// The history window holds at most historyWindow turns and is additionally
// trimmed from the oldest end to stay inside the token budget. The current
// user message is never trimmed.
func buildPrompt(in PromptInput, historyWindow, tokenBudget int, counter TokenCounter) string {
	var b strings.Builder

	if len(in.Snippets) > 0 {
		b.WriteString("## Relevant Knowledge\n")
		for i, s := range in.Snippets {
			if i > 0 {
				b.WriteString("\n---\n")
			}
			b.WriteString(strings.TrimSpace(s.Content))
		}
		b.WriteString("\n\n")
	}

	history := in.Conversation.RecentTurns(historyWindow + 1)
	var current types.Turn
	if n := len(history); n > 0 {
		current = history[n-1]
		history = history[:n-1]
	}
	history = trimToBudget(history, tokenBudget, counter)

	if len(history) > 0 {
		b.WriteString("## Conversation History\n")
		for _, t := range history {
			b.WriteString(formatTurn(t))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if in.RevisionInstruction != "" {
		b.WriteString("## Revision Instruction\n")
		b.WriteString(strings.TrimSpace(in.RevisionInstruction))
		b.WriteString("\n\n")
	}

	b.WriteString(formatTurn(current))
	return b.String()
}

// trimToBudget drops turns from the oldest end until the window fits.
func trimToBudget(history []types.Turn, budget int, counter TokenCounter) []types.Turn {
	if budget <= 0 || counter == nil {
		return history
	}
	for len(history) > 0 {
		total := 0
		for _, t := range history {
			total += counter.CountTokens(t.Content)
		}
		if total <= budget {
			break
		}
		history = history[1:]
	}
	return history
}

func formatTurn(t types.Turn) string {
	label := "User"
	switch t.Speaker {
	case types.SpeakerNPC:
		label = "NPC"
	case types.SpeakerDirector:
		label = "Director"
	}
	return fmt.Sprintf("%s: %s", label, t.Content)
}
