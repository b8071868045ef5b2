package npc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/types"
)

// Prompt assembly must keep its section order and the history window bound for
// any conversation shape: knowledge before history before revision, with the
// untrimmed current message always last.
func TestProperty_PromptSectionOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("sections stay ordered and current message stays last", prop.ForAll(
		func(turnCount, snippetCount, window int, revise bool) bool {
			conv := types.NewConversation("s", "gucci_chro")
			for i := 0; i < turnCount; i++ {
				if i%2 == 0 {
					conv.AppendTurn(types.NewUserTurn(fmt.Sprintf("user message %d", i)))
				} else {
					conv.AppendTurn(types.NewNPCTurn("gucci_chro", fmt.Sprintf("npc message %d", i)))
				}
			}

			in := PromptInput{Conversation: conv}
			for i := 0; i < snippetCount; i++ {
				in.Snippets = append(in.Snippets, gateway.Snippet{
					Content: fmt.Sprintf("snippet %d", i), Score: 0.5,
				})
			}
			if revise {
				in.RevisionInstruction = "Stay in character."
			}

			prompt := buildPrompt(in, window, 0, nil)

			current := formatTurn(conv.Turns[len(conv.Turns)-1])
			if !strings.HasSuffix(prompt, current) {
				t.Logf("current message is not the suffix: %q", prompt)
				return false
			}

			knowledge := strings.Index(prompt, "## Relevant Knowledge")
			history := strings.Index(prompt, "## Conversation History")
			revision := strings.Index(prompt, "## Revision Instruction")

			if (snippetCount > 0) != (knowledge >= 0) {
				return false
			}
			if revise != (revision >= 0) {
				return false
			}
			if knowledge >= 0 && history >= 0 && knowledge > history {
				return false
			}
			if history >= 0 && revision >= 0 && history > revision {
				return false
			}
			if knowledge >= 0 && revision >= 0 && knowledge > revision {
				return false
			}

			// The window bound: at most `window` prior turns make it in.
			shown := strings.Count(prompt, "\nUser: ") + strings.Count(prompt, "\nNPC: ")
			if history < 0 && shown > 1 {
				return false
			}
			prior := turnCount - 1
			if prior > window {
				prior = window
			}
			if history >= 0 && shown > prior+1 {
				t.Logf("window overflow: %d shown, window %d", shown, window)
				return false
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 4),
		gen.IntRange(1, 12),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Token trimming never drops the newest turns and always lands within budget
// when at least one turn fits.
func TestProperty_TrimToBudgetKeepsNewest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("trim drops only from the oldest end", prop.ForAll(
		func(lengths []int, budget int) bool {
			history := make([]types.Turn, len(lengths))
			for i, n := range lengths {
				history[i] = types.NewUserTurn(strings.Repeat("x", n))
			}

			got := trimToBudget(history, budget, EstimatorCounter{})

			if len(got) > len(history) {
				return false
			}
			// Whatever survives is exactly the newest suffix.
			for i := range got {
				if got[i].Content != history[len(history)-len(got)+i].Content {
					return false
				}
			}
			if len(got) > 0 {
				total := 0
				for _, turn := range got {
					total += EstimatorCounter{}.CountTokens(turn.Content)
				}
				// Either within budget, or a single oversized turn survived.
				if total > budget && len(got) > 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 200)),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
