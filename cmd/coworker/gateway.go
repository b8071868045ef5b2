package main

import (
	"context"
	"strings"
	"sync"

	"github.com/edtronaut/coworker/gateway"
)

// cannedGateway is an offline stand-in for a real LLM provider. Replies rotate
// through a fixed set of in-character workplace responses, which keeps the
// REPL usable without credentials. Consistency audits see plain prose, so the
// Director reads them as acceptance.
type cannedGateway struct {
	mu      sync.Mutex
	replies []string
	next    int
}

func newCannedGateway() *cannedGateway {
	return &cannedGateway{
		replies: []string{
			"I hear you. Walk me through what's driving this.",
			"That's a fair point. What outcome are you hoping for?",
			"Let me push back a little: what evidence supports that?",
			"I can work with that. What would success look like for you?",
			"Understood. Let's talk about concrete next steps.",
		},
	}
}

func (g *cannedGateway) Generate(_ context.Context, req gateway.GenerateRequest) (string, error) {
	// Revision requests get a visibly different reply so the loop is
	// observable during manual testing.
	if strings.Contains(req.Prompt, "## Revision Instruction") {
		return "Let me rephrase that more carefully. What matters most to you here?", nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	reply := g.replies[g.next%len(g.replies)]
	g.next++
	return reply, nil
}

var _ gateway.GenerationGateway = (*cannedGateway)(nil)
