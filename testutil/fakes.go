package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/store"
	"github.com/edtronaut/coworker/types"
)

// GenStep is one scripted generation outcome.
type GenStep struct {
	Text string
	Err  error
}

// ScriptedGateway replays a fixed sequence of generation outcomes and records
// every request it received. Once the script is exhausted it keeps returning
// Fallback, so open-ended tests do not need to count calls exactly.
type ScriptedGateway struct {
	mu       sync.Mutex
	steps    []GenStep
	Fallback string
	Requests []gateway.GenerateRequest
}

// NewScriptedGateway creates a gateway that replays steps in order.
func NewScriptedGateway(steps ...GenStep) *ScriptedGateway {
	return &ScriptedGateway{steps: steps, Fallback: "Understood."}
}

func (g *ScriptedGateway) Generate(_ context.Context, req gateway.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if len(g.steps) == 0 {
		return g.Fallback, nil
	}
	step := g.steps[0]
	g.steps = g.steps[1:]
	return step.Text, step.Err
}

// Calls returns how many generation requests were made.
func (g *ScriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// LastRequest returns the most recent request, or a zero value if none.
func (g *ScriptedGateway) LastRequest() gateway.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return gateway.GenerateRequest{}
	}
	return g.Requests[len(g.Requests)-1]
}

var _ gateway.GenerationGateway = (*ScriptedGateway)(nil)

// StaticRetriever returns the same snippets for every query.
type StaticRetriever struct {
	Snippets []gateway.Snippet
	mu       sync.Mutex
	calls    int
}

func (r *StaticRetriever) Retrieve(context.Context, string, int) ([]gateway.Snippet, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.Snippets, nil
}

// Calls returns how many retrievals were made.
func (r *StaticRetriever) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// FailingRetriever fails every retrieval with Err.
type FailingRetriever struct {
	Err error
}

func (r *FailingRetriever) Retrieve(context.Context, string, int) ([]gateway.Snippet, error) {
	return nil, r.Err
}

var (
	_ gateway.RetrieverGateway = (*StaticRetriever)(nil)
	_ gateway.RetrieverGateway = (*FailingRetriever)(nil)
)

// FlakyStore wraps a ConversationStore and fails the first FailAppends Append
// calls with AppendErr before delegating. Used to exercise persist retries.
type FlakyStore struct {
	store.ConversationStore

	mu          sync.Mutex
	FailAppends int
	AppendErr   error
	appendCalls int
}

func (s *FlakyStore) Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	s.mu.Lock()
	s.appendCalls++
	fail := s.appendCalls <= s.FailAppends
	s.mu.Unlock()
	if fail {
		return s.AppendErr
	}
	return s.ConversationStore.Append(ctx, conv, newTurns)
}

// AppendCalls returns how many Append calls were made, including failed ones.
func (s *FlakyStore) AppendCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendCalls
}

var _ store.ConversationStore = (*FlakyStore)(nil)

// Context returns a test context cancelled at cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
