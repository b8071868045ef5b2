package gateway

import "context"

// Snippet is one retrieved knowledge chunk.
type Snippet struct {
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// RetrieverGateway fetches relevant knowledge snippets for a query.
// An empty result is valid and not an error. Retrieval is best-effort for the
// orchestrator: failures degrade the turn instead of failing it.
type RetrieverGateway interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// RetrieveFunc adapts a function to the RetrieverGateway interface.
type RetrieveFunc func(ctx context.Context, query string, topK int) ([]Snippet, error)

func (f RetrieveFunc) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	return f(ctx, query, topK)
}

var _ RetrieverGateway = (RetrieveFunc)(nil)
