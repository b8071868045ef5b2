package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/edtronaut/coworker/director"
	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/intent"
	"github.com/edtronaut/coworker/internal/keylock"
	"github.com/edtronaut/coworker/internal/metrics"
	"github.com/edtronaut/coworker/npc"
	"github.com/edtronaut/coworker/persona"
	"github.com/edtronaut/coworker/store"
	"github.com/edtronaut/coworker/types"
)

// State machine step names, carried on structured errors.
const (
	StepLoad     = "LOAD"
	StepRetrieve = "RETRIEVE"
	StepGenerate = "GENERATE"
	StepAudit    = "AUDIT"
	StepPersist  = "PERSIST"
	StepReset    = "RESET"
)

// RateLimitConfig bounds per-session call rates.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RPS     float64 `yaml:"rps" json:"rps"`
	Burst   int     `yaml:"burst" json:"burst"`
}

// Config controls the orchestration state machine.
type Config struct {
	// MaxRevisions is the regeneration budget of the revise loop: how many
	// times the Director may send a candidate back before the last one is
	// force-accepted.
	MaxRevisions int `yaml:"max_revisions" json:"max_revisions"`

	// RetrievalTopK is how many snippets the retrieval gateway is asked for.
	RetrievalTopK int `yaml:"retrieval_top_k" json:"retrieval_top_k"`

	// StoreRetries is the number of additional persist attempts after the
	// first failure.
	StoreRetries int `yaml:"store_retries" json:"store_retries"`

	// StoreRetryBackoff is the fixed delay between persist attempts.
	StoreRetryBackoff time.Duration `yaml:"store_retry_backoff" json:"store_retry_backoff"`

	// RateLimit bounds per-session advance rates.
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxRevisions:      2,
		RetrievalTopK:     3,
		StoreRetries:      1,
		StoreRetryBackoff: 200 * time.Millisecond,
		RateLimit:         RateLimitConfig{RPS: 2, Burst: 5},
	}
}

// Orchestrator sequences one conversational turn end to end and is the only
// writer of conversation state.
type Orchestrator struct {
	store     store.ConversationStore
	retriever gateway.RetrieverGateway
	npc       *npc.Processor
	director  *director.Processor
	registry  *persona.Registry
	intents   *intent.Detector

	config  Config
	locks   *keylock.KeyLock
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  trace.Tracer

	limiterMu sync.Mutex
	limiters  map[string]*sessionLimiter
}

// sessionLimiter pairs a rate limiter with its last use so idle sessions can
// be evicted from the limiter map.
type sessionLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const (
	limiterPruneThreshold = 128
	limiterIdleAge        = 10 * time.Minute
)

// New creates an Orchestrator. retriever and collector may be nil: without a
// retriever every turn runs with empty context, without a collector metrics
// are skipped.
func New(
	st store.ConversationStore,
	retriever gateway.RetrieverGateway,
	npcProc *npc.Processor,
	dirProc *director.Processor,
	registry *persona.Registry,
	config Config,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.MaxRevisions < 0 {
		config.MaxRevisions = 0
	} else if config.MaxRevisions == 0 {
		config.MaxRevisions = def.MaxRevisions
	}
	if config.RetrievalTopK <= 0 {
		config.RetrievalTopK = def.RetrievalTopK
	}
	if config.StoreRetryBackoff <= 0 {
		config.StoreRetryBackoff = def.StoreRetryBackoff
	}
	return &Orchestrator{
		store:     st,
		retriever: retriever,
		npc:       npcProc,
		director:  dirProc,
		registry:  registry,
		intents:   intent.NewDetector(),
		config:    config,
		locks:     keylock.New(),
		metrics:   collector,
		logger:    logger.With(zap.String("component", "orchestrator")),
		tracer:    otel.Tracer("github.com/edtronaut/coworker/orchestrator"),
		limiters:  make(map[string]*sessionLimiter),
	}
}

// Advance processes one user message for a session and returns the resulting
// turn. At most one Advance call executes at a time per session id.
func (o *Orchestrator) Advance(ctx context.Context, sessionID, personaID, userMessage string) (*types.TurnResult, error) {
	if sessionID == "" {
		return nil, types.NewError(types.ErrInvalidMessage, "session id is required")
	}
	if strings.TrimSpace(userMessage) == "" {
		return nil, types.NewError(types.ErrInvalidMessage, "user message must be non-empty").
			WithSession(sessionID)
	}
	if !o.allowSession(sessionID) {
		return nil, types.NewError(types.ErrRateLimited, "session rate limit exceeded").
			WithSession(sessionID).
			WithRetryable(true)
	}

	o.locks.Lock(sessionID)
	defer o.locks.Unlock(sessionID)

	ctx, span := o.tracer.Start(ctx, "orchestrator.advance",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	started := time.Now()
	result, outcome, err := o.advance(ctx, sessionID, personaID, userMessage)
	o.metrics.ObserveAdvance(outcome, time.Since(started))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) advance(ctx context.Context, sessionID, personaID, userMessage string) (*types.TurnResult, string, error) {
	log := o.logger.With(zap.String("session_id", sessionID))

	// LOAD
	conv, err := o.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		conv = types.NewConversation(sessionID, personaID)
		log.Info("session created", zap.String("persona_id", personaID))
	case err != nil:
		o.metrics.ObserveStoreFailure("load")
		return nil, "error", types.NewError(types.ErrSessionLoad, "failed to load session").
			WithSession(sessionID).WithStep(StepLoad).WithRetryable(true).WithCause(err)
	}
	if conv.PersonaID == "" {
		conv.PersonaID = personaID
	}

	desc, err := o.registry.Resolve(conv.PersonaID)
	if err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			terr.WithSession(sessionID).WithStep(StepLoad)
		}
		return nil, "error", err
	}

	// APPEND_USER
	userTurn := types.NewUserTurn(userMessage).
		WithIntents(intent.Strings(o.intents.Detect(userMessage)))
	userTurn = conv.AppendTurn(userTurn)
	newTurns := []types.Turn{userTurn}

	// RETRIEVE: best-effort, never fatal.
	snippets, degraded := o.retrieve(ctx, log, userMessage)

	// GENERATE + AUDIT with the bounded revise loop.
	candidate, audit, regens, err := o.generateAudited(ctx, conv, desc, snippets)
	if err != nil {
		return nil, "error", err
	}
	o.metrics.ObserveReviseRetries(regens)

	conv.Scenario = audit.UpdatedScenario
	if conv.Scenario.IsComplete() && conv.Status == types.StatusActive {
		conv.Status = types.StatusCompleted
		log.Info("scenario completed",
			zap.Strings("objectives", conv.Scenario.ObjectivesTouched))
	}

	var finalTurn types.Turn
	outcome := string(audit.Decision)
	switch audit.Decision {
	case director.DecisionIntervene:
		// The intervention replaces the NPC reply entirely.
		sys := types.NewDirectorTurn(audit.InterventionMessage)
		for _, f := range audit.SafetyFlags {
			sys = sys.WithSafetyFlag(f)
		}
		finalTurn = conv.AppendTurn(sys)
	default:
		if audit.Decision == director.DecisionRevise {
			// Revise budget exhausted: accept the last candidate rather
			// than looping forever.
			candidate = candidate.WithSafetyFlag(types.FlagForcedAccept)
			outcome = "forced_accept"
			log.Warn("revise budget exhausted, forcing accept",
				zap.Int("regenerations", regens))
		}
		if degraded {
			candidate = candidate.WithSafetyFlag(types.FlagDegradedContext)
		}
		for _, f := range audit.SafetyFlags {
			candidate = candidate.WithSafetyFlag(f)
		}
		finalTurn = conv.AppendTurn(candidate)
	}
	newTurns = append(newTurns, finalTurn)

	// PERSIST: atomic for the whole set of turns appended this invocation.
	if err := o.persist(ctx, conv, newTurns); err != nil {
		return nil, "error", err
	}

	if audit.Hint != nil {
		o.metrics.ObserveHint(string(audit.Hint.Severity))
	}

	log.Info("turn advanced",
		zap.Int("turn", finalTurn.Number),
		zap.String("speaker", string(finalTurn.Speaker)),
		zap.String("decision", string(audit.Decision)),
		zap.Strings("safety_flags", finalTurn.SafetyFlags))

	return &types.TurnResult{
		SessionID:   sessionID,
		Turn:        finalTurn,
		Hint:        audit.Hint,
		SafetyFlags: finalTurn.SafetyFlags,
		TurnCount:   conv.TurnCount(),
	}, outcome, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, log *zap.Logger, query string) ([]gateway.Snippet, bool) {
	if o.retriever == nil {
		return nil, false
	}
	ctx, span := o.tracer.Start(ctx, "orchestrator.retrieve")
	defer span.End()

	snippets, err := o.retriever.Retrieve(ctx, query, o.config.RetrievalTopK)
	if err != nil {
		o.metrics.ObserveRetrievalError()
		log.Warn("retrieval failed, continuing with empty context", zap.Error(err))
		return nil, true
	}
	return snippets, false
}

// generateAudited runs the NPC/Director loop. It returns the last candidate,
// the last audit result, and the number of regenerations consumed. When the
// budget runs out with the Director still asking for revision, the audit
// decision remains DecisionRevise and the caller force-accepts.
func (o *Orchestrator) generateAudited(
	ctx context.Context,
	conv *types.Conversation,
	desc *persona.Descriptor,
	snippets []gateway.Snippet,
) (types.Turn, director.AuditResult, int, error) {
	var (
		candidate types.Turn
		audit     director.AuditResult
		revision  string
		regens    int
	)

	for {
		genCtx, genSpan := o.tracer.Start(ctx, "orchestrator.generate")
		cand, err := o.npc.GenerateReply(genCtx, desc, npc.PromptInput{
			Conversation:        conv,
			Snippets:            snippets,
			RevisionInstruction: revision,
		})
		genSpan.End()
		if err != nil {
			// A generation failure on the last allowed attempt is fatal for
			// the whole call: no reply is worse than a visible error.
			return types.Turn{}, director.AuditResult{}, regens,
				types.NewError(types.ErrGenerationUnavailable, "generation gateway failed").
					WithSession(conv.SessionID).WithStep(StepGenerate).WithRetryable(true).WithCause(err)
		}
		candidate = cand

		auditCtx, auditSpan := o.tracer.Start(ctx, "orchestrator.audit")
		audit, err = o.director.Audit(auditCtx, conv, candidate, desc)
		auditSpan.End()
		if err != nil {
			return types.Turn{}, director.AuditResult{}, regens,
				types.NewError(types.ErrGenerationUnavailable, "audit aborted").
					WithSession(conv.SessionID).WithStep(StepAudit).WithRetryable(true).WithCause(err)
		}
		o.metrics.ObserveAuditDecision(string(audit.Decision))

		if audit.Decision != director.DecisionRevise || regens >= o.config.MaxRevisions {
			return candidate, audit, regens, nil
		}
		regens++
		revision = audit.RevisionInstruction
	}
}

func (o *Orchestrator) persist(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.persist")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= o.config.StoreRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return types.NewError(types.ErrPersistence, "persist aborted").
					WithSession(conv.SessionID).WithStep(StepPersist).WithRetryable(true).WithCause(ctx.Err())
			case <-time.After(o.config.StoreRetryBackoff):
			}
		}
		lastErr = o.store.Append(ctx, conv, newTurns)
		if lastErr == nil {
			return nil
		}
		o.metrics.ObserveStoreFailure("append")
	}
	return types.NewError(types.ErrPersistence, "failed to persist conversation").
		WithSession(conv.SessionID).WithStep(StepPersist).WithRetryable(true).WithCause(lastErr)
}

// Reset clears the stored conversation for a session. Turn numbering restarts
// at 1 on the next Advance and the scenario state starts empty. Returns true
// if a session was deleted, false if none existed.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, types.NewError(types.ErrInvalidMessage, "session id is required")
	}

	o.locks.Lock(sessionID)
	defer o.locks.Unlock(sessionID)

	deleted, err := o.store.Delete(ctx, sessionID)
	if err != nil {
		o.metrics.ObserveStoreFailure("delete")
		return false, types.NewError(types.ErrPersistence, "failed to reset session").
			WithSession(sessionID).WithStep(StepReset).WithRetryable(true).WithCause(err)
	}
	if deleted {
		o.logger.Info("session reset", zap.String("session_id", sessionID))
	}
	return deleted, nil
}

// Sessions lists summaries of all stored sessions.
func (o *Orchestrator) Sessions(ctx context.Context) ([]store.Summary, error) {
	return o.store.List(ctx)
}

func (o *Orchestrator) allowSession(sessionID string) bool {
	if !o.config.RateLimit.Enabled {
		return true
	}
	o.limiterMu.Lock()
	if len(o.limiters) >= limiterPruneThreshold {
		for id, sl := range o.limiters {
			if time.Since(sl.lastSeen) > limiterIdleAge {
				delete(o.limiters, id)
			}
		}
	}
	sl, ok := o.limiters[sessionID]
	if !ok {
		sl = &sessionLimiter{
			lim: rate.NewLimiter(rate.Limit(o.config.RateLimit.RPS), o.config.RateLimit.Burst),
		}
		o.limiters[sessionID] = sl
	}
	sl.lastSeen = time.Now()
	o.limiterMu.Unlock()
	return sl.lim.Allow()
}

// Decision re-exports the Director decision type for transport layers that
// only import the orchestrator.
type Decision = director.Decision
