// Package coworker provides a top-level convenience entry point for building
// the conversation pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/edtronaut/coworker"
//
//	orch, err := coworker.New(myGateway)
//	orch, err := coworker.New(myGateway,
//	    coworker.WithConfig(cfg),
//	    coworker.WithRetriever(myRetriever),
//	)
//
// New wires the NPC processor, the Director, the persona registry, and the
// conversation store into one orchestrator. Every part can be swapped via an
// option; the zero-option form runs fully in memory with the builtin personas.
package coworker

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/edtronaut/coworker/config"
	"github.com/edtronaut/coworker/director"
	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/internal/metrics"
	"github.com/edtronaut/coworker/npc"
	"github.com/edtronaut/coworker/orchestrator"
	"github.com/edtronaut/coworker/persona"
	"github.com/edtronaut/coworker/store"
)

// Option configures the pipeline created by [New].
type Option func(*options)

type options struct {
	cfg        *config.Config
	store      store.ConversationStore
	retriever  gateway.RetrieverGateway
	registry   *persona.Registry
	logger     *zap.Logger
	namespace  string
	registerer prometheus.Registerer
}

// WithConfig supplies a full application configuration. Without it the
// defaults from [config.DefaultConfig] apply.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithStore supplies a pre-built conversation store. Without it the store is
// built from the configuration (in-memory by default).
func WithStore(s store.ConversationStore) Option {
	return func(o *options) { o.store = s }
}

// WithRetriever enables knowledge retrieval. Without it every turn runs with
// empty retrieved context.
func WithRetriever(r gateway.RetrieverGateway) Option {
	return func(o *options) { o.retriever = r }
}

// WithRegistry supplies a custom persona registry. Without it the builtin
// personas are used, extended by the configured persona file if any.
func WithRegistry(r *persona.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets a custom zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers pipeline metrics on the given registerer.
func WithMetrics(namespace string, reg prometheus.Registerer) Option {
	return func(o *options) {
		o.namespace = namespace
		o.registerer = reg
	}
}

// New builds an orchestrator around the given generation gateway. The same
// gateway serves NPC generation and the Director's consistency audit.
func New(gen gateway.GenerationGateway, opts ...Option) (*orchestrator.Orchestrator, error) {
	if gen == nil {
		return nil, fmt.Errorf("a generation gateway is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	st := o.store
	if st == nil {
		var err error
		st, err = store.New(o.cfg.Store, o.logger)
		if err != nil {
			return nil, fmt.Errorf("build conversation store: %w", err)
		}
	}

	registry := o.registry
	if registry == nil {
		var err error
		if o.cfg.PersonaFile != "" {
			registry, err = persona.NewRegistryFromFile(o.cfg.PersonaFile, o.logger)
		} else {
			registry, err = persona.NewBuiltinRegistry(o.logger)
		}
		if err != nil {
			return nil, fmt.Errorf("build persona registry: %w", err)
		}
	}

	resilient := gateway.NewResilientGateway(gen, o.cfg.Generation.Retry, o.logger)
	counter := npc.NewTokenCounter(o.cfg.Generation.TokenizerModel, o.logger)
	npcProc := npc.NewProcessor(resilient, counter, o.cfg.NPC, o.logger)
	dirProc := director.NewProcessor(resilient, nil, o.cfg.Director, o.logger)

	var collector *metrics.Collector
	if o.registerer != nil {
		collector = metrics.NewCollector(o.namespace, o.registerer, o.logger)
	}

	return orchestrator.New(st, o.retriever, npcProc, dirProc, registry,
		o.cfg.Orchestrator, collector, o.logger), nil
}
