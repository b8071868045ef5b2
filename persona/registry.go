package persona

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edtronaut/coworker/types"
)

// Registry maps persona ids to descriptors. Registration is static
// configuration performed at construction; conversation traffic only reads.
type Registry struct {
	personas map[string]*Descriptor
	logger   *zap.Logger
}

// NewRegistry creates a registry preloaded with the given descriptors.
func NewRegistry(logger *zap.Logger, descriptors ...*Descriptor) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		personas: make(map[string]*Descriptor, len(descriptors)),
		logger:   logger.With(zap.String("component", "persona_registry")),
	}
	for _, d := range descriptors {
		if err := r.register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewBuiltinRegistry creates a registry with the builtin workplace personas.
func NewBuiltinRegistry(logger *zap.Logger) (*Registry, error) {
	return NewRegistry(logger, Builtins()...)
}

// NewRegistryFromFile loads persona descriptors from a YAML file and merges
// them over the builtins. File entries with a builtin id replace the builtin.
func NewRegistryFromFile(path string, logger *zap.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var doc struct {
		Personas []*Descriptor `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}

	r, err := NewBuiltinRegistry(logger)
	if err != nil {
		return nil, err
	}
	for _, d := range doc.Personas {
		if err := r.register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("nil persona descriptor")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	r.personas[d.ID] = d
	r.logger.Debug("persona registered", zap.String("persona_id", d.ID))
	return nil
}

// Resolve returns the descriptor for the given persona id. Fails with a
// structured UNKNOWN_PERSONA error when the persona is not registered.
func (r *Registry) Resolve(personaID string) (*Descriptor, error) {
	d, ok := r.personas[personaID]
	if !ok {
		return nil, types.NewError(types.ErrUnknownPersona,
			fmt.Sprintf("persona %q is not registered", personaID))
	}
	return d, nil
}

// List returns all registered persona ids, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.personas))
	for id := range r.personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Descriptors returns all registered descriptors, sorted by id.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.personas))
	for _, id := range r.List() {
		out = append(out, r.personas[id])
	}
	return out
}
