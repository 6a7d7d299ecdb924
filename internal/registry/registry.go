// Package registry holds the static catalog of text-generation models.
package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// Registry is an immutable model catalog.
type Registry struct {
	models []schema.ModelDescriptor
	byID   map[string]int
}

var _ contract.ModelCatalog = &Registry{} // Compile-time check

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// New builds a registry from the given descriptors. Later duplicates of an id are ignored.
func New(models ...schema.ModelDescriptor) *Registry {
	r := &Registry{byID: make(map[string]int, len(models))}
	for _, m := range models {
		if _, dup := r.byID[m.ID]; dup {
			continue
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	return r
}

// Default returns the built-in catalog of free and premium models.
func Default() *Registry {
	defaultOnce.Do(func() {
		all := append(slices.Clone(freeModels), premiumModels...)
		defaultRegistry = New(all...)
	})
	return defaultRegistry
}

// GetModelByID returns the descriptor for id.
func (r *Registry) GetModelByID(id string) (schema.ModelDescriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return schema.ModelDescriptor{}, false
	}
	return r.models[i], true
}

// All returns every model in catalog order.
func (r *Registry) All() []schema.ModelDescriptor {
	return slices.Clone(r.models)
}

// ListFree returns the free models in catalog order.
func (r *Registry) ListFree() []schema.ModelDescriptor {
	return r.filter(func(m schema.ModelDescriptor) bool { return m.IsFree })
}

// ListRecommendedFree returns the free models flagged as recommended.
func (r *Registry) ListRecommendedFree() []schema.ModelDescriptor {
	return r.filter(func(m schema.ModelDescriptor) bool { return m.IsFree && m.Recommended })
}

// ListPremium returns the paid models in catalog order.
func (r *Registry) ListPremium() []schema.ModelDescriptor {
	return r.filter(func(m schema.ModelDescriptor) bool { return !m.IsFree })
}

func (r *Registry) filter(keep func(schema.ModelDescriptor) bool) []schema.ModelDescriptor {
	var out []schema.ModelDescriptor
	for _, m := range r.models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// ValidateModelConfig partitions ids by catalog membership, preserving input order.
func (r *Registry) ValidateModelConfig(ids []string) (valid, invalid []string) {
	valid, invalid = []string{}, []string{}
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			valid = append(valid, id)
		} else {
			invalid = append(invalid, id)
		}
	}
	return valid, invalid
}

// DefaultModelConfig returns the hardcoded configuration used until an admin saves one.
func (r *Registry) DefaultModelConfig() schema.ModelConfig {
	free := r.ListFree()
	enabled := make([]string, 0, defaultEnabledCount)
	for _, m := range free[:min(defaultEnabledCount, len(free))] {
		enabled = append(enabled, m.ID)
	}
	cfg := schema.ModelConfig{Enabled: enabled}
	if len(enabled) > 0 {
		cfg.Primary = enabled[0]
	}
	if len(enabled) > 1 {
		cfg.Fallback = enabled[1]
	}
	return cfg
}

// ValidateConfig applies the administrator rules to a model config.
// All failures wrap contract.ErrInvalidModelConfig.
func (r *Registry) ValidateConfig(cfg schema.ModelConfig) error {
	if cfg.Primary == "" || cfg.Fallback == "" || len(cfg.Enabled) == 0 {
		return fmt.Errorf("%w: primary, fallback, and enabled models are required", contract.ErrInvalidModelConfig)
	}

	ids := append([]string{cfg.Primary, cfg.Fallback}, cfg.Enabled...)
	if _, invalid := r.ValidateModelConfig(ids); len(invalid) > 0 {
		return fmt.Errorf("%w: invalid model IDs: %s", contract.ErrInvalidModelConfig, strings.Join(dedupe(invalid), ", "))
	}

	if !slices.Contains(cfg.Enabled, cfg.Primary) || !slices.Contains(cfg.Enabled, cfg.Fallback) {
		return fmt.Errorf("%w: primary and fallback models must be in the enabled list", contract.ErrInvalidModelConfig)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
