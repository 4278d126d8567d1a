// Package agent runs one trading identity through its calendar of sessions.
package agent

import (
	"fmt"
	"sort"
	"sync"

	"ai-trader/internal/interfaces"
	"ai-trader/internal/market"
	"ai-trader/internal/store"
)

// Deps are the shared collaborators a variant factory wires into a runner.
type Deps struct {
	Cfg      *store.Config
	Ledger   interfaces.Ledger
	Env      interfaces.EnvStore
	Recorder interfaces.ActivityRecorder
	Tools    interfaces.ToolExecutor
	History  *market.History
	NewModel func(basemodel string) interfaces.ModelClient
}

// Factory builds a runner for one configured model of this variant.
type Factory func(deps Deps, mc store.ModelConfig) *Runner

// Registry maps an agent-type tag to its factory. The set is closed at
// process start; there is no runtime class resolution.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Factory)}
}

// Builtin returns the registry preloaded with the known variants.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("crypto", NewCryptoRunner)
	return r
}

func (r *Registry) Register(tag string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[tag] = f
}

// Resolve looks up the factory for an agent-type tag.
func (r *Registry) Resolve(tag string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.m[tag]
	if !ok {
		return nil, fmt.Errorf("agent: unknown agent type %q (known: %v)", tag, r.tags())
	}
	return f, nil
}

func (r *Registry) tags() []string {
	tags := make([]string, 0, len(r.m))
	for tag := range r.m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
