package seed

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brettbedarf/vkernel"
)

// Registry maps a source "type" to the provider that builds it
type Registry struct {
	mu        sync.RWMutex
	providers map[string]vkernel.SourceProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]vkernel.SourceProvider)}
}

// Register ties a provider to a "type" key. The first registration of a
// key wins; later ones are ignored.
func (r *Registry) Register(sourceType string, provider vkernel.SourceProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[sourceType]; ok {
		return
	}
	r.providers[sourceType] = provider
}

// GetProvider returns the provider registered for sourceType
func (r *Registry) GetProvider(sourceType string) (vkernel.SourceProvider, error) {
	r.mu.RLock()
	p, ok := r.providers[sourceType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider for source type %q", sourceType)
	}
	return p, nil
}

// NewSource picks the provider from the raw config's "type" field and hands
// it the full raw config
func (r *Registry) NewSource(raw []byte) (vkernel.ContentSource, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	if meta.Type == "" {
		return nil, fmt.Errorf("source config missing type")
	}
	p, err := r.GetProvider(meta.Type)
	if err != nil {
		return nil, err
	}
	return p.NewSource(raw)
}
