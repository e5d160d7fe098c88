package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

// ResolverFactory builds a name resolver for a configured backend.
type ResolverFactory func(ctx context.Context, baseURL string) (archive.NameResolver, error)

// Registry maps backend names ("http", "static", ...) to resolver factories
// so the directory backend can be switched by configuration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ResolverFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ResolverFactory)}
}

func (r *Registry) Register(name string, f ResolverFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, baseURL string) (archive.NameResolver, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown directory backend: %s", name)
	}
	return f(ctx, baseURL)
}
