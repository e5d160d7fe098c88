package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

// StaticResolver resolves display names from an in-process table. Useful for
// single-node deployments and as the test double for the directory.
type StaticResolver struct {
	mu    sync.RWMutex
	names map[string]string // bare address -> display name
}

var _ archive.NameResolver = (*StaticResolver)(nil)

func NewStaticResolver(names map[string]string) *StaticResolver {
	if names == nil {
		names = make(map[string]string)
	}
	return &StaticResolver{names: names}
}

func (r *StaticResolver) Set(bare, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[bare] = name
}

func (r *StaticResolver) DisplayName(_ context.Context, user archive.Address) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[user.Bare]
	if !ok {
		return "", fmt.Errorf("%w: user %s", archive.ErrNotFound, user.Bare)
	}
	return name, nil
}
