package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/promptvault/promptvault/internal/config"
)

// Factory constructs a backend from storage configuration.
type Factory func(ctx context.Context, cfg config.StorageConfig) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{}
)

// Register makes a backend available under a storage-type name. Engine
// packages call this from init, so whether the networked engine is
// compiled in is decided by the importer, not by this package.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[strings.ToLower(name)] = f
}

// Open constructs the backend selected by cfg.Type. The returned backend
// still needs Initialize before use.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Type))
	if name == "" {
		name = "sqlite"
	}

	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unsupported type %q (registered: %s)", cfg.Type, strings.Join(registered(), ", "))
	}
	return f(ctx, cfg)
}

func registered() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
