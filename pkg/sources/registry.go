package sources

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps channel ids to the source that fetches them.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SnapshotSource
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SnapshotSource),
	}
}

// Register binds a channel id to a source.
func (r *Registry) Register(channelID string, src SnapshotSource) error {
	if channelID == "" {
		return fmt.Errorf("register source: empty channel id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[channelID]; exists {
		return fmt.Errorf("channel %q already registered", channelID)
	}
	r.sources[channelID] = src
	return nil
}

// Get returns the source of a channel.
func (r *Registry) Get(channelID string) (SnapshotSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %q not found", channelID)
	}
	return src, nil
}

// Channels returns all registered channel ids in sorted order.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.sources))
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sources)
}
