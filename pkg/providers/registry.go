package providers

import (
	"fmt"
	"sort"
	"sync"
	"unicode"
)

// Info describes a known usage provider. The ID is the stable identifier
// producers stamp on usage records; DisplayName is what consumers render.
type Info struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

// Registry maps provider identifiers to display metadata.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Info
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Info),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(info Info) error {
	if info.ID == "" {
		return fmt.Errorf("provider id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[info.ID]; exists {
		return fmt.Errorf("provider %q already registered", info.ID)
	}
	if info.DisplayName == "" {
		info.DisplayName = FallbackDisplayName(info.ID)
	}
	r.providers[info.ID] = info
	return nil
}

// DisplayName returns the display name for a provider identifier, falling
// back to a capitalized form of the identifier for unknown providers.
func (r *Registry) DisplayName(id string) string {
	r.mu.RLock()
	info, ok := r.providers[id]
	r.mu.RUnlock()

	if ok {
		return info.DisplayName
	}
	return FallbackDisplayName(id)
}

// Known reports whether the provider identifier is registered.
func (r *Registry) Known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[id]
	return ok
}

// List returns all registered providers, sorted by identifier.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.providers))
	for _, info := range r.providers {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// FallbackDisplayName derives a display name from a provider identifier by
// upper-casing its first rune.
func FallbackDisplayName(id string) string {
	if id == "" {
		return "Unknown"
	}
	runes := []rune(id)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
