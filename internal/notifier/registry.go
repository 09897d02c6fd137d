package notifier

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/newthinker/orion/internal/core"
)

// Registry holds the configured sinks, kept ordered by name so fan-out and
// logs are deterministic.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Notifier
	sorted []Notifier
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Notifier)}
}

// Register adds n. Names must be unique and non-empty.
func (r *Registry) Register(n Notifier) error {
	name := n.Name()
	if name == "" {
		return fmt.Errorf("notifier has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}
	r.byName[name] = n

	i, _ := slices.BinarySearchFunc(r.sorted, name, func(e Notifier, target string) int {
		return strings.Compare(e.Name(), target)
	})
	r.sorted = slices.Insert(r.sorted, i, n)
	return nil
}

// Get returns the named sink or ErrNotifierNotConfigured.
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.byName[name]
	if !exists {
		return nil, core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("notifier %s", name))
	}
	return n, nil
}

// GetAll returns a copy of the sinks ordered by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sorted)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.sorted))
	for i, n := range r.sorted {
		names[i] = n.Name()
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sorted)
}
