package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxprep/voxprep/pkg/capture"
)

// ErrProviderNotRegistered is returned by [Registry.CreateCapture] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// CaptureFactory builds a capture source from its config entry.
type CaptureFactory func(ProviderEntry) (capture.Source, error)

// Registry maps capture provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	capture map[string]CaptureFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture: make(map[string]CaptureFactory),
	}
}

// RegisterCapture registers a capture source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory CaptureFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// CreateCapture instantiates a capture source using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateCapture(entry ProviderEntry) (capture.Source, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Names returns the registered capture provider names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capture))
	for name := range r.capture {
		names = append(names, name)
	}
	return names
}
