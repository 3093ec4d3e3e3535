// Package params abstracts the external configuration store used to resolve
// runtime parameters such as the artifact bucket identity.
package params

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// ErrParameterNotFound marks a missing parameter.
var ErrParameterNotFound = errors.New("parameter not found")

// Store resolves named parameters.
type Store interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ViperStore reads parameters from a viper tree under a fixed prefix, which
// lets deployments back the store with files or environment variables.
type ViperStore struct {
	v      *viper.Viper
	prefix string
}

// NewViperStore creates a ViperStore. An empty prefix reads keys as-is.
func NewViperStore(v *viper.Viper, prefix string) *ViperStore {
	return &ViperStore{v: v, prefix: prefix}
}

// GetParameter resolves a parameter by name.
func (s *ViperStore) GetParameter(_ context.Context, name string) (string, error) {
	key := name
	if s.prefix != "" {
		key = s.prefix + "." + name
	}
	if !s.v.IsSet(key) {
		return "", fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return s.v.GetString(key), nil
}

// MemoryStore holds parameters in a map for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with the given values.
func NewMemoryStore(values map[string]string) *MemoryStore {
	m := &MemoryStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Set stores a parameter value.
func (s *MemoryStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// GetParameter resolves a parameter by name.
func (s *MemoryStore) GetParameter(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return v, nil
}
