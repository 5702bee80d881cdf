package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DatabaseComponent is the registry name of the persistent key-value store.
const DatabaseComponent = "database"

var (
	// ErrComponentNotFound is returned when no component is registered under a name.
	ErrComponentNotFound = errors.New("component not found")
	// ErrComponentType is returned when a component does not implement the requested type.
	ErrComponentType = errors.New("component has unexpected type")
)

// Server is the registry of components shared by the running services.
type Server struct {
	// mu guards components.
	mu sync.RWMutex
	// components maps registry names to component instances.
	components map[string]any
}

// New creates an empty registry.
func New() *Server {
	return &Server{
		components: make(map[string]any),
	}
}

// RegisterComponent stores component under name, replacing any previous one.
func (s *Server) RegisterComponent(name string, component any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.components[name] = component
}

// LookupComponent returns the component registered under name.
func (s *Server) LookupComponent(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	component, ok := s.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}

	return component, nil
}

// Components returns the sorted names of all registered components.
func (s *Server) Components() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Lookup returns the component registered under name as T.
func Lookup[T any](s *Server, name string) (T, error) {
	var zero T

	component, err := s.LookupComponent(name)
	if err != nil {
		return zero, err
	}

	typed, ok := component.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrComponentType, name, component)
	}

	return typed, nil
}
