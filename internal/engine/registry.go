package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Factory creates a fresh, uninitialized interpreter instance.
type Factory func() Engine

// Backend describes a registered interpreter: its name, what to show
// humans, and which game file extensions it claims.
type Backend struct {
	Name        string
	Title       string
	Description string
	// Extensions are lowercase with the leading dot, e.g. ".qsp".
	Extensions []string
	Factory    Factory
}

var (
	mu       sync.RWMutex
	backends = make(map[string]Backend)
)

// Register adds an interpreter backend to the registry. It panics if
// a backend with the same name is already registered.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		panic(fmt.Sprintf("engine: backend %q already registered", b.Name))
	}
	backends[b.Name] = b
}

// Get returns the backend registered under name.
func Get(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// Exists reports whether a backend with the given name is registered.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := backends[name]
	return ok
}

// List returns all registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForFile returns the backend that claims the file's extension.
func ForFile(path string) (Backend, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	mu.RLock()
	defer mu.RUnlock()
	for _, b := range backends {
		for _, e := range b.Extensions {
			if e == ext {
				return b, true
			}
		}
	}
	return Backend{}, false
}

// Create instantiates the named backend's interpreter.
func Create(name string) (Engine, error) {
	b, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("engine: unknown backend %q", name)
	}
	return b.Factory(), nil
}
