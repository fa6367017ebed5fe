package mrpt

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/mrpt/descriptor"
)

// ImplementationName is the registry name of the MRPT index.
const ImplementationName = "MRPTNearestNeighborsIndex"

// NearestNeighborsIndex is the behavior shared by registered implementations.
type NearestNeighborsIndex interface {
	BuildIndex(ctx context.Context, descriptors []descriptor.Descriptor) error
	Query(ctx context.Context, vector []float64, k int) ([]Neighbor, error)
	Count() int
	Config() Config
}

// Factory creates an implementation from its configuration.
type Factory func(ctx context.Context, store descriptor.Store, cfg Config) (NearestNeighborsIndex, error)

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

func init() {
	Register(ImplementationName, func(ctx context.Context, store descriptor.Store, cfg Config) (NearestNeighborsIndex, error) {
		return NewFromConfig(ctx, store, cfg)
	})
}

// Register makes an implementation available under name.
// It panics if name is empty, f is nil or name is already registered.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("mrpt: Register called with empty name or nil factory")
	}
	registry.Lock()
	defer registry.Unlock()

	if _, dup := registry.factories[name]; dup {
		panic(fmt.Sprintf("mrpt: Register called twice for %q", name))
	}
	registry.factories[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	registry.RLock()
	defer registry.RUnlock()

	f, ok := registry.factories[name]
	return f, ok
}

// Implementations returns the names of all registered implementations,
// sorted.
func Implementations() []string {
	registry.RLock()
	defer registry.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var _ NearestNeighborsIndex = (*Index)(nil)
