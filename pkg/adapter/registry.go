package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter. A nil logger means discard.
type Factory func(logger *slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register makes an adapter available under name. Adapter packages call it
// from init. Names are case-insensitive. Register panics on an empty name,
// a nil factory or a name that is already taken.
func Register(name string, factory Factory) {
	key := normalize(name)
	if key == "" {
		panic("adapter: Register with empty name")
	}
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	factories[key] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[normalize(name)]
	return f, ok
}

// IsRegistered reports whether an adapter is registered under name.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// ListAdapters returns the registered adapter names in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	registryMu.RUnlock()

	slices.Sort(names)
	return names
}

// NewAdapter builds the adapter for cfg.Type without connecting it.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if normalize(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// Open builds the adapter for cfg.Type and connects it. A failed connection
// closes the adapter before returning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	adp, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		_ = adp.Close()
		return nil, fmt.Errorf("failed to connect to %s target: %w", normalize(cfg.Type), err)
	}
	return adp, nil
}

// UnknownAdapterError reports a target type with no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in leaporm.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
