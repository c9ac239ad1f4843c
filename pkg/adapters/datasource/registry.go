package datasource

import (
	"context"
	"sort"
	"sync"
)

// AdapterInfo describes a registered adapter for discovery.
type AdapterInfo struct {
	Type        DatabaseType `json:"type"`
	DisplayName string       `json:"displayName"`
	Description string       `json:"description"`
	Schemes     []string     `json:"schemes"`
}

// AdapterRegistration contains info + factories for creating adapters.
// Factories must not perform network I/O; connecting happens on first use.
type AdapterRegistration struct {
	Info                 AdapterInfo
	Factory              func(ctx context.Context, databaseURL string, opts Options) (ConnectionTester, error)
	QueryExecutorFactory func(ctx context.Context, databaseURL string, opts Options) (QueryExecutor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[DatabaseType]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if len(reg.Info.Schemes) == 0 {
		reg.Info.Schemes = reg.Info.Type.Schemes()
	}
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, ordered by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the connection tester factory for a database type.
// Returns nil if type is not registered.
func GetFactory(dbType DatabaseType) func(ctx context.Context, databaseURL string, opts Options) (ConnectionTester, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dbType]; ok {
		return reg.Factory
	}
	return nil
}

// GetQueryExecutorFactory returns the query executor factory for a database type.
// Returns nil if type is not registered.
func GetQueryExecutorFactory(dbType DatabaseType) func(ctx context.Context, databaseURL string, opts Options) (QueryExecutor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dbType]; ok {
		return reg.QueryExecutorFactory
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dbType DatabaseType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dbType]
	return ok
}

// unregister removes a registration. Tests only.
func unregister(dbType DatabaseType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, dbType)
}
