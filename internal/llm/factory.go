package llm

import (
	"fmt"
	"sync"

	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"go.uber.org/zap"
)

// Factory builds a provider from its configuration.
type Factory func(cfg config.ProviderConfig, log *zap.Logger) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[Kind]Factory)
)

// Register makes a provider factory available. Adapters call it from init.
func Register(kind Kind, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", kind))
	}
	factories[kind] = f
}

// Get retrieves the factory registered for kind.
func Get(kind Kind) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for type: %s", kind)
	}
	return f, nil
}
