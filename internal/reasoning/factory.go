package reasoning

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"gstaudit/internal/config"
	"gstaudit/internal/port"
)

// ProviderFactory is a function that creates a Reasoner from a provider config.
type ProviderFactory func(cfg *config.ReasoningProviderConfig) (port.Reasoner, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a reasoning provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// Registered lists the provider names known to the factory.
func Registered() []string {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewReasoner creates a Reasoner from a provider config using the registered factory.
func NewReasoner(cfg *config.ReasoningProviderConfig) (port.Reasoner, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown reasoning provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// FromConfig builds the provider chain described by cfg. It returns nil when
// reasoning is disabled or no provider is configured. A single provider is
// returned as is; several are wrapped in a FallbackReasoner.
func FromConfig(cfg *config.ReasoningConfig, log *zap.Logger) (port.Reasoner, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var chain []port.Reasoner
	for _, pc := range cfg.Providers() {
		r, err := NewReasoner(pc)
		if err != nil {
			return nil, err
		}
		chain = append(chain, r)
	}
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	}
	return NewFallbackReasoner(chain, log), nil
}
