package planning

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/openav/naviplan/hdmap"
	"github.com/openav/naviplan/logging"
)

// Dependencies are the collaborators handed to a strategy constructor. Any of them may be nil;
// strategies report missing ones from Init.
type Dependencies struct {
	Map          hdmap.Service
	Optimizer    Optimizer
	Localization LocalizationProvider
	Sink         TrajectorySink
	// Clock drives scheduling and staleness checks. Nil means the wall clock.
	Clock clock.Clock
}

// ClockOrDefault returns the configured clock or the wall clock.
func (d Dependencies) ClockOrDefault() clock.Clock {
	if d.Clock == nil {
		return clock.New()
	}
	return d.Clock
}

// A Constructor builds a strategy from its dependencies and configuration.
type Constructor func(deps Dependencies, cfg *Config, logger logging.Logger) (Strategy, error)

var (
	registryMu   sync.RWMutex
	constructors = map[string]Constructor{}
)

// RegisterStrategy makes a strategy constructor available under name. It panics on a duplicate
// name since registration happens from init functions.
func RegisterStrategy(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := constructors[name]; ok {
		panic(errors.Errorf("planning strategy %q registered twice", name))
	}
	constructors[name] = constructor
}

// RegisteredStrategies returns the sorted names of every registered strategy.
func RegisteredStrategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStrategy constructs the strategy named by cfg.Strategy.
func NewStrategy(deps Dependencies, cfg *Config, logger logging.Logger) (Strategy, error) {
	registryMu.RLock()
	constructor, ok := constructors[cfg.Strategy]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown planning strategy %q, registered: %v", cfg.Strategy, RegisteredStrategies())
	}
	return constructor(deps, cfg, logger.Sublogger(cfg.Strategy))
}
