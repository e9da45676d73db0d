package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages runtime toggles. Flags are read once per operation,
// so flipping one affects subsequent requests only.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// Require lifecycle phases in order: admin response after the context
	// packet, re-entry plan after the admin response, monitoring after the plan.
	FeatureStrictPhaseOrdering = "lifecycle.strict_phase_ordering"

	// Serve the behavioral domain catalog through the Redis read-through cache.
	FeatureCatalogRedisCache = "catalog.redis_cache"

	// Fan domain events out through Redis pub/sub in addition to local handlers.
	FeatureRedisEventBus = "events.redis_bus"

	// Let the worker publish reminder events for pending re-entries and due reviews.
	FeatureWorkerReminders = "worker.reminders"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns flags with their default values.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureStrictPhaseOrdering] = &Feature{
		Name:        FeatureStrictPhaseOrdering,
		Description: "Gate each lifecycle phase on completion of the previous one",
		Enabled:     false,
	}

	ff.features[FeatureCatalogRedisCache] = &Feature{
		Name:        FeatureCatalogRedisCache,
		Description: "Cache the behavioral domain catalog in Redis",
		Enabled:     true,
	}

	ff.features[FeatureRedisEventBus] = &Feature{
		Name:        FeatureRedisEventBus,
		Description: "Publish domain events to Redis pub/sub",
		Enabled:     false,
	}

	ff.features[FeatureWorkerReminders] = &Feature{
		Name:        FeatureWorkerReminders,
		Description: "Publish re-entry and review reminder events",
		Enabled:     true,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_LIFECYCLE_STRICT_PHASE_ORDERING=true
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "lifecycle.strict_phase_ordering" -> "FEATURE_LIFECYCLE_STRICT_PHASE_ORDERING"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled. Unknown features are disabled.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// SetEnabled toggles a feature at runtime.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations, sorted by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, v := range ff.features {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// --- Convenience methods for common checks ---

// StrictPhaseOrdering reports whether lifecycle phases must run in order.
func (ff *FeatureFlags) StrictPhaseOrdering() bool {
	return ff.IsEnabled(FeatureStrictPhaseOrdering)
}

// --- Errors ---

var (
	ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
