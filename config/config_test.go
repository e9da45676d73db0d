package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Escalation.PatternWindowDays)
	assert.Equal(t, 3, cfg.Escalation.PatternThreshold)
	assert.Equal(t, 2, cfg.Escalation.PriorLevelBThreshold)
	assert.Equal(t, 3, cfg.Monitoring.ReviewStrideDays)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.True(t, cfg.UsesMemoryStore())
	assert.False(t, cfg.Features.StrictPhaseOrdering())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("ESCALATION_PATTERN_WINDOW_DAYS", "7")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("FEATURE_LIFECYCLE_STRICT_PHASE_ORDERING", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Escalation.PatternWindowDays)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTP.Addr())
	assert.True(t, cfg.Features.StrictPhaseOrdering())
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Nowhere/Town")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsBadThresholds(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("ESCALATION_PATTERN_THRESHOLD", "0")
	t.Setenv("MONITORING_REVIEW_STRIDE_DAYS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ESCALATION_PATTERN_THRESHOLD")
	assert.Contains(t, err.Error(), "MONITORING_REVIEW_STRIDE_DAYS")
}

func TestValidate_ProductionRequiresDatabase(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestFeatureFlags(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureCatalogRedisCache))
	assert.False(t, ff.IsEnabled("no.such.flag"))

	require.NoError(t, ff.SetEnabled(FeatureStrictPhaseOrdering, true))
	assert.True(t, ff.StrictPhaseOrdering())
	assert.ErrorIs(t, ff.SetEnabled("no.such.flag", true), ErrFeatureNotFound)

	all := ff.GetAllFeatures()
	assert.Len(t, all, 4)
	assert.Equal(t, FeatureCatalogRedisCache, all[0].Name)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabled(FeatureCatalogRedisCache))
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_CATALOG_REDIS_CACHE", featureNameToEnvKey(FeatureCatalogRedisCache))
}
