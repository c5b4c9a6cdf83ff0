package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.DirectoryCacheTTL)
	assert.Equal(t, 10, cfg.WorkerConcurrency)
	assert.Equal(t, "9090", cfg.WorkerMetricsPort)
	assert.Equal(t, 72*time.Hour, cfg.NotificationDedupeTTL)

	settings, err := cfg.AttendanceSettings()
	require.NoError(t, err)
	assert.InDelta(t, 18.432941, settings.Fence.Center.Lat, 1e-9)
	assert.InDelta(t, 73.886954, settings.Fence.Center.Lng, 1e-9)
	assert.Equal(t, 6000.0, settings.Fence.RadiusMeters)
	assert.Equal(t, 10*time.Hour, settings.Policy.LateCutoff)
	assert.Equal(t, 13*time.Hour, settings.Policy.HardCutoff)
	assert.Equal(t, "Asia/Kolkata", settings.Policy.Location.String())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("GEOFENCE_RADIUS_METERS", "250.5")
	t.Setenv("LATE_CUTOFF", "09:15")
	t.Setenv("HARD_CUTOFF", "12:00")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("IS_LOCAL_DEV", "true")
	t.Setenv("DIRECTORY_CACHE_TTL", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.True(t, cfg.IsLocalDev)
	assert.Equal(t, 30*time.Second, cfg.DirectoryCacheTTL)

	settings, err := cfg.AttendanceSettings()
	require.NoError(t, err)
	assert.Equal(t, 250.5, settings.Fence.RadiusMeters)
	assert.Equal(t, 9*time.Hour+15*time.Minute, settings.Policy.LateCutoff)
	assert.Equal(t, 12*time.Hour, settings.Policy.HardCutoff)
	assert.Equal(t, "Europe/Berlin", settings.Policy.Location.String())
}

func TestAttendanceSettingsRejectsBadValues(t *testing.T) {
	base := Config{
		OfficeLat: 18.4, OfficeLng: 73.8, GeofenceRadiusMeters: 100,
		LateCutoff: "10:00", HardCutoff: "13:00", Timezone: "UTC",
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown zone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad late cutoff", func(c *Config) { c.LateCutoff = "ten" }},
		{"bad hard cutoff", func(c *Config) { c.HardCutoff = "25:99" }},
		{"cutoffs reversed", func(c *Config) { c.LateCutoff, c.HardCutoff = "13:00", "10:00" }},
		{"zero radius", func(c *Config) { c.GeofenceRadiusMeters = 0 }},
		{"latitude out of range", func(c *Config) { c.OfficeLat = 120 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := cfg.AttendanceSettings()
			assert.Error(t, err)
		})
	}

	_, err := base.AttendanceSettings()
	assert.NoError(t, err)
}

func TestAttendanceSettingsDefaultsUnsetCutoffs(t *testing.T) {
	cfg := Config{
		OfficeLat: 18.4, OfficeLng: 73.8, GeofenceRadiusMeters: 100,
		HardCutoff: "12:30", Timezone: "UTC",
	}

	settings, err := cfg.AttendanceSettings()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Hour, settings.Policy.LateCutoff)
	assert.Equal(t, 12*time.Hour+30*time.Minute, settings.Policy.HardCutoff)

	cfg.HardCutoff = ""
	settings, err = cfg.AttendanceSettings()
	require.NoError(t, err)
	assert.Equal(t, 13*time.Hour, settings.Policy.HardCutoff)
	assert.Equal(t, time.UTC, settings.Policy.Location)
}
