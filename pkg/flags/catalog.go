package flags

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Names of the flags in the default catalog. The catalog is closed: updates
// can only touch flags that already exist, and reset recreates exactly this
// set.
const (
	FlagCartHighLatency     = "cart_high_latency"
	FlagCartErrorRate       = "cart_error_rate"
	FlagCatalogHighLatency  = "catalog_high_latency"
	FlagCatalogErrorRate    = "catalog_error_rate"
	FlagCheckoutHighLatency = "checkout_high_latency"
	FlagCheckoutFailure     = "checkout_failure"
	FlagDatabaseSlowQueries = "database_slow_queries"
	FlagDiskStress          = "infrastructure_disk_stress"
	FlagPodCrash            = "infrastructure_pod_crash"
	FlagNetworkDelay        = "infrastructure_network_delay"
	FlagDBConnectionFail    = "infrastructure_db_connection_fail"
)

// DefaultCatalog returns the fixed set of flags seeded on first boot, all
// disabled.
func DefaultCatalog() []FeatureFlag {
	return []FeatureFlag{
		{
			Name:        FlagCartHighLatency,
			Description: "Inject additive latency into cart operations",
			Config:      FlagConfig{KeyLatencyMs: 1000},
		},
		{
			Name:        FlagCartErrorRate,
			Description: "Fail a percentage of cart operations with a simulated error",
			Config:      FlagConfig{KeyErrorRate: 30},
		},
		{
			Name:        FlagCatalogHighLatency,
			Description: "Inject additive latency into catalog operations",
			Config:      FlagConfig{KeyLatencyMs: 1000},
		},
		{
			Name:        FlagCatalogErrorRate,
			Description: "Fail a percentage of catalog operations with a simulated error",
			Config:      FlagConfig{KeyErrorRate: 30},
		},
		{
			Name:        FlagCheckoutHighLatency,
			Description: "Inject additive latency into checkout operations",
			Config:      FlagConfig{KeyLatencyMs: 1000},
		},
		{
			Name:        FlagCheckoutFailure,
			Description: "Fail a percentage of checkout attempts",
			Config:      FlagConfig{KeyFailureRate: 50},
		},
		{
			Name:        FlagDatabaseSlowQueries,
			Description: "Delay requests as if database queries were slow",
			Config:      FlagConfig{KeyDelayMs: 500},
		},
		{
			Name:        FlagDiskStress,
			Description: "Run a bounded disk I/O stress simulation in the background",
			Config:      FlagConfig{KeyIntensityLevel: 5, KeyDurationSeconds: 30},
		},
		{
			Name:        FlagPodCrash,
			Description: "Schedule probabilistic process crashes",
			Config:      FlagConfig{KeyCrashIntervalMinutes: 5, KeyCrashProbability: 30},
		},
		{
			Name:        FlagNetworkDelay,
			Description: "Delay requests inline to simulate network latency",
			Config:      FlagConfig{KeyDelayMs: 2000, KeyJitterMs: 500},
		},
		{
			Name:        FlagDBConnectionFail,
			Description: "Simulate database connection failures with a timeout",
			Config:      FlagConfig{KeyFailureRate: 50, KeyTimeoutMs: 1000},
		},
	}
}

// Catalog returns the default catalog, with entries overridden from a YAML
// file when overridePath is set. Overrides replace whole entries by name;
// names outside the default set are ignored, keeping the catalog closed.
func Catalog(overridePath string) ([]FeatureFlag, error) {
	catalog := DefaultCatalog()
	if overridePath == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read flag defaults file %s", overridePath)
	}
	var overrides []FeatureFlag
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, errors.Wrapf(err, "unable to parse flag defaults file %s", overridePath)
	}

	byName := make(map[string]FeatureFlag, len(overrides))
	for _, o := range overrides {
		if err := Validate(&o); err != nil {
			return nil, err
		}
		byName[o.Name] = o
	}
	for i, f := range catalog {
		if o, ok := byName[f.Name]; ok {
			catalog[i] = o
		}
	}
	return catalog, nil
}
