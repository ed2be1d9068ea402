// Package config loads the discovery engine's configuration once at process
// start, before anything else is constructed. There is no YAML/TOML document
// to parse: configuration is a flat list of string and duration options read
// directly from the environment, which is also why there's no config
// library (viper, envconfig) here — a dozen flat os.Getenv reads with
// explicit validation are clearer than a struct-tag indirection layer for a
// config this small.
package config

import (
	"fmt"
	"os"
	"strings"
)

// DiscoveryMode is the crossAccountDiscovery setting of.
type DiscoveryMode string

const (
	ModeOrganizations DiscoveryMode = "organizations"
	ModeSelfManaged DiscoveryMode = "self-managed"
)

// Config holds every recognized option of.
type Config struct {
	ClusterName string
	ConfigAggregatorName string
	CrossAccountDiscovery DiscoveryMode
	CustomUserAgent string
	GraphStoreURL string
	SearchIndexURL string
	OrganizationUnitID string
	Region string
	Regions []string
	RootAccountID string
	DiscoveryRoleName string
	VpcID string
	LogLevel string
}

// TrustRoleName returns the per-account role name minted for assumption,
// `<discoveryRoleName>-<rootAccountId>` per.
func (c Config) TrustRoleName() string {
	return fmt.Sprintf("%s-%s", c.DiscoveryRoleName, c.RootAccountID)
}

// IsOrganizationMode reports whether the crawl walks an organizational unit
// rather than a single self-managed account.
func (c Config) IsOrganizationMode() bool {
	return c.CrossAccountDiscovery == ModeOrganizations
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// splitCSV parses DISCOVERY_REGIONS, a comma-separated region list for the
// AccountResolver's per-region config-enablement probe (step 3).
// Blank entries and surrounding whitespace are dropped; an empty input
// yields a nil slice so Load can fall back to the single deployment region.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the environment into a Config, failing fast on anything
// required that is missing or malformed. It is called exactly once, from
// cmd/discovery/main.go, before any other component is constructed.
func Load() (Config, error) {
	cfg := Config{
		ClusterName: getenv("CLUSTER_NAME"),
		ConfigAggregatorName: getenv("CONFIG_AGGREGATOR_NAME"),
		CrossAccountDiscovery: DiscoveryMode(getenv("CROSS_ACCOUNT_DISCOVERY")),
		CustomUserAgent: getenv("CUSTOM_USER_AGENT"),
		GraphStoreURL: getenv("GRAPH_STORE_URL"),
		SearchIndexURL: getenv("SEARCH_INDEX_URL"),
		OrganizationUnitID: getenv("ORGANIZATION_UNIT_ID"),
		Region: getenv("AWS_REGION"),
		Regions: splitCSV(getenv("DISCOVERY_REGIONS")),
		RootAccountID: getenv("ROOT_ACCOUNT_ID"),
		DiscoveryRoleName: getenv("DISCOVERY_ROLE_NAME"),
		VpcID: getenv("VPC_ID"),
		LogLevel: getenv("LOG_LEVEL"),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.CrossAccountDiscovery == "" {
		cfg.CrossAccountDiscovery = ModeSelfManaged
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{cfg.Region}
	}

	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	require("CLUSTER_NAME", cfg.ClusterName)
	require("CONFIG_AGGREGATOR_NAME", cfg.ConfigAggregatorName)
	require("GRAPH_STORE_URL", cfg.GraphStoreURL)
	require("SEARCH_INDEX_URL", cfg.SearchIndexURL)
	require("AWS_REGION", cfg.Region)
	require("ROOT_ACCOUNT_ID", cfg.RootAccountID)
	require("DISCOVERY_ROLE_NAME", cfg.DiscoveryRoleName)

	switch cfg.CrossAccountDiscovery {
	case ModeOrganizations:
		require("ORGANIZATION_UNIT_ID", cfg.OrganizationUnitID)
	case ModeSelfManaged:
		// organizationUnitId is unused in self-managed mode.
	default:
		return Config{}, fmt.Errorf("config: CROSS_ACCOUNT_DISCOVERY must be %q or %q, got %q",
			ModeOrganizations, ModeSelfManaged, cfg.CrossAccountDiscovery)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
