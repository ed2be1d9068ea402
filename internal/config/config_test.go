package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"CLUSTER_NAME": "prod-cluster",
		"CONFIG_AGGREGATOR_NAME": "org-aggregator",
		"GRAPH_STORE_URL": "https://graph.example.internal",
		"SEARCH_INDEX_URL": "https://search.example.internal",
		"AWS_REGION": "us-east-1",
		"ROOT_ACCOUNT_ID": "111122223333",
		"DISCOVERY_ROLE_NAME": "WorkloadDiscoveryRole",
		"CROSS_ACCOUNT_DISCOVERY": "self-managed",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_SelfManagedMode(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CrossAccountDiscovery != ModeSelfManaged {
		t.Errorf("expected self-managed mode, got %s", cfg.CrossAccountDiscovery)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if got, want := cfg.TrustRoleName(), "WorkloadDiscoveryRole-111122223333"; got != want {
		t.Errorf("TrustRoleName = %q, want %q", got, want)
	}
	if cfg.IsOrganizationMode() {
		t.Error("expected IsOrganizationMode false in self-managed mode")
	}
}

func TestLoad_OrganizationModeRequiresOU(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CROSS_ACCOUNT_DISCOVERY", "organizations")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ORGANIZATION_UNIT_ID is missing in organizations mode")
	}

	t.Setenv("ORGANIZATION_UNIT_ID", "ou-root-abc123")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsOrganizationMode() {
		t.Error("expected IsOrganizationMode true")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("CLUSTER_NAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when required variables are unset")
	}
}

func TestLoad_InvalidDiscoveryMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CROSS_ACCOUNT_DISCOVERY", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid CROSS_ACCOUNT_DISCOVERY value")
	}
}

func TestLoad_RegionsDefaultsToDeploymentRegion(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Regions) != 1 || cfg.Regions[0] != "us-east-1" {
		t.Errorf("Regions = %v, want [us-east-1]", cfg.Regions)
	}
}

func TestLoad_RegionsParsesCSVAndTrimsBlanks(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCOVERY_REGIONS", "us-east-1, eu-west-1,,ap-southeast-2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []string{"us-east-1", "eu-west-1", "ap-southeast-2"}
	if len(cfg.Regions) != len(want) {
		t.Fatalf("Regions = %v, want %v", cfg.Regions, want)
	}
	for i, r := range want {
		if cfg.Regions[i] != r {
			t.Errorf("Regions[%d] = %q, want %q", i, cfg.Regions[i], r)
		}
	}
}
