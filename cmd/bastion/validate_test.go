package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, `
guards:
  operations:
    mint:
      max_requests: 10
      window: 1m
`)

	rootCmd.SetArgs([]string{"validate", "--config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Errorf("validate on good config = %v", err)
	}

	bad := writeConfig(t, "storage:\n  backend: bogus\n")
	rootCmd.SetArgs([]string{"validate", "--config", bad})
	if err := rootCmd.Execute(); err == nil {
		t.Error("validate on bad config returned nil error")
	}
}

func TestOperationRules(t *testing.T) {
	ops := map[string]config.OperationConfig{
		"mint": {MaxRequests: 10, Window: time.Minute, Cooldown: 2 * time.Hour, Metric: "mint_volume"},
		"burn": {MaxRequests: 5, Window: 30 * time.Second},
	}

	rules := operationRules(ops)
	if len(rules) != 2 {
		t.Fatalf("rules count = %d, want 2", len(rules))
	}
	mint := rules["mint"]
	if mint.MaxRequests != 10 || mint.Window != time.Minute || mint.Cooldown != 2*time.Hour || mint.Metric != "mint_volume" {
		t.Errorf("mint rule = %+v", mint)
	}
}
