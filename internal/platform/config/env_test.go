package config

import "testing"

func TestParseEnv(t *testing.T) {
	type testConfig struct {
		Value string `env:"ATRIUM_TEST_CONFIG_VALUE"`
	}

	t.Setenv("ATRIUM_TEST_CONFIG_VALUE", "hello")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv error = %v", err)
	}
	if cfg.Value != "hello" {
		t.Fatalf("Value = %q, want %q", cfg.Value, "hello")
	}
}

func TestParseEnvMissingIsZero(t *testing.T) {
	type testConfig struct {
		Value string `env:"ATRIUM_TEST_CONFIG_UNSET"`
	}

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv error = %v", err)
	}
	if cfg.Value != "" {
		t.Fatalf("Value = %q, want empty", cfg.Value)
	}
}
