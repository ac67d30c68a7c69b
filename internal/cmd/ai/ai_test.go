package ai

import (
	"flag"
	"testing"
)

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fs := flag.NewFlagSet("ai", flag.ContinueOnError)
		cfg, err := ParseConfig(fs, nil)
		if err != nil {
			t.Fatalf("ParseConfig: %v", err)
		}
		if cfg.Port != 8090 {
			t.Fatalf("Port = %d, want 8090", cfg.Port)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("ATRIUM_AI_PORT", "9100")
		fs := flag.NewFlagSet("ai", flag.ContinueOnError)
		cfg, err := ParseConfig(fs, nil)
		if err != nil {
			t.Fatalf("ParseConfig: %v", err)
		}
		if cfg.Port != 9100 {
			t.Fatalf("Port = %d, want 9100", cfg.Port)
		}
	})

	t.Run("flag overrides env", func(t *testing.T) {
		t.Setenv("ATRIUM_AI_PORT", "9100")
		fs := flag.NewFlagSet("ai", flag.ContinueOnError)
		cfg, err := ParseConfig(fs, []string{"-port", "9200"})
		if err != nil {
			t.Fatalf("ParseConfig: %v", err)
		}
		if cfg.Port != 9200 {
			t.Fatalf("Port = %d, want 9200", cfg.Port)
		}
	})
}
