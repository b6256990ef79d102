package config

import (
	"strings"
	"testing"
)

func TestFromYAMLDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("server:\n  addr: \"\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8750" {
		t.Fatalf("expected default addr, got %s", cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTLMinutes != 60 {
		t.Fatalf("expected default ttl, got %d", cfg.Auth.TokenTTLMinutes)
	}
}

func TestGeneratedDefaultParses(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	if err != nil {
		t.Fatalf("default template should parse: %v", err)
	}
	if len(cfg.Seed.Departments) == 0 || len(cfg.Seed.People) == 0 {
		t.Fatalf("expected seeded catalog in default template")
	}
}

func TestValidateRejectsBadSeed(t *testing.T) {
	_, err := FromYAML([]byte(`seed:
  people:
    - name: Someone
      role: wizard
`))
	if err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Fatalf("expected unknown role error, got %v", err)
	}

	_, err = FromYAML([]byte(`seed:
  departments:
    - name: Dup
    - name: Dup
`))
	if err == nil || !strings.Contains(err.Error(), "duplicate department") {
		t.Fatalf("expected duplicate department error, got %v", err)
	}
}

func TestWebhookRequiresURL(t *testing.T) {
	_, err := FromYAML([]byte("webhooks:\n  - events: [stage.created]\n"))
	if err == nil {
		t.Fatalf("expected missing url error")
	}
}
