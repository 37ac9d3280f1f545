package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/betledger
rpc_port: 9000
gateway_port: 9001
owner: aabbccdd
tokens:
  - address: tok-eup
    alloc:
      deadbeef: 1000000
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCPort != 9000 || cfg.GatewayPort != 9001 {
		t.Errorf("ports: rpc %d gateway %d", cfg.RPCPort, cfg.GatewayPort)
	}
	if cfg.Custody != "betledger" {
		t.Errorf("default custody: got %q", cfg.Custody)
	}
	if len(cfg.Tokens) != 1 || cfg.Tokens[0].Alloc["deadbeef"] != 1000000 {
		t.Errorf("tokens: %+v", cfg.Tokens)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_OWNER_KEY", "ffee")
	path := writeConfig(t, "owner: ${TEST_OWNER_KEY}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Owner != "ffee" {
		t.Errorf("owner: got %q want ffee", cfg.Owner)
	}
}

func TestValidateRejectsMissingOwner(t *testing.T) {
	path := writeConfig(t, "rpc_port: 9000\n")
	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation failure without owner")
	}
}

func TestValidateRejectsPortClash(t *testing.T) {
	path := writeConfig(t, "owner: aa\nrpc_port: 9000\ngateway_port: 9000\n")
	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation failure for identical ports")
	}
}

func TestValidateRejectsDuplicateToken(t *testing.T) {
	path := writeConfig(t, `
owner: aa
tokens:
  - address: tok-eup
  - address: tok-eup
`)
	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected validation failure for duplicate token")
	}
}
