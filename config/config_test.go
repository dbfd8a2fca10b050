package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/waystation/types"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "waystation.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	yaml := `
clusters:
  app:
    protocol: http
    sticky: source_ip
    members:
      - host: 10.0.0.1
        port: 8080
      - host: 10.0.0.2
        port: 8080
    monitor:
      kind: connect
      interval: 5s
      timeout: 2s
    stock:
      limit: 64
      max_idle: 8
  discovered:
    protocol: http
    sticky: cookie
    sticky_method: rendezvous_hashing
    zeroconf:
      service_type: _http._tcp
      domain: local.
      ipv4: true

control:
  listen: 127.0.0.1:9001

log:
  level: debug
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(cfg.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(cfg.Clusters))
	}

	app, err := cfg.Cluster("app")
	if err != nil {
		t.Fatalf("Cluster(app) failed: %v", err)
	}
	if app.Name != "app" {
		t.Errorf("Name = %q, want %q", app.Name, "app")
	}
	if app.Sticky != types.StickySourceIP {
		t.Errorf("Sticky = %q, want %q", app.Sticky, types.StickySourceIP)
	}
	if len(app.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(app.Members))
	}
	if app.Monitor == nil || app.Monitor.Kind != types.MonitorConnect {
		t.Fatal("expected connect monitor")
	}

	discovered, err := cfg.Cluster("discovered")
	if err != nil {
		t.Fatalf("Cluster(discovered) failed: %v", err)
	}
	if discovered.Zeroconf == nil || discovered.Zeroconf.ServiceType != "_http._tcp" {
		t.Fatal("expected zeroconf config")
	}
	if discovered.StickyMethod != types.StickyMethodRendezvousHashing {
		t.Errorf("StickyMethod = %q, want %q", discovered.StickyMethod, types.StickyMethodRendezvousHashing)
	}

	if cfg.Control.Listen != "127.0.0.1:9001" {
		t.Errorf("Control.Listen = %q, want %q", cfg.Control.Listen, "127.0.0.1:9001")
	}
	if cfg.Log.LevelOrDefault() != "debug" {
		t.Errorf("Log level = %q, want %q", cfg.Log.LevelOrDefault(), "debug")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/waystation.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeTemp(t, "clusters:\n  app:\n    bogus_field: 1\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestConfig_ClusterConfigs_SortedByName(t *testing.T) {
	path := writeTemp(t, `
clusters:
  zeta:
    protocol: http
    sticky: none
    members:
      - host: 10.0.0.9
        port: 80
  alpha:
    protocol: http
    sticky: none
    members:
      - host: 10.0.0.1
        port: 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	configs := cfg.ClusterConfigs()
	if len(configs) != 2 {
		t.Fatalf("expected 2 cluster configs, got %d", len(configs))
	}
	if configs[0].Name != "alpha" || configs[1].Name != "zeta" {
		t.Errorf("expected sorted order [alpha, zeta], got [%s, %s]", configs[0].Name, configs[1].Name)
	}
}

func TestConfig_Cluster_Unknown(t *testing.T) {
	cfg := &Config{Clusters: map[string]ClusterConfig{}}
	if _, err := cfg.Cluster("missing"); err == nil {
		t.Fatal("expected error for unknown cluster")
	}
}

func TestConfig_Validate_PropagatesClusterError(t *testing.T) {
	path := writeTemp(t, `
clusters:
  bad:
    protocol: http
    sticky: bogus
    members:
      - host: 10.0.0.1
        port: 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for invalid sticky mode")
	}
}

func TestClusterConfig_StockOrDefault(t *testing.T) {
	cc := ClusterConfig{}
	got := cc.StockOrDefault()
	if got.Limit != 0 || got.MaxIdle != 8 {
		t.Errorf("StockOrDefault() = %+v, want {Limit:0 MaxIdle:8}", got)
	}

	cc.Stock = &StockConfig{Limit: 32, MaxIdle: 4}
	got = cc.StockOrDefault()
	if got.Limit != 32 || got.MaxIdle != 4 {
		t.Errorf("StockOrDefault() = %+v, want {Limit:32 MaxIdle:4}", got)
	}
}
