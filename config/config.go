// Package config loads a waystation.yaml configuration file into the
// types.ClusterConfig values the rest of the module consumes, grounded
// on quarry/cli/config/config.go's YAML-struct-plus-defaults shape
// (SPEC_FULL.md §6.2).
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/justapithecus/waystation/types"
)

// Config represents a waystation.yaml configuration file.
type Config struct {
	// Clusters maps a cluster name to its configuration. The map key is
	// authoritative; any Name set inside the value is overwritten with it.
	Clusters map[string]ClusterConfig `yaml:"clusters"`
	// Control configures the UDP control-plane listener (spec.md §6).
	Control ControlConfig `yaml:"control"`
	// Log configures the structured logger.
	Log LogConfig `yaml:"log"`
	// Debug configures the HTTP metrics/inspection endpoint the `stats`
	// and `inspect` CLI commands query against a running worker.
	Debug DebugConfig `yaml:"debug"`
	// StickyCache configures Redis replication of sticky-hash assignments
	// shared by every cluster using sticky_method: cache. Absent means a
	// plain in-process cache with no cross-restart persistence.
	StickyCache StickyCacheConfig `yaml:"sticky_cache,omitempty"`
}

// StickyCacheConfig configures the cache backing sticky_method: cache
// clusters (spec.md §4.10). Leaving RedisURL empty keeps assignments
// in-process only; setting it replicates them to Redis so they survive a
// worker restart or can be shared across a fleet of workers fronting the
// same cluster.
type StickyCacheConfig struct {
	// RedisURL is a redis://[:password@]host:port[/db] connection URL.
	// Empty disables Redis replication entirely.
	RedisURL string `yaml:"redis_url,omitempty"`
	// KeyPrefix namespaces replicated keys (default "waystation:sticky").
	KeyPrefix string `yaml:"key_prefix,omitempty"`
	// Timeout is the per-operation timeout against Redis (default 5s).
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Retries is the number of retry attempts on a failed replication
	// (default 3).
	Retries int `yaml:"retries,omitempty"`
	// TTL is how long a replicated assignment lives in Redis (default
	// 24h).
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// DebugConfig configures the read-only HTTP endpoint a running worker
// exposes for the CLI's `stats`/`inspect` commands (SPEC_FULL.md §2 "cli"
// responsibility row: "metrics snapshotting").
type DebugConfig struct {
	// Listen is a "host:port" HTTP listen address. Empty disables the
	// debug endpoint entirely.
	Listen string `yaml:"listen,omitempty"`
}

// ClusterConfig is the YAML-facing shape of one cluster entry. It mirrors
// types.ClusterConfig directly; kept as a distinct type only because
// map-keyed YAML config conventionally omits the Name field from the
// value (the map key supplies it), matching the teacher's
// ProxyPoolConfig/ProxyPool split in quarry/cli/config/config.go.
type ClusterConfig struct {
	Protocol     types.NodeProtocol    `yaml:"protocol"`
	Sticky       types.StickyMode      `yaml:"sticky"`
	StickyMethod types.StickyMethod    `yaml:"sticky_method,omitempty"`
	Members      []types.StaticMember  `yaml:"members,omitempty"`
	Monitor      *types.MonitorConfig  `yaml:"monitor,omitempty"`
	Zeroconf     *types.ZeroconfConfig `yaml:"zeroconf,omitempty"`
	Stock        *StockConfig          `yaml:"stock,omitempty"`
}

// StockConfig configures the connection pool backing a cluster's members
// (spec.md §4.2).
type StockConfig struct {
	Limit   int `yaml:"limit"`
	MaxIdle int `yaml:"max_idle"`
}

// ControlConfig configures the UDP control-plane listener.
type ControlConfig struct {
	// Listen is a "host:port" UDP listen address. Empty disables the
	// control-plane listener entirely.
	Listen string `yaml:"listen,omitempty"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string `yaml:"level,omitempty"`
	// Format is "json" (default) or "console".
	Format string `yaml:"format,omitempty"`
}

// Validate runs types.ClusterConfig.Validate over every configured
// cluster (stamping the map key in as Name first) and returns the first
// error encountered, naming the offending cluster (spec.md §7
// ConfigError: fatal to the worker at startup).
func (c *Config) Validate() error {
	for _, name := range c.sortedClusterNames() {
		cc := c.Clusters[name].ToClusterConfig(name)
		if err := cc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// sortedClusterNames returns cluster names in deterministic order, for
// stable validation error ordering and CLI listing output.
func (c *Config) sortedClusterNames() []string {
	names := make([]string, 0, len(c.Clusters))
	for name := range c.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClusterConfigs returns every cluster's types.ClusterConfig, name-stamped
// and sorted by name for deterministic worker startup order.
func (c *Config) ClusterConfigs() []types.ClusterConfig {
	names := c.sortedClusterNames()
	out := make([]types.ClusterConfig, 0, len(names))
	for _, name := range names {
		out = append(out, c.Clusters[name].ToClusterConfig(name))
	}
	return out
}

// ToClusterConfig converts the map-value shape into the canonical
// types.ClusterConfig, stamping in name from the map key.
func (cc ClusterConfig) ToClusterConfig(name string) types.ClusterConfig {
	return types.ClusterConfig{
		Name:         name,
		Protocol:     cc.Protocol,
		Sticky:       cc.Sticky,
		StickyMethod: cc.StickyMethod,
		Members:      cc.Members,
		Monitor:      cc.Monitor,
		Zeroconf:     cc.Zeroconf,
	}
}

// StockOrDefault returns the cluster's stock configuration, falling back
// to an unlimited pool with max_idle=8 when unset.
func (cc ClusterConfig) StockOrDefault() StockConfig {
	if cc.Stock != nil {
		return *cc.Stock
	}
	return StockConfig{Limit: 0, MaxIdle: 8}
}

// LevelOrDefault returns the log level, defaulting to "info".
func (l LogConfig) LevelOrDefault() string {
	if l.Level == "" {
		return "info"
	}
	return l.Level
}

// errUnknownCluster is returned by Cluster lookups against a name not
// present in the config, primarily for CLI "inspect" error messages.
func errUnknownCluster(name string) error {
	return fmt.Errorf("config: no such cluster %q", name)
}

// Cluster returns one named cluster's types.ClusterConfig, or an error if
// the name is not present.
func (c *Config) Cluster(name string) (types.ClusterConfig, error) {
	cc, ok := c.Clusters[name]
	if !ok {
		return types.ClusterConfig{}, errUnknownCluster(name)
	}
	return cc.ToClusterConfig(name), nil
}
