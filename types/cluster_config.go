package types

import (
	"fmt"
	"time"
)

// NodeProtocol is the wire protocol a backend node speaks. Encoding for
// every value other than HTTP is delegated to an out-of-scope forwarder
// (spec.md §1); the core only needs the discriminant to route to one.
type NodeProtocol string

const (
	NodeHTTP    NodeProtocol = "http"
	NodeAJP     NodeProtocol = "ajp"
	NodeFastCGI NodeProtocol = "fastcgi"
	NodeCGI     NodeProtocol = "cgi"
	NodeWAS     NodeProtocol = "was"
	NodeStatic  NodeProtocol = "static"
)

// StickyMethod selects the algorithm used for Zeroconf-discovered member
// selection (spec.md §4.6 PickZeroconf).
type StickyMethod string

const (
	StickyMethodConsistentHashing StickyMethod = "consistent_hashing"
	StickyMethodRendezvousHashing StickyMethod = "rendezvous_hashing"
	StickyMethodCache             StickyMethod = "cache"
)

// ZeroconfConfig configures mDNS/DNS-SD discovery for a cluster (spec.md §6).
type ZeroconfConfig struct {
	// ServiceType is the DNS-SD service type, e.g. "_http._tcp".
	ServiceType string `yaml:"service_type"`
	// Domain is the DNS-SD domain to browse, e.g. "local.".
	Domain string `yaml:"domain"`
	// IPv4 enables resolving IPv4 addresses.
	IPv4 bool `yaml:"ipv4"`
	// IPv6 enables resolving IPv6 addresses.
	IPv6 bool `yaml:"ipv6"`
	// Interface optionally restricts discovery to one network interface name.
	Interface string `yaml:"interface,omitempty"`
}

// Validate checks required Zeroconf fields (spec.md §7 ConfigError).
func (z ZeroconfConfig) Validate() error {
	if z.ServiceType == "" {
		return fmt.Errorf("zeroconf: service_type is required")
	}
	if !z.IPv4 && !z.IPv6 {
		return fmt.Errorf("zeroconf: at least one of ipv4/ipv6 must be enabled")
	}
	return nil
}

// MonitorKind is the class of health probe (spec.md §4.7).
type MonitorKind string

const (
	MonitorPing    MonitorKind = "ping"
	MonitorConnect MonitorKind = "connect"
	MonitorExpect  MonitorKind = "expect"
)

// MonitorConfig configures a health monitor bound to one (cluster, node, port) triple.
type MonitorConfig struct {
	Kind MonitorKind `yaml:"kind"`
	// Interval between successful probes.
	Interval time.Duration `yaml:"interval"`
	// Timeout for the whole probe (default 30s connect, 10s expect read, per spec.md §5).
	Timeout time.Duration `yaml:"timeout"`
	// ConnectTimeout is an optional separate connect timeout for connect-kind monitors.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	// Send is the optional byte sequence an expect-monitor writes after connecting.
	Send []byte `yaml:"send,omitempty"`
	// Expect is the substring that indicates success. Empty means "any response".
	Expect string `yaml:"expect,omitempty"`
	// FadeExpect is the substring that indicates the node should be faded, not failed.
	FadeExpect string `yaml:"fade_expect,omitempty"`
}

// UnmarshalYAML decodes interval/timeout/connect_timeout as duration
// strings ("10s", "5m30s") per time.ParseDuration, grounded on
// quarry/cli/config/config.go's Duration wrapper, applied here directly
// to MonitorConfig's fields rather than introducing a separate wrapper
// type.
func (m *MonitorConfig) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		Kind           MonitorKind `yaml:"kind"`
		Interval       string      `yaml:"interval"`
		Timeout        string      `yaml:"timeout"`
		ConnectTimeout string      `yaml:"connect_timeout"`
		Send           []byte      `yaml:"send"`
		Expect         string      `yaml:"expect"`
		FadeExpect     string      `yaml:"fade_expect"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	interval, err := parseOptionalDuration(raw.Interval)
	if err != nil {
		return fmt.Errorf("monitor: invalid interval %q: %w", raw.Interval, err)
	}
	timeout, err := parseOptionalDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("monitor: invalid timeout %q: %w", raw.Timeout, err)
	}
	connectTimeout, err := parseOptionalDuration(raw.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("monitor: invalid connect_timeout %q: %w", raw.ConnectTimeout, err)
	}

	m.Kind = raw.Kind
	m.Interval = interval
	m.Timeout = timeout
	m.ConnectTimeout = connectTimeout
	m.Send = raw.Send
	m.Expect = raw.Expect
	m.FadeExpect = raw.FadeExpect
	return nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Validate applies defaults and checks the monitor config (spec.md §5, §4.7).
func (m *MonitorConfig) Validate() error {
	switch m.Kind {
	case MonitorPing, MonitorConnect, MonitorExpect:
	default:
		return fmt.Errorf("monitor: invalid kind %q", m.Kind)
	}
	if m.Interval <= 0 {
		return fmt.Errorf("monitor: interval must be positive")
	}
	if m.Timeout <= 0 {
		if m.Kind == MonitorExpect {
			m.Timeout = 10 * time.Second
		} else {
			m.Timeout = 30 * time.Second
		}
	}
	return nil
}

// ClusterConfig is the YAML-facing configuration for one Cluster (spec.md §4.6).
type ClusterConfig struct {
	// Name identifies the cluster, used for logging and BalancerMap/control-plane addressing.
	Name string `yaml:"name"`
	// Protocol is the wire protocol members speak, one of the NodeProtocol
	// values above; there is no separate TCP value.
	Protocol NodeProtocol `yaml:"protocol"`
	// Sticky is the sticky mode used for member selection.
	Sticky StickyMode `yaml:"sticky"`
	// StickyMethod selects the Zeroconf selection algorithm; ignored for static clusters.
	StickyMethod StickyMethod `yaml:"sticky_method,omitempty"`
	// Members are statically configured backend addresses (mutually exclusive with Zeroconf).
	Members []StaticMember `yaml:"members,omitempty"`
	// Monitor optionally configures a health monitor enlisted against every member.
	Monitor *MonitorConfig `yaml:"monitor,omitempty"`
	// Zeroconf optionally enables dynamic discovery (mutually exclusive with Members).
	Zeroconf *ZeroconfConfig `yaml:"zeroconf,omitempty"`
}

// StaticMember is one statically configured backend endpoint.
type StaticMember struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
	// DefaultPort is substituted when Port is zero (protocol default, e.g. 80/443).
	DefaultPort uint16 `yaml:"-"`
}

// Validate checks a cluster configuration per spec.md §7 ConfigError semantics.
// Config errors discovered here are fatal to the worker at startup.
func (c *ClusterConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cluster: name is required")
	}
	if !c.Sticky.Valid() {
		return fmt.Errorf("cluster %q: invalid sticky mode %q", c.Name, c.Sticky)
	}
	hasMembers := len(c.Members) > 0
	hasZeroconf := c.Zeroconf != nil
	if hasMembers == hasZeroconf {
		return fmt.Errorf("cluster %q: exactly one of members or zeroconf must be set", c.Name)
	}
	if hasZeroconf {
		if err := c.Zeroconf.Validate(); err != nil {
			return fmt.Errorf("cluster %q: %w", c.Name, err)
		}
		switch c.StickyMethod {
		case StickyMethodConsistentHashing, StickyMethodRendezvousHashing, StickyMethodCache:
		default:
			return fmt.Errorf("cluster %q: invalid sticky_method %q", c.Name, c.StickyMethod)
		}
	}
	if c.Monitor != nil {
		if err := c.Monitor.Validate(); err != nil {
			return fmt.Errorf("cluster %q: %w", c.Name, err)
		}
	}
	return nil
}
