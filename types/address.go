package types

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// AddressFamily is the socket address family.
type AddressFamily int

const (
	// AFInet is an IPv4 endpoint.
	AFInet AddressFamily = iota
	// AFInet6 is an IPv6 endpoint.
	AFInet6
	// AFLocal is a UNIX-domain socket endpoint.
	AFLocal
	// AFLocalHTTP is a UNIX-domain socket carrying an additional HTTP path
	// on top of the socket path ("HTTP-over-UNIX", per spec.md §6).
	AFLocalHTTP
)

func (f AddressFamily) String() string {
	switch f {
	case AFInet:
		return "inet"
	case AFInet6:
		return "inet6"
	case AFLocal:
		return "local"
	case AFLocalHTTP:
		return "local-http"
	default:
		return "unknown"
	}
}

// SocketAddress is an immutable network endpoint: an address family, the
// raw address bytes (IP bytes for AF_INET/AF_INET6, a filesystem path for
// AF_LOCAL/AF_LOCAL_HTTP), an optional port, and for AF_LOCAL_HTTP an
// additional HTTP path carried on top of the socket.
//
// SocketAddress values are compared and hashed by their "steady part":
// family, raw address, and port, excluding HTTPPath. This mirrors the
// distinction the source draws between an address used for dialing versus
// decorations layered on top of it.
type SocketAddress struct {
	family   AddressFamily
	raw      string // IP bytes (as a string key) for inet families, path for local
	port     uint16
	httpPath string // only meaningful for AFLocalHTTP
}

// NewInetAddress constructs a SocketAddress from a netip.Addr and port.
func NewInetAddress(addr netip.Addr, port uint16) SocketAddress {
	family := AFInet
	if addr.Is6() && !addr.Is4In6() {
		family = AFInet6
	}
	return SocketAddress{family: family, raw: string(addr.AsSlice()), port: port}
}

// NewLocalAddress constructs a UNIX-domain SocketAddress from a filesystem path.
func NewLocalAddress(path string) SocketAddress {
	return SocketAddress{family: AFLocal, raw: path}
}

// NewLocalHTTPAddress constructs an "HTTP-over-UNIX" SocketAddress: a UNIX
// socket path plus an HTTP path routed over it.
func NewLocalHTTPAddress(path, httpPath string) SocketAddress {
	return SocketAddress{family: AFLocalHTTP, raw: path, httpPath: httpPath}
}

// Family returns the address family.
func (a SocketAddress) Family() AddressFamily { return a.family }

// Port returns the port, or 0 for UNIX-domain addresses.
func (a SocketAddress) Port() uint16 { return a.port }

// Path returns the filesystem path for AF_LOCAL/AF_LOCAL_HTTP addresses.
func (a SocketAddress) Path() string { return a.raw }

// HTTPPath returns the additional HTTP path for AF_LOCAL_HTTP addresses.
func (a SocketAddress) HTTPPath() string { return a.httpPath }

// IsValid reports whether the address was constructed rather than the zero value.
func (a SocketAddress) IsValid() bool { return a.raw != "" }

// String renders the address for logging, not for wire use.
func (a SocketAddress) String() string {
	switch a.family {
	case AFInet, AFInet6:
		addr, ok := netip.AddrFromSlice([]byte(a.raw))
		if !ok {
			return fmt.Sprintf("<invalid:%s>", a.family)
		}
		return fmt.Sprintf("%s:%d", addr, a.port)
	case AFLocalHTTP:
		return fmt.Sprintf("unix:%s%s", a.raw, a.httpPath)
	default:
		return fmt.Sprintf("unix:%s", a.raw)
	}
}

// DialArgs returns the (network, address) pair suitable for net.Dialer.
// DialContext: "tcp"/"ip:port" for AF_INET/AF_INET6, "unix"/path for
// AF_LOCAL and AF_LOCAL_HTTP (the HTTP path carried by AF_LOCAL_HTTP is a
// decoration resolved by the HTTP layer once connected, not the dial
// target itself).
func (a SocketAddress) DialArgs() (network, address string) {
	switch a.family {
	case AFInet, AFInet6:
		return "tcp", a.String()
	default:
		return "unix", a.raw
	}
}

// SteadyPart returns the stable hashing input for this address: family,
// raw address bytes, and port, deliberately excluding HTTPPath (which is a
// decoration, not an identity for pooling/failure-tracking purposes).
func (a SocketAddress) SteadyPart() []byte {
	buf := make([]byte, 0, len(a.raw)+3)
	buf = append(buf, byte(a.family))
	buf = append(buf, a.raw...)
	buf = binary.BigEndian.AppendUint16(buf, a.port)
	return buf
}

// SteadyKey is a comparable form of SteadyPart suitable for use as a map key.
func (a SocketAddress) SteadyKey() string {
	return string(a.SteadyPart())
}

// Equal reports whether two addresses share the same steady part.
func (a SocketAddress) Equal(other SocketAddress) bool {
	return a.SteadyKey() == other.SteadyKey()
}
