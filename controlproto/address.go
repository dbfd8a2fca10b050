package controlproto

import "net/netip"

// parseIP parses host as a literal IP address.
func parseIP(host string) (netip.Addr, error) {
	return netip.ParseAddr(host)
}
