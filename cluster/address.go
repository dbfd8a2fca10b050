package cluster

import "net/netip"

// parseHostAddr parses host as a literal IP address.
func parseHostAddr(host string) (netip.Addr, error) {
	return netip.ParseAddr(host)
}
